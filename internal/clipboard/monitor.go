package clipboard

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// ChangeHandler is called when clipboard content changes
type ChangeHandler func(*Content)

// Monitor watches for clipboard changes using polling
type Monitor struct {
	source          Source
	interval        time.Duration
	logger          *zap.Logger
	lastChangeCount int
	lastChecksum    string
	onChange        ChangeHandler
	stopChan        chan struct{}
	doneChan        chan struct{}
	running         bool
	mu              sync.Mutex
}

// NewMonitor creates a new clipboard monitor polling source at interval
func NewMonitor(source Source, interval time.Duration, logger *zap.Logger) *Monitor {
	if source == nil {
		source = System()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		source:   source,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// OnChange sets the handler for clipboard changes
func (m *Monitor) OnChange(handler ChangeHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = handler
}

// Start begins monitoring the clipboard. Content already on the clipboard
// when monitoring starts is not reported.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.lastChangeCount = m.source.ChangeCount()
	m.stopChan = make(chan struct{})
	m.doneChan = make(chan struct{})
	m.mu.Unlock()

	go m.run()
}

// Stop stops the clipboard monitor and waits for the poll loop to exit
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopChan)
	done := m.doneChan
	m.mu.Unlock()

	<-done
}

// IsRunning returns true if the monitor is active
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer close(m.doneChan)

	for {
		select {
		case <-ticker.C:
			m.CheckForChanges()
		case <-m.stopChan:
			return
		}
	}
}

// CheckForChanges polls the source once and reports new content
func (m *Monitor) CheckForChanges() {
	currentCount := m.source.ChangeCount()

	m.mu.Lock()
	if currentCount == m.lastChangeCount {
		m.mu.Unlock()
		return
	}
	m.lastChangeCount = currentCount
	handler := m.onChange
	m.mu.Unlock()

	content, err := m.source.Read()
	if err != nil {
		m.logger.Warn("read clipboard", zap.Error(err))
		return
	}
	if content == nil {
		return
	}

	// The change count also moves when identical data is re-copied
	m.mu.Lock()
	if content.Checksum == m.lastChecksum {
		m.mu.Unlock()
		return
	}
	m.lastChecksum = content.Checksum
	m.mu.Unlock()

	if handler != nil {
		handler(content)
	}
}

// SetLastChecksum sets the last known checksum so content we write
// ourselves is not captured again
func (m *Monitor) SetLastChecksum(checksum string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastChecksum = checksum
}
