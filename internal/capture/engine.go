package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mindmorass/clipdeck/internal/clipboard"
	"github.com/mindmorass/clipdeck/internal/item"
)

// DefaultInterval is how often the clipboard is polled
const DefaultInterval = 250 * time.Millisecond

const captureTimeout = 10 * time.Second

// StatusHandler is called when capture status changes
type StatusHandler func(status Status)

// CaptureHandler is called after a new item is recorded
type CaptureHandler func(it *item.ClipboardItem)

// Status represents the current capture state
type Status int

const (
	StatusIdle Status = iota
	StatusCapturing
	StatusPaused
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusCapturing:
		return "Capturing"
	case StatusPaused:
		return "Paused"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Capturer records clipboard content in the history
type Capturer interface {
	Capture(ctx context.Context, content *clipboard.Content) (*item.ClipboardItem, bool, error)
}

// Engine feeds clipboard changes into the history
type Engine struct {
	capturer Capturer
	source   clipboard.Source
	monitor  *clipboard.Monitor
	logger   *zap.Logger

	status          Status
	lastError       error
	lastCaptureTime time.Time
	onStatusChange  StatusHandler
	onCapture       CaptureHandler

	paused  bool
	running bool
	mu      sync.Mutex
}

// NewEngine creates a capture engine polling source every interval
func NewEngine(c Capturer, source clipboard.Source, interval time.Duration, logger *zap.Logger) *Engine {
	if source == nil {
		source = clipboard.System()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		capturer: c,
		source:   source,
		monitor:  clipboard.NewMonitor(source, interval, logger),
		logger:   logger,
		status:   StatusIdle,
	}
	e.monitor.OnChange(e.onClipboardChange)
	return e
}

// OnStatusChange sets the status change handler
func (e *Engine) OnStatusChange(handler StatusHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStatusChange = handler
}

// OnCapture sets the handler called for each newly recorded item
func (e *Engine) OnCapture(handler CaptureHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onCapture = handler
}

// Start begins capturing. It fails when the platform has no clipboard
// access.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	if _, err := e.source.Read(); errors.Is(err, clipboard.ErrUnsupported) {
		e.mu.Lock()
		e.lastError = err
		e.mu.Unlock()
		e.setStatus(StatusError)
		return err
	}

	e.mu.Lock()
	e.running = true
	e.paused = false
	e.mu.Unlock()

	e.monitor.Start()
	e.setStatus(StatusCapturing)
	e.logger.Info("clipboard capture started")
	return nil
}

// Stop stops capturing
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.mu.Unlock()

	e.monitor.Stop()
	e.setStatus(StatusIdle)
	e.logger.Info("clipboard capture stopped")
}

// Pause ignores clipboard changes until Resume
func (e *Engine) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
	e.setStatus(StatusPaused)
}

// Resume resumes capturing
func (e *Engine) Resume() {
	e.mu.Lock()
	e.paused = false
	running := e.running
	e.mu.Unlock()
	if running {
		e.setStatus(StatusCapturing)
	} else {
		e.setStatus(StatusIdle)
	}
}

// IsPaused returns true if capture is paused
func (e *Engine) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// IsRunning returns true if the engine is running
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// GetStatus returns the current status
func (e *Engine) GetStatus() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// GetLastCaptureTime returns when an item was last recorded
func (e *Engine) GetLastCaptureTime() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastCaptureTime
}

// GetLastError returns the last error
func (e *Engine) GetLastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastError
}

// CopyToClipboard puts an item back on the clipboard. The write is not
// captured again.
func (e *Engine) CopyToClipboard(it *item.ClipboardItem) error {
	content, err := contentFor(it)
	if err != nil {
		return err
	}
	return e.write(content)
}

// CopyText puts plain text on the clipboard without capturing it
func (e *Engine) CopyText(text string) error {
	return e.write(clipboard.NewText(text))
}

func (e *Engine) write(content *clipboard.Content) error {
	// Set before writing so a poll racing the write sees the checksum
	e.monitor.SetLastChecksum(content.Checksum)
	if err := e.source.Write(content); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}

func contentFor(it *item.ClipboardItem) (*clipboard.Content, error) {
	if it.Type != item.TypeImage {
		return clipboard.NewText(it.Content), nil
	}
	data, err := base64.StdEncoding.DecodeString(it.Content)
	if err != nil {
		return nil, fmt.Errorf("decode image item %s: %w", it.ID, err)
	}
	mimeType := ""
	if it.Metadata != nil {
		mimeType = it.Metadata.MimeType
	}
	return clipboard.NewImage(data, mimeType), nil
}

func (e *Engine) setStatus(status Status) {
	e.mu.Lock()
	e.status = status
	handler := e.onStatusChange
	e.mu.Unlock()

	if handler != nil {
		handler(status)
	}
}

func (e *Engine) onClipboardChange(content *clipboard.Content) {
	e.mu.Lock()
	if e.paused || !e.running {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
	defer cancel()

	it, added, err := e.capturer.Capture(ctx, content)
	if err != nil {
		e.logger.Error("failed to capture clipboard", zap.Error(err))
		e.mu.Lock()
		e.lastError = err
		e.mu.Unlock()
		e.setStatus(StatusError)
		return
	}

	e.mu.Lock()
	recovered := e.status == StatusError
	e.lastError = nil
	if added {
		e.lastCaptureTime = time.Now()
	}
	handler := e.onCapture
	e.mu.Unlock()

	if recovered {
		e.setStatus(StatusCapturing)
	}
	if added && handler != nil {
		handler(it)
	}
}
