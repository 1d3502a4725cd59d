// Package ui runs the clipdeck menubar icon.
package ui

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"fyne.io/systray"
	"go.uber.org/zap"

	"github.com/mindmorass/clipdeck/internal/capture"
	"github.com/mindmorass/clipdeck/internal/item"
	"github.com/mindmorass/clipdeck/internal/library"
	"github.com/mindmorass/clipdeck/internal/storage"
	"github.com/mindmorass/clipdeck/internal/store"
	"github.com/mindmorass/clipdeck/internal/update"
)

const (
	// RecentSlots is how many history items the menu lists
	RecentSlots = 10

	// TemplateSlots is how many templates the menu lists
	TemplateSlots = 10

	menuTitleLength = 40
	refreshInterval = 5 * time.Second
	backupTimeout   = 2 * time.Minute
)

// App interface for the main application
type App interface {
	Capture() *capture.Engine
	Library() *library.Service
	Version() string
	UpdateChecker() *update.Checker
	WebUIURL() string
	SharedLocation() string
	SetSharedLocation(path string) error
	BackUp(ctx context.Context) (*storage.FileHeader, error)
	LastBackup(ctx context.Context) (*library.BackupInfo, error)
	Quit()
}

// slot is a preallocated menu entry; systray cannot remove items, so the
// menu reuses a fixed set and hides the unused ones
type slot struct {
	item *systray.MenuItem
	mu   sync.Mutex
	id   string
}

func (s *slot) set(id, title string) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
	if id == "" {
		s.item.Hide()
		return
	}
	s.item.SetTitle(title)
	s.item.Show()
}

func (s *slot) get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Menubar manages the system tray
type Menubar struct {
	app    App
	logger *zap.Logger

	mStatus      *systray.MenuItem
	mLastCapture *systray.MenuItem
	mPause       *systray.MenuItem
	mResume      *systray.MenuItem
	mRecent      *systray.MenuItem
	mTemplates   *systray.MenuItem
	mLocation    *systray.MenuItem
	mBackupInfo  *systray.MenuItem
	mUpdate      *systray.MenuItem
	mCheckUpdate *systray.MenuItem
	mVersion     *systray.MenuItem

	recent    []*slot
	templates []*slot

	updateMu   sync.Mutex
	updateInfo *update.Info

	quitOnce sync.Once
	quitChan chan struct{}
}

// createClipboardIcon generates a simple clipboard icon for the menubar
func createClipboardIcon() []byte {
	const size = 22
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	// Black on transparent so macOS treats it as a template icon
	black := color.RGBA{0, 0, 0, 255}

	// Board outline
	for x := 4; x < 18; x++ {
		for y := 5; y < 20; y++ {
			if x == 4 || x == 17 || y == 5 || y == 19 {
				img.Set(x, y, black)
			}
		}
	}

	// Clip
	for x := 8; x < 14; x++ {
		img.Set(x, 3, black)
		img.Set(x, 4, black)
	}
	img.Set(7, 4, black)
	img.Set(14, 4, black)

	// Stacked cards for the history
	for x := 7; x < 15; x++ {
		img.Set(x, 9, black)
		img.Set(x, 12, black)
		img.Set(x, 15, black)
	}
	for y := 9; y <= 15; y++ {
		img.Set(7, y, black)
	}

	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// NewMenubar creates a new menubar
func NewMenubar(app App, logger *zap.Logger) *Menubar {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Menubar{
		app:      app,
		logger:   logger,
		quitChan: make(chan struct{}),
	}
}

// Run starts the menubar (blocking)
func (m *Menubar) Run() {
	systray.Run(m.onReady, m.onExit)
}

// Quit signals the menubar to exit
func (m *Menubar) Quit() {
	systray.Quit()
}

func (m *Menubar) onReady() {
	systray.SetIcon(createClipboardIcon())
	systray.SetTitle("")
	systray.SetTooltip("clipdeck")

	m.mStatus = systray.AddMenuItem("Status: Starting...", "")
	m.mStatus.Disable()
	m.mLastCapture = systray.AddMenuItem("Last capture: Never", "")
	m.mLastCapture.Disable()

	systray.AddSeparator()

	m.mRecent = systray.AddMenuItem("Recent", "Copy a recent item")
	m.recent = m.addSlots(m.mRecent, RecentSlots)
	m.mTemplates = systray.AddMenuItem("Templates", "Copy a template")
	m.templates = m.addSlots(m.mTemplates, TemplateSlots)
	mOpen := systray.AddMenuItem("Open clipdeck", "Open the browser UI")

	systray.AddSeparator()

	m.mPause = systray.AddMenuItem("Pause Capture", "")
	m.mResume = systray.AddMenuItem("Resume Capture", "")
	m.mResume.Hide()

	systray.AddSeparator()

	mBackups := systray.AddMenuItem("Backups", "")
	m.mLocation = mBackups.AddSubMenuItem("Not configured", "")
	m.mLocation.Disable()
	m.mBackupInfo = mBackups.AddSubMenuItem(BackupTitle(time.Time{}, 0), "")
	m.mBackupInfo.Disable()
	mBackUpNow := mBackups.AddSubMenuItem("Back Up Now", "")
	mChooseFolder := mBackups.AddSubMenuItem("Choose Folder...", "")

	systray.AddSeparator()

	m.mUpdate = systray.AddMenuItem("Update Available!", "A new version is available")
	m.mUpdate.Hide()
	m.mCheckUpdate = systray.AddMenuItem("Check for Updates", "")
	m.mVersion = systray.AddMenuItem("Version: "+m.app.Version(), "")
	m.mVersion.Disable()

	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "")

	m.updateLocation()
	go m.loadLastBackup()
	engine := m.app.Capture()
	m.updateStatus(engine.GetStatus())
	engine.OnStatusChange(m.updateStatus)
	engine.OnCapture(func(*item.ClipboardItem) { m.refreshRecent() })
	m.refreshRecent()
	m.refreshTemplates()

	for _, s := range m.recent {
		go m.handleSlot(s, m.copyItem)
	}
	for _, s := range m.templates {
		go m.handleSlot(s, m.copyTemplate)
	}

	go m.refreshLoop()
	go m.updateCheckLoop()

	go func() {
		for {
			select {
			case <-mOpen.ClickedCh:
				openBrowser(m.app.WebUIURL(), m.logger)

			case <-m.mPause.ClickedCh:
				engine.Pause()
				m.mPause.Hide()
				m.mResume.Show()

			case <-m.mResume.ClickedCh:
				engine.Resume()
				m.mResume.Hide()
				m.mPause.Show()

			case <-mBackUpNow.ClickedCh:
				go m.backUp()

			case <-mChooseFolder.ClickedCh:
				path := ShowFolderPicker()
				if path == "" {
					continue
				}
				if err := m.app.SetSharedLocation(path); err != nil {
					m.logger.Warn("failed to set backup folder", zap.String("path", path), zap.Error(err))
					continue
				}
				m.updateLocation()
				go m.backUp()

			case <-m.mCheckUpdate.ClickedCh:
				go m.checkForUpdates()

			case <-m.mUpdate.ClickedCh:
				if info := m.lastUpdate(); info != nil && info.ReleaseURL != "" {
					openBrowser(info.ReleaseURL, m.logger)
				}

			case <-mQuit.ClickedCh:
				m.app.Quit()
				return

			case <-m.quitChan:
				return
			}
		}
	}()
}

func (m *Menubar) onExit() {
	m.quitOnce.Do(func() { close(m.quitChan) })
}

func (m *Menubar) addSlots(parent *systray.MenuItem, n int) []*slot {
	slots := make([]*slot, n)
	for i := range slots {
		mi := parent.AddSubMenuItem("", "")
		mi.Hide()
		slots[i] = &slot{item: mi}
	}
	return slots
}

func (m *Menubar) handleSlot(s *slot, copyFn func(id string)) {
	for {
		select {
		case <-s.item.ClickedCh:
			if id := s.get(); id != "" {
				copyFn(id)
			}
		case <-m.quitChan:
			return
		}
	}
}

func (m *Menubar) copyItem(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	it, err := m.app.Library().Get(ctx, id)
	if err != nil {
		m.logger.Warn("failed to load item", zap.String("id", id), zap.Error(err))
		return
	}
	if err := m.app.Capture().CopyToClipboard(it); err != nil {
		m.logger.Warn("failed to copy item", zap.String("id", id), zap.Error(err))
	}
}

func (m *Menubar) copyTemplate(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tpl, err := m.app.Library().Template(ctx, id)
	if err != nil {
		m.logger.Warn("failed to load template", zap.String("id", id), zap.Error(err))
		return
	}
	if err := m.app.Capture().CopyText(tpl.Content); err != nil {
		m.logger.Warn("failed to copy template", zap.String("id", id), zap.Error(err))
	}
}

func (m *Menubar) refreshRecent() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	items, err := m.app.Library().List(ctx, store.Filter{Limit: len(m.recent)})
	if err != nil {
		m.logger.Warn("failed to list recent items", zap.Error(err))
		return
	}
	for i, s := range m.recent {
		if i < len(items) {
			s.set(items[i].ID, ItemTitle(items[i]))
		} else {
			s.set("", "")
		}
	}
	if len(items) == 0 {
		m.mRecent.Disable()
	} else {
		m.mRecent.Enable()
	}
}

func (m *Menubar) refreshTemplates() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	templates, err := m.app.Library().Templates(ctx)
	if err != nil {
		m.logger.Warn("failed to list templates", zap.Error(err))
		return
	}
	for i, s := range m.templates {
		if i < len(templates) {
			s.set(templates[i].ID, Truncate(templates[i].Name, menuTitleLength))
		} else {
			s.set("", "")
		}
	}
	if len(templates) == 0 {
		m.mTemplates.Disable()
	} else {
		m.mTemplates.Enable()
	}
}

func (m *Menubar) updateStatus(status capture.Status) {
	switch status {
	case capture.StatusCapturing:
		m.mStatus.SetTitle("Status: Capturing ✓")
	case capture.StatusPaused:
		m.mStatus.SetTitle("Status: Paused ⏸")
	case capture.StatusError:
		m.mStatus.SetTitle("Status: Error ⚠")
	default:
		m.mStatus.SetTitle("Status: " + status.String())
	}
}

func (m *Menubar) updateLocation() {
	loc := m.app.SharedLocation()
	if loc == "" {
		m.mLocation.SetTitle("Not configured")
	} else {
		m.mLocation.SetTitle("✓ " + loc)
	}
}

func (m *Menubar) backUp() {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()
	header, err := m.app.BackUp(ctx)
	if err != nil {
		m.logger.Warn("backup failed", zap.Error(err))
		m.mBackupInfo.SetTitle("Last backup: Failed ⚠")
		return
	}
	m.mBackupInfo.SetTitle(BackupTitle(header.CreatedAt, header.ItemCount))
}

// loadLastBackup shows the snapshot already at the destination, if any
func (m *Menubar) loadLastBackup() {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()
	info, err := m.app.LastBackup(ctx)
	if err != nil {
		m.logger.Debug("no previous backup", zap.Error(err))
		return
	}
	m.mBackupInfo.SetTitle(BackupTitle(info.ModTime, info.Header.ItemCount))
}

// BackupTitle is the menu line describing a backup
func BackupTitle(at time.Time, items int) string {
	if at.IsZero() {
		return "Last backup: Never"
	}
	return fmt.Sprintf("Last backup: %s (%d items)", at.Local().Format("Jan 2 15:04"), items)
}

// refreshLoop keeps the capture time and templates current
func (m *Menubar) refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			last := m.app.Capture().GetLastCaptureTime()
			if last.IsZero() {
				m.mLastCapture.SetTitle("Last capture: Never")
			} else {
				m.mLastCapture.SetTitle(fmt.Sprintf("Last capture: %s ago", FormatDuration(time.Since(last))))
			}
			m.refreshTemplates()
		case <-m.quitChan:
			return
		}
	}
}

// ItemTitle renders a history item as a single menu line
func ItemTitle(it *item.ClipboardItem) string {
	switch it.Type {
	case item.TypeImage:
		if it.Metadata != nil && strings.TrimSpace(it.Metadata.OCRText) != "" {
			return "🖼 " + Truncate(strings.Join(strings.Fields(it.Metadata.OCRText), " "), menuTitleLength)
		}
		return "🖼 Image"
	case item.TypeCode:
		if it.Metadata.Sensitive() {
			return "🔒 Sensitive code"
		}
	}
	return Truncate(it.Preview, menuTitleLength)
}

// Truncate shortens s to at most n runes, ending with an ellipsis
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

// FormatDuration renders an elapsed time in the largest whole unit
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	default:
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
}

func (m *Menubar) lastUpdate() *update.Info {
	m.updateMu.Lock()
	defer m.updateMu.Unlock()
	return m.updateInfo
}

func (m *Menubar) checkForUpdates() {
	checker := m.app.UpdateChecker()
	if checker == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	info, err := checker.Check(ctx)
	if err != nil {
		m.logger.Debug("update check failed", zap.Error(err))
		return
	}

	m.updateMu.Lock()
	m.updateInfo = info
	m.updateMu.Unlock()

	if info.Available {
		m.mUpdate.SetTitle(fmt.Sprintf("Update Available: %s", info.LatestVersion))
		m.mUpdate.Show()
		m.logger.Info("update available",
			zap.String("current", info.CurrentVersion),
			zap.String("latest", info.LatestVersion),
		)
	} else {
		m.mUpdate.Hide()
	}
}

func (m *Menubar) updateCheckLoop() {
	select {
	case <-time.After(5 * time.Second):
	case <-m.quitChan:
		return
	}
	m.checkForUpdates()

	ticker := time.NewTicker(update.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.checkForUpdates()
		case <-m.quitChan:
			return
		}
	}
}

func openBrowser(url string, logger *zap.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		logger.Warn("unsupported platform for opening browser", zap.String("os", runtime.GOOS))
		return
	}
	if err := cmd.Start(); err != nil {
		logger.Warn("failed to open browser", zap.String("url", url), zap.Error(err))
	}
}
