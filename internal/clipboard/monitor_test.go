package clipboard

import (
	"sync"
	"testing"
	"time"
)

type fakeSource struct {
	mu      sync.Mutex
	count   int
	content *Content
	err     error
	written []*Content
}

func (f *fakeSource) ChangeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func (f *fakeSource) Read() (*Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content, f.err
}

func (f *fakeSource) Write(content *Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, content)
	f.content = content
	f.count++
	return nil
}

func (f *fakeSource) copy(c *Content) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content = c
	f.count++
}

func TestMonitorReportsNewContent(t *testing.T) {
	src := &fakeSource{}
	m := NewMonitor(src, time.Hour, nil)

	var got []*Content
	m.OnChange(func(c *Content) { got = append(got, c) })

	// Nothing changed yet
	m.CheckForChanges()
	if len(got) != 0 {
		t.Fatalf("expected no changes, got %d", len(got))
	}

	src.copy(NewText("hello"))
	m.CheckForChanges()
	if len(got) != 1 || string(got[0].Data) != "hello" {
		t.Fatalf("expected hello to be reported, got %+v", got)
	}

	// Same data copied again only bumps the change count
	src.copy(NewText("hello"))
	m.CheckForChanges()
	if len(got) != 1 {
		t.Fatalf("expected duplicate to be suppressed, got %d changes", len(got))
	}
}

func TestMonitorSuppressesOwnWrites(t *testing.T) {
	src := &fakeSource{}
	m := NewMonitor(src, time.Hour, nil)

	calls := 0
	m.OnChange(func(*Content) { calls++ })

	c := NewText("from history")
	m.SetLastChecksum(c.Checksum)
	if err := src.Write(c); err != nil {
		t.Fatalf("write: %v", err)
	}
	m.CheckForChanges()
	if calls != 0 {
		t.Fatalf("expected own write to be ignored, got %d calls", calls)
	}
}

func TestMonitorStartStop(t *testing.T) {
	src := &fakeSource{}
	m := NewMonitor(src, 5*time.Millisecond, nil)

	changes := make(chan *Content, 1)
	m.OnChange(func(c *Content) { changes <- c })

	m.Start()
	if !m.IsRunning() {
		t.Fatal("expected monitor to be running")
	}
	src.copy(NewText("polled"))

	select {
	case c := <-changes:
		if string(c.Data) != "polled" {
			t.Fatalf("unexpected content %q", c.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}

	m.Stop()
	m.Stop()
	if m.IsRunning() {
		t.Fatal("expected monitor to be stopped")
	}
}

func TestNewImageDefaultsMime(t *testing.T) {
	c := NewImage([]byte{0x89, 'P', 'N', 'G'}, "")
	if c.MimeType != "image/png" || !c.IsImage() || c.Size != 4 {
		t.Fatalf("unexpected image content %+v", c)
	}
	if c.Checksum != Checksum([]byte{0x89, 'P', 'N', 'G'}) {
		t.Fatal("checksum mismatch")
	}
}
