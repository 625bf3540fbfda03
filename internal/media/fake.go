package media

import "sync"

// FakeWindowLister is a WindowLister backed by a settable window list. It
// stands in for real OS window enumeration on platforms where none is wired
// up, and in development.
type FakeWindowLister struct {
	mu      sync.Mutex
	windows []Window
}

// NewFakeWindowLister returns a lister with the given initial windows.
func NewFakeWindowLister(windows ...Window) *FakeWindowLister {
	return &FakeWindowLister{windows: windows}
}

// Set replaces the window list.
func (l *FakeWindowLister) Set(windows ...Window) {
	l.mu.Lock()
	l.windows = windows
	l.mu.Unlock()
}

// ListWindows returns the current window list.
func (l *FakeWindowLister) ListWindows() ([]Window, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Window, len(l.windows))
	copy(out, l.windows)
	return out, nil
}
