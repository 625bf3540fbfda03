//go:build !windows

package media

// SystemWindowLister is a no-op on platforms without a window enumeration
// backend. The local source then reports the no-playback signal.
type SystemWindowLister struct{}

// NewSystemWindowLister returns the platform window lister.
func NewSystemWindowLister() WindowLister {
	return &SystemWindowLister{}
}

// ListWindows returns no windows.
func (*SystemWindowLister) ListWindows() ([]Window, error) {
	return nil, nil
}
