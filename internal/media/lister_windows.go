//go:build windows

package media

import (
	"syscall"
	"unsafe"
)

var (
	user32                       = syscall.NewLazyDLL("user32.dll")
	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
)

// SystemWindowLister enumerates visible top-level windows via user32.
type SystemWindowLister struct{}

// NewSystemWindowLister returns the platform window lister.
func NewSystemWindowLister() WindowLister {
	return &SystemWindowLister{}
}

// ListWindows returns all visible top-level windows with a non-empty title.
func (*SystemWindowLister) ListWindows() ([]Window, error) {
	var windows []Window

	callback := syscall.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		if visible, _, _ := procIsWindowVisible.Call(hwnd); visible == 0 {
			return 1 // continue enumeration
		}

		length, _, _ := procGetWindowTextLengthW.Call(hwnd)
		if length == 0 {
			return 1
		}

		buf := make([]uint16, length+1)
		procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), length+1)

		var pid uint32
		procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))

		windows = append(windows, Window{
			Title: syscall.UTF16ToString(buf),
			PID:   int(pid),
		})
		return 1
	})

	if ret, _, err := procEnumWindows.Call(callback, 0); ret == 0 {
		return nil, err
	}
	return windows, nil
}
