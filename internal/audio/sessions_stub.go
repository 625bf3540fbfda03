//go:build !windows

package audio

// NewSystemLister returns the platform audio session lister. There is no
// core audio backend on this platform, so the synthetic lister drives the
// display instead.
func NewSystemLister() SessionLister {
	return NewSyntheticLister()
}
