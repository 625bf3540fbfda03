//go:build windows

package audio

import (
	"errors"
	"strings"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	ps "github.com/mitchellh/go-ps"
	"github.com/moutend/go-wca/pkg/wca"
)

// SystemLister enumerates audio sessions through the Windows Core Audio API.
// Each call performs a full COM walk; no COM pointers are retained between
// calls, so it is safe to use from any goroutine.
type SystemLister struct{}

// NewSystemLister returns the platform audio session lister.
func NewSystemLister() SessionLister {
	return &SystemLister{}
}

// comSession is a point-in-time view of one audio session. The peak level is
// captured during enumeration; SetMute re-walks the session list by PID.
type comSession struct {
	name string
	pid  uint32
	peak float64
}

func (s *comSession) Name() string { return s.name }

func (s *comSession) Peak() (float64, error) { return s.peak, nil }

func (s *comSession) SetMute(muted bool) error {
	return walkSessions(func(pid uint32, ctl2 *wca.IAudioSessionControl2) {
		if pid != s.pid {
			return
		}
		dispatch, err := ctl2.QueryInterface(wca.IID_ISimpleAudioVolume)
		if err != nil {
			return
		}
		volume := (*wca.ISimpleAudioVolume)(unsafe.Pointer(dispatch))
		defer volume.Release()
		_ = volume.SetMute(muted, nil)
	})
}

// Sessions returns every audio session on the active render endpoints with
// a nonzero process ID. System sound sessions (PID 0) are skipped.
func (*SystemLister) Sessions() ([]Session, error) {
	var sessions []Session

	err := walkSessions(func(pid uint32, ctl2 *wca.IAudioSessionControl2) {
		name := processName(pid)

		var peak float32
		dispatch, err := ctl2.QueryInterface(wca.IID_IAudioMeterInformation)
		if err != nil {
			return
		}
		meter := (*wca.IAudioMeterInformation)(unsafe.Pointer(dispatch))
		defer meter.Release()
		if err := meter.GetPeakValue(&peak); err != nil {
			return
		}

		sessions = append(sessions, &comSession{name: name, pid: pid, peak: float64(peak)})
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// walkSessions initializes COM, enumerates every session on every active
// render device, and invokes fn once per session with a nonzero PID. All COM
// objects are released before walkSessions returns.
func walkSessions(fn func(pid uint32, ctl2 *wca.IAudioSessionControl2)) error {
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		oleError := &ole.OleError{}
		// Code 1 = S_FALSE (already initialized) - this is fine
		if errors.As(err, &oleError) && oleError.Code() != 1 {
			return err
		}
	}
	defer ole.CoUninitialize()

	var enumerator *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(
		wca.CLSID_MMDeviceEnumerator,
		0,
		wca.CLSCTX_ALL,
		wca.IID_IMMDeviceEnumerator,
		&enumerator,
	); err != nil {
		return err
	}
	defer enumerator.Release()

	var devices *wca.IMMDeviceCollection
	if err := enumerator.EnumAudioEndpoints(wca.ERender, wca.DEVICE_STATE_ACTIVE, &devices); err != nil {
		return err
	}
	defer devices.Release()

	var deviceCount uint32
	if err := devices.GetCount(&deviceCount); err != nil {
		return err
	}

	for deviceIdx := uint32(0); deviceIdx < deviceCount; deviceIdx++ {
		var endpoint *wca.IMMDevice
		if err := devices.Item(deviceIdx, &endpoint); err != nil {
			continue
		}
		walkDeviceSessions(endpoint, fn)
		endpoint.Release()
	}
	return nil
}

// walkDeviceSessions invokes fn for each session on a single device.
func walkDeviceSessions(endpoint *wca.IMMDevice, fn func(pid uint32, ctl2 *wca.IAudioSessionControl2)) {
	var manager *wca.IAudioSessionManager2
	if err := endpoint.Activate(
		wca.IID_IAudioSessionManager2,
		wca.CLSCTX_ALL,
		nil,
		&manager,
	); err != nil {
		return // Some devices don't support session enumeration
	}
	defer manager.Release()

	var sessionEnumerator *wca.IAudioSessionEnumerator
	if err := manager.GetSessionEnumerator(&sessionEnumerator); err != nil {
		return
	}
	defer sessionEnumerator.Release()

	var sessionCount int
	if err := sessionEnumerator.GetCount(&sessionCount); err != nil {
		return
	}

	for sessionIdx := 0; sessionIdx < sessionCount; sessionIdx++ {
		var ctl *wca.IAudioSessionControl
		if err := sessionEnumerator.GetSession(sessionIdx, &ctl); err != nil {
			continue
		}

		dispatch, err := ctl.QueryInterface(wca.IID_IAudioSessionControl2)
		ctl.Release()
		if err != nil {
			continue
		}
		ctl2 := (*wca.IAudioSessionControl2)(unsafe.Pointer(dispatch))

		var pid uint32
		_ = ctl2.GetProcessId(&pid)
		if pid != 0 {
			fn(pid, ctl2)
		}
		ctl2.Release()
	}
}

// processName resolves a PID to a lowercase executable name.
func processName(pid uint32) string {
	process, err := ps.FindProcess(int(pid))
	if err != nil || process == nil {
		return "unknown"
	}
	return strings.ToLower(process.Executable())
}
