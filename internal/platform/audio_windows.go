//go:build windows

package platform

import (
	"errors"
	"fmt"
	"runtime"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	clsctxAll = 0x17

	eRender  = 0
	eConsole = 0
	// eConsole, eMultimedia and eCommunications.
	audioRoles = 3

	// Vtable slots.
	comRelease                  = 2
	enumGetDefaultAudioEndpoint = 4
	deviceGetID                 = 5
	policySetDefaultEndpoint    = 13

	rpcEChangedMode = 0x80010106
)

var (
	ole32                = windows.NewLazySystemDLL("ole32.dll")
	procCoCreateInstance = ole32.NewProc("CoCreateInstance")

	clsidMMDeviceEnumerator = windows.GUID{Data1: 0xBCDE0395, Data2: 0xE52F, Data3: 0x467C,
		Data4: [8]byte{0x8E, 0x3D, 0xC4, 0x57, 0x92, 0x91, 0x69, 0x2E}}
	iidIMMDeviceEnumerator = windows.GUID{Data1: 0xA95664D2, Data2: 0x9614, Data3: 0x4F35,
		Data4: [8]byte{0xA7, 0x46, 0xDE, 0x8D, 0xB6, 0x36, 0x17, 0xE6}}
	// IPolicyConfig is undocumented; the settings app uses it to change
	// the default endpoint.
	clsidPolicyConfigClient = windows.GUID{Data1: 0x870AF99C, Data2: 0x171D, Data3: 0x4F9E,
		Data4: [8]byte{0xAF, 0x0D, 0xE6, 0x3D, 0xF4, 0x0C, 0x2B, 0xC9}}
	iidIPolicyConfig = windows.GUID{Data1: 0xF8679F50, Data2: 0x850A, Data3: 0x41CF,
		Data4: [8]byte{0x9C, 0x72, 0x43, 0x0F, 0x29, 0x02, 0x90, 0xC8}}
)

type hresult uint32

func (h hresult) Error() string { return fmt.Sprintf("HRESULT 0x%08X", uint32(h)) }

// comObject is a raw interface pointer; methods are called by vtable slot.
type comObject struct {
	ptr unsafe.Pointer
}

func (o comObject) call(slot int, args ...uintptr) hresult {
	vtbl := *(*unsafe.Pointer)(o.ptr)
	fn := *(*uintptr)(unsafe.Add(vtbl, uintptr(slot)*unsafe.Sizeof(uintptr(0))))
	r, _, _ := syscall.SyscallN(fn, append([]uintptr{uintptr(o.ptr)}, args...)...)
	return hresult(r)
}

func (o comObject) release() {
	o.call(comRelease)
}

func createInstance(clsid, iid *windows.GUID) (comObject, error) {
	var p unsafe.Pointer
	r, _, _ := procCoCreateInstance.Call(uintptr(unsafe.Pointer(clsid)), 0, clsctxAll,
		uintptr(unsafe.Pointer(iid)), uintptr(unsafe.Pointer(&p)))
	if r != 0 {
		return comObject{}, fmt.Errorf("CoCreateInstance failed: %w", hresult(r))
	}
	return comObject{ptr: p}, nil
}

// withCOM runs fn on a thread with COM initialised for the duration.
func withCOM(fn func() error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	err := windows.CoInitializeEx(0, windows.COINIT_APARTMENTTHREADED)
	var errno windows.Errno
	switch {
	case err == nil, errors.As(err, &errno) && errno == windows.Errno(windows.S_FALSE):
		defer windows.CoUninitialize()
	case errors.As(err, &errno) && uint32(errno) == rpcEChangedMode:
		// Already initialised with another threading model.
	default:
		return fmt.Errorf("CoInitializeEx failed: %w", err)
	}
	return fn()
}

// readDefaultAudioOutput returns the endpoint ID of the default render
// device for the console role.
func readDefaultAudioOutput() (string, error) {
	var id string
	err := withCOM(func() error {
		enum, err := createInstance(&clsidMMDeviceEnumerator, &iidIMMDeviceEnumerator)
		if err != nil {
			return err
		}
		defer enum.release()

		var dev unsafe.Pointer
		if hr := enum.call(enumGetDefaultAudioEndpoint, eRender, eConsole, uintptr(unsafe.Pointer(&dev))); hr != 0 {
			return fmt.Errorf("GetDefaultAudioEndpoint failed: %w", hr)
		}
		device := comObject{ptr: dev}
		defer device.release()

		var s *uint16
		if hr := device.call(deviceGetID, uintptr(unsafe.Pointer(&s))); hr != 0 {
			return fmt.Errorf("IMMDevice.GetId failed: %w", hr)
		}
		id = windows.UTF16PtrToString(s)
		windows.CoTaskMemFree(unsafe.Pointer(s))
		return nil
	})
	return id, err
}

// writeDefaultAudioOutput makes device the default render endpoint for
// every role.
func writeDefaultAudioOutput(device string) error {
	if device == "" {
		return errors.New("audio device id is empty")
	}
	id, err := windows.UTF16PtrFromString(device)
	if err != nil {
		return err
	}
	return withCOM(func() error {
		policy, err := createInstance(&clsidPolicyConfigClient, &iidIPolicyConfig)
		if err != nil {
			return err
		}
		defer policy.release()

		for role := 0; role < audioRoles; role++ {
			if hr := policy.call(policySetDefaultEndpoint, uintptr(unsafe.Pointer(id)), uintptr(role)); hr != 0 {
				return fmt.Errorf("failed to set default endpoint for role %d: %w", role, hr)
			}
		}
		return nil
	})
}
