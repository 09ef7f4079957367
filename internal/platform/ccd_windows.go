//go:build windows

package platform

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	qdcOnlyActivePaths = 0x00000002

	deviceInfoGetSourceName         = 1
	deviceInfoGetAdvancedColorInfo  = 9
	deviceInfoSetAdvancedColorState = 10
	deviceInfoGetSDRWhiteLevel      = 11
	deviceInfoGetDPIScale           = -3
	deviceInfoSetDPIScale           = -4
	deviceInfoSetSDRWhiteLevel      = -18
)

var (
	procGetDisplayConfigBufferSizes = user32.NewProc("GetDisplayConfigBufferSizes")
	procQueryDisplayConfig          = user32.NewProc("QueryDisplayConfig")
	procDisplayConfigGetDeviceInfo  = user32.NewProc("DisplayConfigGetDeviceInfo")
	procDisplayConfigSetDeviceInfo  = user32.NewProc("DisplayConfigSetDeviceInfo")
)

// deviceInfoHeader mirrors DISPLAYCONFIG_DEVICE_INFO_HEADER. Every packet
// below starts with one.
type deviceInfoHeader struct {
	Type      int32
	Size      uint32
	AdapterID windows.LUID
	ID        uint32
}

type pathSourceInfo struct {
	AdapterID   windows.LUID
	ID          uint32
	ModeInfoIdx uint32
	StatusFlags uint32
}

type pathTargetInfo struct {
	AdapterID        windows.LUID
	ID               uint32
	ModeInfoIdx      uint32
	OutputTechnology uint32
	Rotation         uint32
	Scaling          uint32
	RefreshRate      [2]uint32
	ScanLineOrdering uint32
	TargetAvailable  int32
	StatusFlags      uint32
}

// pathInfo mirrors DISPLAYCONFIG_PATH_INFO.
type pathInfo struct {
	Source pathSourceInfo
	Target pathTargetInfo
	Flags  uint32
}

// modeInfo mirrors DISPLAYCONFIG_MODE_INFO. Only its size matters here.
type modeInfo struct {
	InfoType  uint32
	ID        uint32
	AdapterID windows.LUID
	_         [48]byte
}

type sourceDeviceName struct {
	Header            deviceInfoHeader
	ViewGDIDeviceName [32]uint16
}

type dpiScaleGet struct {
	Header                 deviceInfoHeader
	MinRel, CurRel, MaxRel int32
}

type dpiScaleSet struct {
	Header deviceInfoHeader
	Rel    int32
}

type advancedColorInfo struct {
	Header              deviceInfoHeader
	Value               uint32
	ColorEncoding       uint32
	BitsPerColorChannel uint32
}

type advancedColorState struct {
	Header deviceInfoHeader
	Enable uint32
}

type sdrWhiteLevelGet struct {
	Header deviceInfoHeader
	Level  uint32
}

type sdrWhiteLevelSet struct {
	Header deviceInfoHeader
	Level  uint32
	Final  uint8
}

// ccdPath locates one active display path. DPI is a property of the
// source; color state belongs to the target.
type ccdPath struct {
	gdiName  string
	source   windows.LUID
	sourceID uint32
	target   windows.LUID
	targetID uint32
}

func (p ccdPath) sourceHeader(typ int32, size uintptr) deviceInfoHeader {
	return deviceInfoHeader{Type: typ, Size: uint32(size), AdapterID: p.source, ID: p.sourceID}
}

func (p ccdPath) targetHeader(typ int32, size uintptr) deviceInfoHeader {
	return deviceInfoHeader{Type: typ, Size: uint32(size), AdapterID: p.target, ID: p.targetID}
}

func getDeviceInfo(packet unsafe.Pointer) error {
	r, _, _ := procDisplayConfigGetDeviceInfo.Call(uintptr(packet))
	if code := int32(r); code != 0 {
		return windows.Errno(code)
	}
	return nil
}

func setDeviceInfo(packet unsafe.Pointer) error {
	r, _, _ := procDisplayConfigSetDeviceInfo.Call(uintptr(packet))
	if code := int32(r); code != 0 {
		return windows.Errno(code)
	}
	return nil
}

// queryActivePaths lists the active paths with their GDI source names.
// The buffer sizes can change between the two calls when a display is
// plugged in, so the query is retried a few times.
func queryActivePaths() ([]ccdPath, error) {
	var (
		paths []pathInfo
		err   error
	)
	for attempt := 0; attempt < 3; attempt++ {
		paths, err = queryDisplayConfig()
		if err != windows.ERROR_INSUFFICIENT_BUFFER {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("QueryDisplayConfig failed: %w", err)
	}

	out := make([]ccdPath, 0, len(paths))
	for _, pi := range paths {
		p := ccdPath{
			source:   pi.Source.AdapterID,
			sourceID: pi.Source.ID,
			target:   pi.Target.AdapterID,
			targetID: pi.Target.ID,
		}
		var name sourceDeviceName
		name.Header = p.sourceHeader(deviceInfoGetSourceName, unsafe.Sizeof(name))
		if err := getDeviceInfo(unsafe.Pointer(&name)); err != nil {
			return nil, fmt.Errorf("failed to read source name: %w", err)
		}
		p.gdiName = windows.UTF16ToString(name.ViewGDIDeviceName[:])
		out = append(out, p)
	}
	return out, nil
}

func queryDisplayConfig() ([]pathInfo, error) {
	var nPaths, nModes uint32
	r, _, _ := procGetDisplayConfigBufferSizes.Call(qdcOnlyActivePaths,
		uintptr(unsafe.Pointer(&nPaths)), uintptr(unsafe.Pointer(&nModes)))
	if r != 0 {
		return nil, windows.Errno(r)
	}
	if nPaths == 0 {
		return nil, nil
	}
	paths := make([]pathInfo, nPaths)
	modes := make([]modeInfo, max(nModes, 1))
	r, _, _ = procQueryDisplayConfig.Call(qdcOnlyActivePaths,
		uintptr(unsafe.Pointer(&nPaths)), uintptr(unsafe.Pointer(&paths[0])),
		uintptr(unsafe.Pointer(&nModes)), uintptr(unsafe.Pointer(&modes[0])), 0)
	if r != 0 {
		return nil, windows.Errno(r)
	}
	return paths[:nPaths], nil
}

func pathByGDIName(paths []ccdPath, name string) (ccdPath, bool) {
	for _, p := range paths {
		if p.gdiName == name {
			return p, true
		}
	}
	return ccdPath{}, false
}

// readDPIScale returns the current and recommended scale of the path's
// source in percent.
func readDPIScale(p ccdPath) (current, recommended int, err error) {
	var pkt dpiScaleGet
	pkt.Header = p.sourceHeader(deviceInfoGetDPIScale, unsafe.Sizeof(pkt))
	if err := getDeviceInfo(unsafe.Pointer(&pkt)); err != nil {
		return 0, 0, fmt.Errorf("failed to read DPI scale: %w", err)
	}
	return dpiFromRelative(pkt.MinRel, pkt.CurRel, pkt.MaxRel)
}

func writeDPIScale(p ccdPath, percent int) error {
	current, recommended, err := readDPIScale(p)
	if err != nil {
		return err
	}
	if current == percent {
		return nil
	}
	rel, err := dpiToRelative(percent, recommended)
	if err != nil {
		return err
	}
	var pkt dpiScaleSet
	pkt.Header = p.sourceHeader(deviceInfoSetDPIScale, unsafe.Sizeof(pkt))
	pkt.Rel = rel
	if err := setDeviceInfo(unsafe.Pointer(&pkt)); err != nil {
		return fmt.Errorf("failed to set DPI scale: %w", err)
	}
	return nil
}

func readAdvancedColor(p ccdPath) (supported, enabled bool, err error) {
	var pkt advancedColorInfo
	pkt.Header = p.targetHeader(deviceInfoGetAdvancedColorInfo, unsafe.Sizeof(pkt))
	if err := getDeviceInfo(unsafe.Pointer(&pkt)); err != nil {
		return false, false, fmt.Errorf("failed to read HDR state: %w", err)
	}
	supported, enabled = advancedColor(pkt.Value)
	return supported, enabled, nil
}

func writeAdvancedColor(p ccdPath, enable bool) error {
	var pkt advancedColorState
	pkt.Header = p.targetHeader(deviceInfoSetAdvancedColorState, unsafe.Sizeof(pkt))
	if enable {
		pkt.Enable = 1
	}
	if err := setDeviceInfo(unsafe.Pointer(&pkt)); err != nil {
		return fmt.Errorf("failed to set HDR state: %w", err)
	}
	return nil
}

func readSDRWhiteLevel(p ccdPath) (int, error) {
	var pkt sdrWhiteLevelGet
	pkt.Header = p.targetHeader(deviceInfoGetSDRWhiteLevel, unsafe.Sizeof(pkt))
	if err := getDeviceInfo(unsafe.Pointer(&pkt)); err != nil {
		return 0, fmt.Errorf("failed to read SDR white level: %w", err)
	}
	return sdrLevelToNits(pkt.Level), nil
}

func writeSDRWhiteLevel(p ccdPath, nits int) error {
	level, err := sdrNitsToLevel(nits)
	if err != nil {
		return err
	}
	var pkt sdrWhiteLevelSet
	pkt.Header = p.targetHeader(deviceInfoSetSDRWhiteLevel, unsafe.Sizeof(pkt))
	pkt.Level = level
	pkt.Final = 1
	if err := setDeviceInfo(unsafe.Pointer(&pkt)); err != nil {
		return fmt.Errorf("failed to set SDR white level: %w", err)
	}
	return nil
}
