//go:build windows

package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"

	"github.com/womp-app/womp/internal/layout"
)

const (
	enumCurrentSettings  = 0xFFFFFFFF
	enumRegistrySettings = 0xFFFFFFFE

	displayDeviceAttachedToDesktop = 0x00000001
	displayDevicePrimaryDevice     = 0x00000004
	displayDeviceMirroringDriver   = 0x00000008
	eddGetDeviceInterfaceName      = 0x00000001

	dmPosition           = 0x00000020
	dmDisplayOrientation = 0x00000080
	dmPelsWidth          = 0x00080000
	dmPelsHeight         = 0x00100000
	dmDisplayFrequency   = 0x00400000

	cdsUpdateRegistry = 0x00000001
	cdsTest           = 0x00000002
	cdsSetPrimary     = 0x00000010
	cdsNoReset        = 0x10000000

	dispChangeSuccessful = 0

	hwndBroadcast  = 0xFFFF
	wmSysCommand   = 0x0112
	scMonitorPower = 0xF170
	monitorOff     = 2

	spiGetDeskWallpaper = 0x0073
	spiSetDeskWallpaper = 0x0014
	spifUpdateIniFile   = 0x01
	spifSendChange      = 0x02
	maxPath             = 260

	desktopKeyPath  = `Control Panel\Desktop`
	iconSizeKeyPath = `Software\Microsoft\Windows\Shell\Bags\1\Desktop`
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procEnumDisplayDevicesW      = user32.NewProc("EnumDisplayDevicesW")
	procEnumDisplaySettingsExW   = user32.NewProc("EnumDisplaySettingsExW")
	procChangeDisplaySettingsExW = user32.NewProc("ChangeDisplaySettingsExW")
	procPostMessageW             = user32.NewProc("PostMessageW")
	procSystemParametersInfoW    = user32.NewProc("SystemParametersInfoW")
)

// displayDevice mirrors DISPLAY_DEVICEW.
type displayDevice struct {
	Cb           uint32
	DeviceName   [32]uint16
	DeviceString [128]uint16
	StateFlags   uint32
	DeviceID     [128]uint16
	DeviceKey    [128]uint16
}

// devMode mirrors DEVMODEW with the display variant of its unions.
type devMode struct {
	DeviceName         [32]uint16
	SpecVersion        uint16
	DriverVersion      uint16
	Size               uint16
	DriverExtra        uint16
	Fields             uint32
	PositionX          int32
	PositionY          int32
	DisplayOrientation uint32
	DisplayFixedOutput uint32
	Color              int16
	Duplex             int16
	YResolution        int16
	TTOption           int16
	Collate            int16
	FormName           [32]uint16
	LogPixels          uint16
	BitsPerPel         uint32
	PelsWidth          uint32
	PelsHeight         uint32
	DisplayFlags       uint32
	DisplayFrequency   uint32
	ICMMethod          uint32
	ICMIntent          uint32
	MediaType          uint32
	DitherType         uint32
	Reserved1          uint32
	Reserved2          uint32
	PanningWidth       uint32
	PanningHeight      uint32
}

// adapter is one GDI display output with a monitor attached. id is the
// monitor's device interface path, which survives replugging; name is the
// \\.\DISPLAYn handle GDI assigns for this session.
type adapter struct {
	id       string
	name     string
	monitor  string
	attached bool
	primary  bool
	mode     devMode
}

// WindowsBackend drives displays through the GDI display settings API.
type WindowsBackend struct {
	mu     sync.Mutex
	logger *zap.Logger
}

var _ Backend = (*WindowsBackend)(nil)

// New returns the backend for this platform.
func New(logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := procChangeDisplaySettingsExW.Find(); err != nil {
		return nil, fmt.Errorf("display settings API unavailable: %w", err)
	}
	return &WindowsBackend{logger: logger}, nil
}

func enumAdapters() ([]adapter, error) {
	var adapters []adapter
	for i := 0; ; i++ {
		var dd displayDevice
		dd.Cb = uint32(unsafe.Sizeof(dd))
		r, _, _ := procEnumDisplayDevicesW.Call(0, uintptr(i), uintptr(unsafe.Pointer(&dd)), 0)
		if r == 0 {
			break
		}
		if dd.StateFlags&displayDeviceMirroringDriver != 0 {
			continue
		}

		name := windows.UTF16ToString(dd.DeviceName[:])
		namePtr, err := windows.UTF16PtrFromString(name)
		if err != nil {
			return nil, err
		}

		var mon displayDevice
		mon.Cb = uint32(unsafe.Sizeof(mon))
		r, _, _ = procEnumDisplayDevicesW.Call(uintptr(unsafe.Pointer(namePtr)), 0, uintptr(unsafe.Pointer(&mon)), eddGetDeviceInterfaceName)
		if r == 0 {
			// No monitor on this adapter output.
			continue
		}

		a := adapter{
			id:       displayKey(windows.UTF16ToString(mon.DeviceID[:]), name),
			name:     name,
			monitor:  windows.UTF16ToString(mon.DeviceString[:]),
			attached: dd.StateFlags&displayDeviceAttachedToDesktop != 0,
			primary:  dd.StateFlags&displayDevicePrimaryDevice != 0,
		}
		a.mode.Size = uint16(unsafe.Sizeof(a.mode))
		which := uintptr(enumCurrentSettings)
		if !a.attached {
			which = enumRegistrySettings
		}
		r, _, _ = procEnumDisplaySettingsExW.Call(uintptr(unsafe.Pointer(namePtr)), which, uintptr(unsafe.Pointer(&a.mode)), 0)
		if r == 0 {
			continue
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

func orientationDegrees(o uint32) int {
	return int(o%4) * 90
}

func displayKey(interfacePath, gdiName string) string {
	if interfacePath != "" {
		return interfacePath
	}
	return gdiName
}

// findAdapter resolves a layout display ID. GDI names are accepted as well
// so layouts saved before a stable ID was available still resolve.
func findAdapter(adapters []adapter, id string) (adapter, bool) {
	for _, a := range adapters {
		if a.id == id {
			return a, true
		}
	}
	for _, a := range adapters {
		if a.name == id {
			return a, true
		}
	}
	return adapter{}, false
}

// ReadLayout enumerates attached and detached monitors.
func (b *WindowsBackend) ReadLayout(ctx context.Context) (layout.Layout, error) {
	b.mu.Lock()
	adapters, err := enumAdapters()
	b.mu.Unlock()
	if err != nil {
		return layout.Layout{}, err
	}

	paths, err := queryActivePaths()
	if err != nil {
		b.logger.Debug("display paths unavailable", zap.Error(err))
	}

	var out layout.Layout
	for _, a := range adapters {
		rotation := orientationDegrees(a.mode.DisplayOrientation)
		width, height := int(a.mode.PelsWidth), int(a.mode.PelsHeight)
		if rotation == 90 || rotation == 270 {
			width, height = height, width
		}
		d := layout.Display{
			ID:             a.id,
			Name:           a.monitor,
			Enabled:        a.attached && width > 0 && height > 0,
			Primary:        a.primary,
			X:              int(a.mode.PositionX),
			Y:              int(a.mode.PositionY),
			Width:          width,
			Height:         height,
			RefreshMilliHz: int(a.mode.DisplayFrequency) * 1000,
			Rotation:       rotation,
		}
		if p, ok := pathByGDIName(paths, a.name); ok && d.Enabled {
			b.readColorAndScale(p, &d)
		}
		out.Displays = append(out.Displays, d)
	}

	if size, err := readIconSize(); err == nil {
		out.IconSize = &size
	} else {
		b.logger.Debug("icon size unavailable", zap.Error(err))
	}
	if wp, err := readWallpaper(); err == nil {
		out.Wallpaper = &wp
	} else {
		b.logger.Debug("wallpaper unavailable", zap.Error(err))
	}
	if dev, err := readDefaultAudioOutput(); err == nil {
		out.AudioOutput = &dev
	} else {
		b.logger.Debug("audio output unavailable", zap.Error(err))
	}
	return out, nil
}

// readColorAndScale fills the per-display fields read through the display
// configuration API. The SDR white level only exists while HDR is on.
func (b *WindowsBackend) readColorAndScale(p ccdPath, d *layout.Display) {
	log := b.logger.With(zap.String("display", d.ID))
	if scale, _, err := readDPIScale(p); err == nil {
		d.DPIScale = &scale
	} else {
		log.Debug("DPI scale unavailable", zap.Error(err))
	}

	supported, enabled, err := readAdvancedColor(p)
	if err != nil {
		log.Debug("HDR state unavailable", zap.Error(err))
		return
	}
	d.HDRSupported = supported
	if !supported {
		return
	}
	d.HDREnabled = &enabled
	if !enabled {
		return
	}
	if nits, err := readSDRWhiteLevel(p); err == nil {
		d.SDRWhiteLevel = &nits
	} else {
		log.Debug("SDR white level unavailable", zap.Error(err))
	}
}

// stagedMode is the DEVMODE and ChangeDisplaySettingsEx flags for one
// adapter.
type stagedMode struct {
	adapter adapter
	dm      devMode
	flags   uint32
	enabled bool
}

// stage builds the DEVMODE for every adapter named in l. Windows places the
// primary display at the origin, so positions are shifted accordingly.
func stage(adapters []adapter, l layout.Layout) ([]stagedMode, error) {
	if err := layout.Validate(l); err != nil {
		return nil, err
	}

	offsetX, offsetY := 0, 0
	for _, d := range l.Enabled() {
		if d.Primary {
			offsetX, offsetY = d.X, d.Y
		}
	}

	var out []stagedMode
	for _, d := range l.Displays {
		a, ok := findAdapter(adapters, d.ID)
		if !ok {
			if d.Enabled {
				return nil, fmt.Errorf("%w: %s", ErrOutputMissing, d.ID)
			}
			continue
		}

		dm := a.mode
		dm.Size = uint16(unsafe.Sizeof(dm))
		dm.DriverExtra = 0
		dm.Fields = dmPosition | dmPelsWidth | dmPelsHeight
		f := uint32(cdsUpdateRegistry | cdsNoReset)

		if d.Enabled {
			width, height := d.Width, d.Height
			if d.Rotation == 90 || d.Rotation == 270 {
				width, height = height, width
			}
			dm.PositionX = int32(d.X - offsetX)
			dm.PositionY = int32(d.Y - offsetY)
			dm.PelsWidth = uint32(width)
			dm.PelsHeight = uint32(height)
			dm.DisplayOrientation = uint32(d.Rotation / 90)
			dm.Fields |= dmDisplayOrientation
			if d.RefreshMilliHz > 0 {
				dm.DisplayFrequency = uint32((d.RefreshMilliHz + 500) / 1000)
				dm.Fields |= dmDisplayFrequency
			}
			if d.Primary {
				f |= cdsSetPrimary
			}
		} else {
			dm.PositionX, dm.PositionY = 0, 0
			dm.PelsWidth, dm.PelsHeight = 0, 0
		}
		out = append(out, stagedMode{adapter: a, dm: dm, flags: f, enabled: d.Enabled})
	}
	return out, nil
}

func changeSettings(name string, dm *devMode, flags uint32) error {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return err
	}
	r, _, _ := procChangeDisplaySettingsExW.Call(uintptr(unsafe.Pointer(namePtr)), uintptr(unsafe.Pointer(dm)), 0, uintptr(flags), 0)
	if code := int32(r); code != dispChangeSuccessful {
		return fmt.Errorf("ChangeDisplaySettingsEx(%s) returned %d", name, code)
	}
	return nil
}

// commitStaged publishes every registry-staged change in one mode set.
func commitStaged() error {
	r, _, _ := procChangeDisplaySettingsExW.Call(0, 0, 0, 0, 0)
	if code := int32(r); code != dispChangeSuccessful {
		return fmt.Errorf("ChangeDisplaySettingsEx commit returned %d", code)
	}
	return nil
}

// Validate tests each enabled display's mode with CDS_TEST.
func (b *WindowsBackend) Validate(_ context.Context, l layout.Layout) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	adapters, err := enumAdapters()
	if err != nil {
		return err
	}
	modes, err := stage(adapters, l)
	if err != nil {
		return err
	}
	for _, m := range modes {
		if !m.enabled {
			continue
		}
		if err := changeSettings(m.adapter.name, &m.dm, cdsTest); err != nil {
			return fmt.Errorf("mode test failed: %w", err)
		}
	}
	return nil
}

// ApplyTopology stages every display in the registry with CDS_NORESET and
// then commits them together. If staging fails the previous settings are
// staged back before returning.
func (b *WindowsBackend) ApplyTopology(_ context.Context, l layout.Layout) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	adapters, err := enumAdapters()
	if err != nil {
		return err
	}
	modes, err := stage(adapters, l)
	if err != nil {
		return err
	}

	var staged []adapter
	for _, m := range modes {
		if err := changeSettings(m.adapter.name, &m.dm, m.flags); err != nil {
			b.restore(staged)
			return err
		}
		staged = append(staged, m.adapter)
	}
	return commitStaged()
}

func (b *WindowsBackend) restore(staged []adapter) {
	for _, a := range staged {
		dm := a.mode
		dm.Fields = dmPosition | dmPelsWidth | dmPelsHeight | dmDisplayOrientation | dmDisplayFrequency
		f := uint32(cdsUpdateRegistry | cdsNoReset)
		if a.primary {
			f |= cdsSetPrimary
		}
		if err := changeSettings(a.name, &dm, f); err != nil {
			b.logger.Warn("failed to restore display settings", zap.String("display", a.name), zap.Error(err))
		}
	}
	if len(staged) > 0 {
		if err := commitStaged(); err != nil {
			b.logger.Warn("failed to commit restored display settings", zap.Error(err))
		}
	}
}

// PowerOff asks every monitor to enter power saving.
func (b *WindowsBackend) PowerOff(context.Context) error {
	r, _, err := procPostMessageW.Call(hwndBroadcast, wmSysCommand, scMonitorPower, monitorOff)
	if r == 0 {
		return fmt.Errorf("PostMessage(SC_MONITORPOWER) failed: %w", err)
	}
	return nil
}

// activePath finds the display configuration path currently driving the
// display with the given layout ID.
func (b *WindowsBackend) activePath(displayID string) (ccdPath, error) {
	adapters, err := enumAdapters()
	if err != nil {
		return ccdPath{}, err
	}
	a, ok := findAdapter(adapters, displayID)
	if !ok {
		return ccdPath{}, fmt.Errorf("%w: %s", ErrOutputMissing, displayID)
	}
	paths, err := queryActivePaths()
	if err != nil {
		return ccdPath{}, err
	}
	p, ok := pathByGDIName(paths, a.name)
	if !ok {
		return ccdPath{}, fmt.Errorf("display %s is not active", displayID)
	}
	return p, nil
}

func (b *WindowsBackend) SetDPIScale(_ context.Context, displayID string, percent int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, err := b.activePath(displayID)
	if err != nil {
		return err
	}
	return writeDPIScale(p, percent)
}

// SetHDR is a no-op when the display is already in the requested state.
func (b *WindowsBackend) SetHDR(_ context.Context, displayID string, enabled bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, err := b.activePath(displayID)
	if err != nil {
		return err
	}
	supported, current, err := readAdvancedColor(p)
	if err != nil {
		return err
	}
	if !supported {
		return fmt.Errorf("%w: %s has no HDR support", ErrUnsupported, displayID)
	}
	if current == enabled {
		return nil
	}
	return writeAdvancedColor(p, enabled)
}

// SetSDRWhiteLevel requires HDR to be on; the level has no effect
// otherwise and the driver rejects it.
func (b *WindowsBackend) SetSDRWhiteLevel(_ context.Context, displayID string, nits int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, err := b.activePath(displayID)
	if err != nil {
		return err
	}
	supported, enabled, err := readAdvancedColor(p)
	if err != nil {
		return err
	}
	if !supported || !enabled {
		return fmt.Errorf("HDR is not enabled on %s", displayID)
	}
	return writeSDRWhiteLevel(p, nits)
}

// SetAudioOutput switches the default render endpoint. device is the
// endpoint ID reported by ReadLayout.
func (b *WindowsBackend) SetAudioOutput(_ context.Context, device string) error {
	return writeDefaultAudioOutput(device)
}

// SetIconSize stores the desktop icon size; Explorer picks it up the next
// time it reloads the desktop view.
func (b *WindowsBackend) SetIconSize(_ context.Context, size int) error {
	key, _, err := registry.CreateKey(registry.CURRENT_USER, iconSizeKeyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to open icon size key: %w", err)
	}
	defer key.Close()
	return key.SetDWordValue("IconSize", uint32(size))
}

func readIconSize() (int, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, iconSizeKeyPath, registry.QUERY_VALUE)
	if err != nil {
		return 0, err
	}
	defer key.Close()
	v, _, err := key.GetIntegerValue("IconSize")
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

var wallpaperStyles = map[layout.WallpaperPosition]string{
	layout.WallpaperCenter:  "0",
	layout.WallpaperTile:    "0",
	layout.WallpaperStretch: "2",
	layout.WallpaperFit:     "6",
	layout.WallpaperFill:    "10",
	layout.WallpaperSpan:    "22",
}

func readWallpaper() (layout.Wallpaper, error) {
	buf := make([]uint16, maxPath)
	r, _, err := procSystemParametersInfoW.Call(spiGetDeskWallpaper, maxPath, uintptr(unsafe.Pointer(&buf[0])), 0)
	if r == 0 {
		return layout.Wallpaper{}, fmt.Errorf("SystemParametersInfo(SPI_GETDESKWALLPAPER) failed: %w", err)
	}
	wp := layout.Wallpaper{Path: windows.UTF16ToString(buf), Position: layout.WallpaperFill}

	key, err := registry.OpenKey(registry.CURRENT_USER, desktopKeyPath, registry.QUERY_VALUE)
	if err != nil {
		return wp, nil
	}
	defer key.Close()

	style, _, _ := key.GetStringValue("WallpaperStyle")
	tile, _, _ := key.GetStringValue("TileWallpaper")
	if tile == "1" {
		wp.Position = layout.WallpaperTile
		return wp, nil
	}
	for pos, s := range wallpaperStyles {
		if s == style && pos != layout.WallpaperTile {
			wp.Position = pos
			break
		}
	}
	return wp, nil
}

// SetWallpaper writes the style keys first so the change notification picks
// them up together with the image.
func (b *WindowsBackend) SetWallpaper(_ context.Context, wp layout.Wallpaper) error {
	style, ok := wallpaperStyles[wp.Position]
	if !ok {
		return fmt.Errorf("unknown wallpaper position %q", wp.Position)
	}

	key, err := registry.OpenKey(registry.CURRENT_USER, desktopKeyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to open desktop key: %w", err)
	}
	tile := "0"
	if wp.Position == layout.WallpaperTile {
		tile = "1"
	}
	err = errors.Join(key.SetStringValue("WallpaperStyle", style), key.SetStringValue("TileWallpaper", tile))
	key.Close()
	if err != nil {
		return fmt.Errorf("failed to write wallpaper style: %w", err)
	}

	path, err := windows.UTF16PtrFromString(wp.Path)
	if err != nil {
		return err
	}
	r, _, callErr := procSystemParametersInfoW.Call(spiSetDeskWallpaper, 0, uintptr(unsafe.Pointer(path)), spifUpdateIniFile|spifSendChange)
	if r == 0 {
		return fmt.Errorf("SystemParametersInfo(SPI_SETDESKWALLPAPER) failed: %w", callErr)
	}
	return nil
}
