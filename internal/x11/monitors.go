package x11

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
)

// Output is a RandR output together with the CRTC state driving it.
type Output struct {
	ID        randr.Output
	Name      string
	Connected bool
	Primary   bool

	// Crtc is 0 when the output is not lit.
	Crtc           randr.Crtc
	X              int
	Y              int
	Width          int
	Height         int
	RefreshMilliHz int
	Rotation       int

	// Modes supported by the output and the CRTCs that can drive it.
	Modes         []randr.Mode
	PossibleCrtcs []randr.Crtc
	MmWidth       uint32
	MmHeight      uint32
}

// Enabled reports whether the output is currently lit.
func (o Output) Enabled() bool {
	return o.Crtc != 0 && o.Width > 0 && o.Height > 0
}

// Snapshot is a consistent view of the RandR configuration.
type Snapshot struct {
	Outputs         []Output
	Modes           map[randr.Mode]randr.ModeInfo
	Crtcs           map[randr.Crtc]*randr.GetCrtcInfoReply
	Primary         randr.Output
	ScreenWidth     int
	ScreenHeight    int
	ConfigTimestamp xproto.Timestamp
}

// Snapshot reads every output, mode and CRTC from the server.
func (c *Connection) Snapshot() (*Snapshot, error) {
	conn := c.Conn()

	resources, err := randr.GetScreenResources(conn, c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	snap := &Snapshot{
		Modes:           make(map[randr.Mode]randr.ModeInfo, len(resources.Modes)),
		Crtcs:           make(map[randr.Crtc]*randr.GetCrtcInfoReply, len(resources.Crtcs)),
		ConfigTimestamp: resources.ConfigTimestamp,
	}
	for _, mode := range resources.Modes {
		snap.Modes[randr.Mode(mode.Id)] = mode
	}

	for _, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(conn, crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			return nil, fmt.Errorf("failed to get crtc %d: %w", crtc, err)
		}
		snap.Crtcs[crtc] = info
	}

	var primary randr.Output
	if reply, err := randr.GetOutputPrimary(conn, c.Root).Reply(); err == nil {
		primary = reply.Output
	}
	snap.Primary = primary

	// The root window always spans the current screen.
	geom, err := xproto.GetGeometry(conn, xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen size: %w", err)
	}
	snap.ScreenWidth = int(geom.Width)
	snap.ScreenHeight = int(geom.Height)

	for _, id := range resources.Outputs {
		info, err := randr.GetOutputInfo(conn, id, resources.ConfigTimestamp).Reply()
		if err != nil {
			return nil, fmt.Errorf("failed to get output %d: %w", id, err)
		}

		out := Output{
			ID:            id,
			Name:          string(info.Name),
			Connected:     info.Connection == randr.ConnectionConnected,
			Primary:       id == primary,
			Modes:         info.Modes,
			PossibleCrtcs: info.Crtcs,
			MmWidth:       info.MmWidth,
			MmHeight:      info.MmHeight,
		}

		if crtcInfo, ok := snap.Crtcs[info.Crtc]; ok && info.Crtc != 0 && crtcInfo.Width > 0 && crtcInfo.Height > 0 {
			out.Crtc = info.Crtc
			out.X = int(crtcInfo.X)
			out.Y = int(crtcInfo.Y)
			out.Rotation = rotationDegrees(crtcInfo.Rotation)
			if mode, ok := snap.Modes[crtcInfo.Mode]; ok {
				// Width and height are reported unrotated, as in the mode.
				out.Width = int(mode.Width)
				out.Height = int(mode.Height)
				out.RefreshMilliHz = refreshMilliHz(mode)
			} else {
				out.Width = int(crtcInfo.Width)
				out.Height = int(crtcInfo.Height)
			}
		}

		snap.Outputs = append(snap.Outputs, out)
	}

	sort.Slice(snap.Outputs, func(i, j int) bool {
		return snap.Outputs[i].Name < snap.Outputs[j].Name
	})
	return snap, nil
}

// Output returns the output named name.
func (s *Snapshot) Output(name string) (Output, bool) {
	for _, o := range s.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return Output{}, false
}

func refreshMilliHz(mode randr.ModeInfo) int {
	if mode.Htotal == 0 || mode.Vtotal == 0 {
		return 0
	}
	vtotal := uint64(mode.Vtotal)
	if mode.ModeFlags&randr.ModeFlagDoubleScan != 0 {
		vtotal *= 2
	}
	if mode.ModeFlags&randr.ModeFlagInterlace != 0 {
		vtotal /= 2
	}
	return int(uint64(mode.DotClock) * 1000 / (uint64(mode.Htotal) * vtotal))
}

func rotationDegrees(rotation uint16) int {
	switch {
	case rotation&randr.RotationRotate90 != 0:
		return 90
	case rotation&randr.RotationRotate180 != 0:
		return 180
	case rotation&randr.RotationRotate270 != 0:
		return 270
	default:
		return 0
	}
}

func rotationBits(degrees int) uint16 {
	switch degrees {
	case 90:
		return randr.RotationRotate90
	case 180:
		return randr.RotationRotate180
	case 270:
		return randr.RotationRotate270
	default:
		return randr.RotationRotate0
	}
}
