package x11

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
)

// ErrMissingOutput is returned when a plan names an output that is not
// connected.
var ErrMissingOutput = errors.New("output not connected")

// ErrNoMode is returned when no mode of an output matches the request.
var ErrNoMode = errors.New("no matching mode")

// OutputConfig is the desired state of one output.
type OutputConfig struct {
	Name           string
	Enabled        bool
	Primary        bool
	X              int
	Y              int
	Width          int
	Height         int
	RefreshMilliHz int
	Rotation       int
}

// crtcConfig is the full state of one CRTC. A zero mode means disabled.
type crtcConfig struct {
	crtc     randr.Crtc
	mode     randr.Mode
	x, y     int
	rotation uint16
	outputs  []randr.Output
}

// Plan is a validated set of CRTC assignments ready to commit. It also keeps
// the state it replaces so a failed commit can be undone.
type Plan struct {
	assignments  []crtcConfig
	disable      []randr.Crtc
	primary      randr.Output
	screenWidth  int
	screenHeight int
	timestamp    xproto.Timestamp

	before        []crtcConfig
	beforeWidth   int
	beforeHeight  int
	beforePrimary randr.Output
}

// PlanOutputs resolves configs against snap: every enabled config gets a mode
// and a free CRTC. Outputs not mentioned keep their state.
func PlanOutputs(snap *Snapshot, configs []OutputConfig, screenWidth, screenHeight int) (*Plan, error) {
	plan := &Plan{
		screenWidth:   screenWidth,
		screenHeight:  screenHeight,
		timestamp:     snap.ConfigTimestamp,
		beforeWidth:   snap.ScreenWidth,
		beforeHeight:  snap.ScreenHeight,
		beforePrimary: snap.Primary,
	}

	used := make(map[randr.Crtc]bool)
	touched := make(map[randr.Output]bool)

	for _, cfg := range configs {
		out, ok := snap.Output(cfg.Name)
		if !ok || !out.Connected {
			if !cfg.Enabled {
				continue
			}
			return nil, fmt.Errorf("%w: %s", ErrMissingOutput, cfg.Name)
		}
		touched[out.ID] = true
		if !cfg.Enabled {
			continue
		}

		mode, err := pickMode(snap, out, cfg.Width, cfg.Height, cfg.RefreshMilliHz)
		if err != nil {
			return nil, err
		}
		crtc, err := pickCrtc(out, used)
		if err != nil {
			return nil, err
		}
		used[crtc] = true

		plan.assignments = append(plan.assignments, crtcConfig{
			crtc:     crtc,
			mode:     mode,
			x:        cfg.X,
			y:        cfg.Y,
			rotation: rotationBits(cfg.Rotation),
			outputs:  []randr.Output{out.ID},
		})
		if cfg.Primary {
			plan.primary = out.ID
		}
	}

	// Every lit CRTC driving a touched output is switched off first so
	// that outputs can move between CRTCs and the screen can shrink.
	for crtc, info := range snap.Crtcs {
		if info.Mode == 0 || len(info.Outputs) == 0 {
			continue
		}
		for _, o := range info.Outputs {
			if touched[o] || used[crtc] {
				plan.disable = append(plan.disable, crtc)
				break
			}
		}
	}
	sort.Slice(plan.disable, func(i, j int) bool { return plan.disable[i] < plan.disable[j] })

	for _, crtc := range plan.touchedCrtcs() {
		info, ok := snap.Crtcs[crtc]
		if !ok {
			continue
		}
		plan.before = append(plan.before, crtcConfig{
			crtc:     crtc,
			mode:     info.Mode,
			x:        int(info.X),
			y:        int(info.Y),
			rotation: info.Rotation,
			outputs:  append([]randr.Output(nil), info.Outputs...),
		})
	}

	return plan, nil
}

// touchedCrtcs returns every CRTC the plan disables or configures, sorted.
func (p *Plan) touchedCrtcs() []randr.Crtc {
	seen := make(map[randr.Crtc]bool)
	var out []randr.Crtc
	add := func(c randr.Crtc) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, c := range p.disable {
		add(c)
	}
	for _, a := range p.assignments {
		add(a.crtc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// The current CRTC is preferred so that unchanged outputs keep their
// pipeline.
func pickCrtc(out Output, used map[randr.Crtc]bool) (randr.Crtc, error) {
	if out.Crtc != 0 && !used[out.Crtc] {
		return out.Crtc, nil
	}
	for _, crtc := range out.PossibleCrtcs {
		if !used[crtc] {
			return crtc, nil
		}
	}
	return 0, fmt.Errorf("no free crtc for output %s", out.Name)
}

func pickMode(snap *Snapshot, out Output, width, height, refresh int) (randr.Mode, error) {
	var best randr.Mode
	bestDelta := -1
	for _, id := range out.Modes {
		info, ok := snap.Modes[id]
		if !ok || int(info.Width) != width || int(info.Height) != height {
			continue
		}
		delta := 0
		if refresh > 0 {
			delta = refreshMilliHz(info) - refresh
			if delta < 0 {
				delta = -delta
			}
		}
		if bestDelta < 0 || delta < bestDelta {
			best, bestDelta = id, delta
		}
	}
	if bestDelta < 0 {
		return 0, fmt.Errorf("%w: %s has no %dx%d mode", ErrNoMode, out.Name, width, height)
	}
	return best, nil
}

// CheckScreenSize verifies the plan fits the server's screen size range.
func (c *Connection) CheckScreenSize(plan *Plan) error {
	rng, err := randr.GetScreenSizeRange(c.Conn(), c.Root).Reply()
	if err != nil {
		return fmt.Errorf("failed to get screen size range: %w", err)
	}
	if plan.screenWidth > int(rng.MaxWidth) || plan.screenHeight > int(rng.MaxHeight) {
		return fmt.Errorf("screen %dx%d exceeds maximum %dx%d",
			plan.screenWidth, plan.screenHeight, rng.MaxWidth, rng.MaxHeight)
	}
	if plan.screenWidth < int(rng.MinWidth) || plan.screenHeight < int(rng.MinHeight) {
		return fmt.Errorf("screen %dx%d below minimum %dx%d",
			plan.screenWidth, plan.screenHeight, rng.MinWidth, rng.MinHeight)
	}
	return nil
}

// Commit applies plan with the server grabbed, so other clients only ever
// see the configuration before or after the change. When a step fails the
// CRTCs, screen size and primary output from the snapshot the plan was built
// on are put back before the grab is released.
func (c *Connection) Commit(plan *Plan) error {
	conn := c.Conn()

	if err := xproto.GrabServerChecked(conn).Check(); err != nil {
		return fmt.Errorf("failed to grab server: %w", err)
	}
	defer xproto.UngrabServer(conn)

	return commit(serverDriver{conn: conn, root: c.Root}, plan)
}

// crtcDriver issues the RandR requests of a commit.
type crtcDriver interface {
	SetCrtc(c crtcConfig, configTimestamp xproto.Timestamp) error
	SetScreenSize(width, height int) error
	SetPrimary(out randr.Output) error
}

func commit(d crtcDriver, plan *Plan) error {
	err := applyPlan(d, plan)
	if err == nil {
		return nil
	}
	if rbErr := rollback(d, plan); rbErr != nil {
		return fmt.Errorf("%w; restoring the previous configuration failed: %v", err, rbErr)
	}
	return err
}

func applyPlan(d crtcDriver, plan *Plan) error {
	for _, crtc := range plan.disable {
		if err := d.SetCrtc(crtcConfig{crtc: crtc}, plan.timestamp); err != nil {
			return fmt.Errorf("failed to disable crtc %d: %w", crtc, err)
		}
	}
	if err := d.SetScreenSize(plan.screenWidth, plan.screenHeight); err != nil {
		return fmt.Errorf("failed to set screen size: %w", err)
	}
	for _, a := range plan.assignments {
		if err := d.SetCrtc(a, plan.timestamp); err != nil {
			return fmt.Errorf("failed to configure crtc %d: %w", a.crtc, err)
		}
	}
	if plan.primary != 0 {
		if err := d.SetPrimary(plan.primary); err != nil {
			return fmt.Errorf("failed to set primary output: %w", err)
		}
	}
	return nil
}

// rollback keeps going past failures so as much as possible is restored.
func rollback(d crtcDriver, plan *Plan) error {
	var errs []error
	for _, crtc := range plan.touchedCrtcs() {
		if err := d.SetCrtc(crtcConfig{crtc: crtc}, plan.timestamp); err != nil {
			errs = append(errs, fmt.Errorf("disable crtc %d: %w", crtc, err))
		}
	}
	if plan.beforeWidth > 0 && plan.beforeHeight > 0 {
		if err := d.SetScreenSize(plan.beforeWidth, plan.beforeHeight); err != nil {
			errs = append(errs, fmt.Errorf("screen size: %w", err))
		}
	}
	for _, c := range plan.before {
		if c.mode == 0 || len(c.outputs) == 0 {
			continue
		}
		if err := d.SetCrtc(c, plan.timestamp); err != nil {
			errs = append(errs, fmt.Errorf("crtc %d: %w", c.crtc, err))
		}
	}
	if plan.beforePrimary != 0 {
		if err := d.SetPrimary(plan.beforePrimary); err != nil {
			errs = append(errs, fmt.Errorf("primary output: %w", err))
		}
	}
	return errors.Join(errs...)
}

type serverDriver struct {
	conn *xgb.Conn
	root xproto.Window
}

func (d serverDriver) SetCrtc(c crtcConfig, configTimestamp xproto.Timestamp) error {
	rotation := c.rotation
	if rotation == 0 {
		rotation = randr.RotationRotate0
	}
	reply, err := randr.SetCrtcConfig(d.conn, c.crtc, xproto.TimeCurrentTime, configTimestamp,
		int16(c.x), int16(c.y), c.mode, rotation, c.outputs).Reply()
	if err != nil {
		return err
	}
	if reply.Status != randr.SetConfigSuccess {
		return fmt.Errorf("status %d", reply.Status)
	}
	return nil
}

func (d serverDriver) SetScreenSize(width, height int) error {
	mmWidth := uint32(float64(width) * 25.4 / 96)
	mmHeight := uint32(float64(height) * 25.4 / 96)
	return randr.SetScreenSizeChecked(d.conn, d.root, uint16(width), uint16(height),
		mmWidth, mmHeight).Check()
}

func (d serverDriver) SetPrimary(out randr.Output) error {
	return randr.SetOutputPrimaryChecked(d.conn, d.root, out).Check()
}
