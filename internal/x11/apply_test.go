package x11

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
)

const (
	dp1   randr.Output = 10
	hdmi1 randr.Output = 11

	crtcA randr.Crtc = 100
	crtcB randr.Crtc = 101

	mode1440 randr.Mode = 2
	mode1080 randr.Mode = 1
)

// dualSnapshot has DP-1 (2560x1440, primary) left of HDMI-1 (1920x1080).
func dualSnapshot() *Snapshot {
	return &Snapshot{
		Outputs: []Output{
			{ID: dp1, Name: "DP-1", Connected: true, Primary: true, Crtc: crtcA,
				Width: 2560, Height: 1440, Modes: []randr.Mode{mode1440}, PossibleCrtcs: []randr.Crtc{crtcA, crtcB}},
			{ID: hdmi1, Name: "HDMI-1", Connected: true, Crtc: crtcB, X: 2560,
				Width: 1920, Height: 1080, Modes: []randr.Mode{mode1080}, PossibleCrtcs: []randr.Crtc{crtcA, crtcB}},
		},
		Modes: map[randr.Mode]randr.ModeInfo{
			mode1440: {Id: uint32(mode1440), Width: 2560, Height: 1440, DotClock: 241500000, Htotal: 2720, Vtotal: 1481},
			mode1080: {Id: uint32(mode1080), Width: 1920, Height: 1080, DotClock: 148500000, Htotal: 2200, Vtotal: 1125},
		},
		Crtcs: map[randr.Crtc]*randr.GetCrtcInfoReply{
			crtcA: {Mode: mode1440, Width: 2560, Height: 1440, Rotation: randr.RotationRotate0, Outputs: []randr.Output{dp1}},
			crtcB: {Mode: mode1080, X: 2560, Width: 1920, Height: 1080, Rotation: randr.RotationRotate0, Outputs: []randr.Output{hdmi1}},
		},
		Primary:      dp1,
		ScreenWidth:  4480,
		ScreenHeight: 1440,
	}
}

// swapped puts HDMI-1 on the left and makes it primary.
func swapped() []OutputConfig {
	return []OutputConfig{
		{Name: "HDMI-1", Enabled: true, Primary: true, Width: 1920, Height: 1080, RefreshMilliHz: 60000},
		{Name: "DP-1", Enabled: true, X: 1920, Width: 2560, Height: 1440},
	}
}

// fakeDriver keeps server state in memory. fail is consulted before every
// request and can reject it.
type fakeDriver struct {
	crtcs   map[randr.Crtc]crtcConfig
	width   int
	height  int
	primary randr.Output
	calls   []string
	fail    func(call string) error
}

func newFakeDriver(snap *Snapshot) *fakeDriver {
	d := &fakeDriver{
		crtcs:   make(map[randr.Crtc]crtcConfig),
		width:   snap.ScreenWidth,
		height:  snap.ScreenHeight,
		primary: snap.Primary,
	}
	for id, info := range snap.Crtcs {
		d.crtcs[id] = crtcConfig{crtc: id, mode: info.Mode, x: int(info.X), y: int(info.Y),
			rotation: info.Rotation, outputs: append([]randr.Output(nil), info.Outputs...)}
	}
	return d
}

func (d *fakeDriver) do(call string) error {
	d.calls = append(d.calls, call)
	if d.fail != nil {
		return d.fail(call)
	}
	return nil
}

func (d *fakeDriver) SetCrtc(c crtcConfig, _ xproto.Timestamp) error {
	if err := d.do(fmt.Sprintf("crtc %d mode %d", c.crtc, c.mode)); err != nil {
		return err
	}
	if c.mode == 0 {
		d.crtcs[c.crtc] = crtcConfig{crtc: c.crtc}
		return nil
	}
	d.crtcs[c.crtc] = c
	return nil
}

func (d *fakeDriver) SetScreenSize(width, height int) error {
	if err := d.do(fmt.Sprintf("screen %dx%d", width, height)); err != nil {
		return err
	}
	d.width, d.height = width, height
	return nil
}

func (d *fakeDriver) SetPrimary(out randr.Output) error {
	if err := d.do(fmt.Sprintf("primary %d", out)); err != nil {
		return err
	}
	d.primary = out
	return nil
}

// failOnce rejects the first request named call.
func failOnce(call string) func(string) error {
	done := false
	return func(c string) error {
		if c == call && !done {
			done = true
			return errors.New("status 2")
		}
		return nil
	}
}

func TestPlanOutputs_RecordsPreviousState(t *testing.T) {
	snap := dualSnapshot()
	plan, err := PlanOutputs(snap, swapped(), 4480, 1440)
	if err != nil {
		t.Fatalf("PlanOutputs: %v", err)
	}
	if got := plan.touchedCrtcs(); !reflect.DeepEqual(got, []randr.Crtc{crtcA, crtcB}) {
		t.Fatalf("touched = %v", got)
	}
	if len(plan.before) != 2 || plan.before[1].x != 2560 || plan.before[1].outputs[0] != hdmi1 {
		t.Fatalf("before = %+v", plan.before)
	}
	if plan.beforeWidth != 4480 || plan.beforePrimary != dp1 {
		t.Fatalf("before screen %dx%d primary %d", plan.beforeWidth, plan.beforeHeight, plan.beforePrimary)
	}
}

func TestPlanOutputs_MissingOutput(t *testing.T) {
	configs := append(swapped(), OutputConfig{Name: "DP-2", Enabled: true, Width: 1920, Height: 1080})
	if _, err := PlanOutputs(dualSnapshot(), configs, 6400, 1440); !errors.Is(err, ErrMissingOutput) {
		t.Fatalf("err = %v, want ErrMissingOutput", err)
	}
}

func TestCommit_Success(t *testing.T) {
	snap := dualSnapshot()
	plan, err := PlanOutputs(snap, swapped(), 4480, 1440)
	if err != nil {
		t.Fatalf("PlanOutputs: %v", err)
	}
	d := newFakeDriver(snap)

	if err := commit(d, plan); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := d.crtcs[crtcB]; got.mode != mode1080 || got.x != 0 {
		t.Fatalf("HDMI-1 crtc = %+v", got)
	}
	if got := d.crtcs[crtcA]; got.mode != mode1440 || got.x != 1920 {
		t.Fatalf("DP-1 crtc = %+v", got)
	}
	if d.primary != hdmi1 {
		t.Fatalf("primary = %d", d.primary)
	}
}

func TestCommit_FailureRestoresSnapshot(t *testing.T) {
	tests := []struct {
		name   string
		failAt string
	}{
		{"screen size", "screen 4480x1440"},
		{"second crtc", fmt.Sprintf("crtc %d mode %d", crtcA, mode1440)},
		{"primary", fmt.Sprintf("primary %d", hdmi1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := dualSnapshot()
			plan, err := PlanOutputs(snap, swapped(), 4480, 1440)
			if err != nil {
				t.Fatalf("PlanOutputs: %v", err)
			}
			d := newFakeDriver(snap)
			want := newFakeDriver(snap)
			d.fail = failOnce(tt.failAt)

			err = commit(d, plan)
			if err == nil {
				t.Fatal("commit succeeded")
			}
			if strings.Contains(err.Error(), "restoring") {
				t.Fatalf("rollback reported a failure: %v", err)
			}
			if !reflect.DeepEqual(d.crtcs, want.crtcs) {
				t.Fatalf("crtcs not restored\n got: %+v\nwant: %+v", d.crtcs, want.crtcs)
			}
			if d.width != want.width || d.height != want.height || d.primary != want.primary {
				t.Fatalf("screen %dx%d primary %d, want %dx%d primary %d",
					d.width, d.height, d.primary, want.width, want.height, want.primary)
			}
		})
	}
}

func TestCommit_ReportsFailedRollback(t *testing.T) {
	snap := dualSnapshot()
	plan, err := PlanOutputs(snap, swapped(), 4480, 1440)
	if err != nil {
		t.Fatalf("PlanOutputs: %v", err)
	}
	d := newFakeDriver(snap)
	d.fail = func(call string) error {
		if strings.HasPrefix(call, "screen ") {
			return errors.New("bad size")
		}
		return nil
	}

	err = commit(d, plan)
	if err == nil || !strings.Contains(err.Error(), "failed to set screen size") ||
		!strings.Contains(err.Error(), "restoring the previous configuration failed") {
		t.Fatalf("err = %v", err)
	}
	// The CRTCs are back even though the screen size could not be reset.
	if got := d.crtcs[crtcB]; got.mode != mode1080 || got.x != 2560 {
		t.Fatalf("HDMI-1 crtc = %+v", got)
	}
}
