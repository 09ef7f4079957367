// Package display applies, captures and cycles display profiles against the
// platform backend.
package display

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/womp-app/womp/internal/config"
	"github.com/womp-app/womp/internal/layout"
	"github.com/womp-app/womp/internal/platform"
	"github.com/womp-app/womp/internal/profile"
	"github.com/womp-app/womp/internal/womperr"
)

// ProfileSource is the read side of the profile store used by the engine.
type ProfileSource interface {
	Names() ([]string, error)
	ReadConfig(name string) (*profile.Config, error)
	ReadLayout(name string) (layout.Layout, error)
	Generation() uint64
}

// SettingsSource yields the current global config.
type SettingsSource interface {
	Get() config.GlobalConfig
}

type activeKey struct {
	fingerprint uint64
	generation  uint64
	exact       bool
}

const activeCacheSize = 64

// Engine serializes every change to the OS display state. Only one apply or
// power-off runs at a time; concurrent callers get womperr.ErrBusy.
type Engine struct {
	profiles ProfileSource
	backend  platform.Backend
	settings SettingsSource
	hooks    HookRunner
	logger   *zap.Logger

	applyMu sync.Mutex
	active  *lru.Cache[activeKey, string]
}

// Option configures an Engine.
type Option func(*Engine)

// WithHookRunner replaces the exec based hook runner.
func WithHookRunner(r HookRunner) Option {
	return func(e *Engine) { e.hooks = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine.
func New(profiles ProfileSource, backend platform.Backend, settings SettingsSource, opts ...Option) *Engine {
	cache, err := lru.New[activeKey, string](activeCacheSize)
	if err != nil {
		// Only possible for a non-positive size.
		panic(err)
	}
	e := &Engine{
		profiles: profiles,
		backend:  backend,
		settings: settings,
		hooks:    ExecHookRunner{},
		logger:   zap.NewNop(),
		active:   cache,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FieldsFrom selects the optional fields enabled in cfg.
func FieldsFrom(cfg config.GlobalConfig) layout.Fields {
	cfg = cfg.Normalize()
	return layout.Fields{
		DPIScale:      cfg.SaveDPIScale,
		IconSize:      cfg.SaveIconSize,
		HDRState:      cfg.SaveHDRState,
		SDRWhiteLevel: cfg.SaveSDRWhiteLevel,
		Wallpaper:     cfg.SaveWallpaperInfo,
		AudioOutput:   cfg.SaveAudioOutput,
	}
}

// Capture reads the live layout keeping only the optional fields enabled in
// the global config.
func (e *Engine) Capture(ctx context.Context) (layout.Layout, error) {
	live, err := e.backend.ReadLayout(ctx)
	if err != nil {
		return layout.Layout{}, fmt.Errorf("%w: failed to read display layout: %v", womperr.ErrLayoutUnavailable, err)
	}
	captured := live.Strip(FieldsFrom(e.settings.Get()))
	if len(captured.Enabled()) == 0 {
		return layout.Layout{}, fmt.Errorf("%w: no enabled displays", womperr.ErrLayoutUnavailable)
	}
	return captured, nil
}

// Result describes an apply. Applied is set once the topology was
// committed. Warnings lists optional fields that could not be applied and
// hooks that exited non-zero.
type Result struct {
	Profile  string
	Applied  bool
	Warnings []string
}

// Apply switches the live display configuration to profile name.
//
// Every check that can fail without side effects runs first: the profile
// must exist with a captured layout, every display it enables must be
// connected, and the backend must accept the arrangement. The before hook
// then runs, the topology is committed in one backend call, the optional
// fields follow, and finally the after hook runs. Failures after the commit
// do not roll the topology back.
func (e *Engine) Apply(ctx context.Context, name string) (Result, error) {
	if !e.applyMu.TryLock() {
		return Result{}, fmt.Errorf("%w: another layout change is in progress", womperr.ErrBusy)
	}
	defer e.applyMu.Unlock()

	res := Result{Profile: name}

	meta, err := e.profiles.ReadConfig(name)
	if err != nil {
		return res, err
	}
	want, err := e.profiles.ReadLayout(name)
	if err != nil {
		return res, err
	}

	live, err := e.backend.ReadLayout(ctx)
	if err != nil {
		return res, fmt.Errorf("%w: failed to read display layout: %v", womperr.ErrLayoutUnavailable, err)
	}
	if missing := layout.Missing(want, live); len(missing) > 0 {
		return res, fmt.Errorf("%w: displays not connected: %v", womperr.ErrLayoutUnavailable, missing)
	}
	if err := e.backend.Validate(ctx, want); err != nil {
		return res, fmt.Errorf("%w: %v", womperr.ErrLayoutUnavailable, err)
	}

	settings := e.settings.Get()
	runHooks := settings.RunCommands && meta != nil

	if runHooks && meta.Run.Before.Runnable() {
		if err := e.runHook(ctx, "before", *meta.Run.Before, &res); err != nil {
			return res, err
		}
	}

	if err := e.backend.ApplyTopology(ctx, want); err != nil {
		// A display unplugged since the checks above.
		if errors.Is(err, platform.ErrOutputMissing) {
			return res, fmt.Errorf("%w: failed to apply layout %q: %w", womperr.ErrLayoutUnavailable, name, err)
		}
		return res, fmt.Errorf("failed to apply layout %q: %w", name, err)
	}
	res.Applied = true
	e.logger.Info("applied display layout", zap.String("profile", name))

	e.applyOptional(ctx, want, FieldsFrom(settings), &res)

	if runHooks && meta.Run.After.Runnable() {
		if err := e.runHook(ctx, "after", *meta.Run.After, &res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (e *Engine) runHook(ctx context.Context, stage string, cmd profile.RunCommand, res *Result) error {
	code, err := e.hooks.Run(ctx, cmd)
	if err != nil {
		e.logger.Warn("hook failed to launch", zap.String("stage", stage), zap.String("target", cmd.Target), zap.Error(err))
		if errors.Is(err, womperr.ErrCommandLaunchFailed) {
			return err
		}
		return fmt.Errorf("%w: %s hook: %v", womperr.ErrCommandLaunchFailed, stage, err)
	}
	if code != 0 {
		e.logger.Warn("hook exited with non-zero status",
			zap.String("stage", stage), zap.String("target", cmd.Target), zap.Int("exit_code", code))
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s hook exited with status %d", stage, code))
	}
	return nil
}

// applyOptional sets the captured optional fields in a fixed order: DPI
// scale, HDR, SDR white level, icon size, wallpaper, audio output.
func (e *Engine) applyOptional(ctx context.Context, want layout.Layout, f layout.Fields, res *Result) {
	warn := func(field string, err error) {
		if err == nil {
			return
		}
		e.logger.Warn("optional field not applied", zap.String("field", field), zap.Error(err))
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", field, err))
	}

	displays := want.Enabled()
	if f.DPIScale {
		for _, d := range displays {
			if d.DPIScale != nil {
				warn("dpi_scale", e.backend.SetDPIScale(ctx, d.ID, *d.DPIScale))
			}
		}
	}
	if f.HDRState {
		for _, d := range displays {
			if d.HDRSupported && d.HDREnabled != nil {
				warn("hdr_state", e.backend.SetHDR(ctx, d.ID, *d.HDREnabled))
			}
		}
	}
	if f.HDRState && f.SDRWhiteLevel {
		for _, d := range displays {
			if d.HDREnabled != nil && *d.HDREnabled && d.SDRWhiteLevel != nil {
				warn("sdr_white_level", e.backend.SetSDRWhiteLevel(ctx, d.ID, *d.SDRWhiteLevel))
			}
		}
	}
	if f.IconSize && want.IconSize != nil {
		warn("icon_size", e.backend.SetIconSize(ctx, *want.IconSize))
	}
	if f.Wallpaper && want.Wallpaper != nil {
		warn("wallpaper", e.backend.SetWallpaper(ctx, *want.Wallpaper))
	}
	if f.AudioOutput && want.AudioOutput != nil {
		warn("audio_output", e.backend.SetAudioOutput(ctx, *want.AudioOutput))
	}
}

// TurnOffAllDisplays puts every display into power saving.
func (e *Engine) TurnOffAllDisplays(ctx context.Context) error {
	if !e.applyMu.TryLock() {
		return fmt.Errorf("%w: a layout change is in progress", womperr.ErrBusy)
	}
	defer e.applyMu.Unlock()

	if err := e.backend.PowerOff(ctx); err != nil {
		return fmt.Errorf("failed to turn off displays: %w", err)
	}
	return nil
}

// Active returns the first profile, in list order, whose layout matches the
// live one under the configured policy. Any read failure yields no match.
func (e *Engine) Active(ctx context.Context) (string, bool) {
	live, err := e.backend.ReadLayout(ctx)
	if err != nil {
		e.logger.Debug("active profile unknown, layout unreadable", zap.Error(err))
		return "", false
	}

	exact := e.settings.Get().ActiveMatch == config.MatchExact
	fp, err := layout.Fingerprint(live)
	if err != nil {
		return e.findActive(live, exact)
	}
	key := activeKey{fingerprint: fp, generation: e.profiles.Generation(), exact: exact}
	if name, ok := e.active.Get(key); ok {
		return name, name != ""
	}

	name, ok := e.findActive(live, exact)
	e.active.Add(key, name)
	return name, ok
}

func (e *Engine) findActive(live layout.Layout, exact bool) (string, bool) {
	names, err := e.profiles.Names()
	if err != nil {
		return "", false
	}
	for _, name := range names {
		stored, err := e.profiles.ReadLayout(name)
		if err != nil {
			continue
		}
		if layout.Matches(stored, live, exact) {
			return name, true
		}
	}
	return "", false
}

// InvalidateActive drops memoized active-profile results, for changes the
// store generation does not see (files edited on disk).
func (e *Engine) InvalidateActive() {
	e.active.Purge()
}

// Next applies the profile after the active one, wrapping to the first.
// With no active profile nothing happens and "" is returned.
func (e *Engine) Next(ctx context.Context) (string, error) {
	return e.cycle(ctx, 1)
}

// Previous applies the profile before the active one, wrapping to the last.
func (e *Engine) Previous(ctx context.Context) (string, error) {
	return e.cycle(ctx, -1)
}

func (e *Engine) cycle(ctx context.Context, step int) (string, error) {
	names, err := e.profiles.Names()
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}

	active, ok := e.Active(ctx)
	if !ok {
		return "", nil
	}
	idx := -1
	for i, n := range names {
		if n == active {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", nil
	}

	target := names[(idx+step+len(names))%len(names)]
	if _, err := e.Apply(ctx, target); err != nil {
		return target, err
	}
	return target, nil
}
