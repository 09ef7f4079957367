// Package daemon wires the profile store, display engine, tray and
// transports into the long-running WOMP process.
package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/womp-app/womp/internal/config"
	"github.com/womp-app/womp/internal/display"
	"github.com/womp-app/womp/internal/eventbus"
	"github.com/womp-app/womp/internal/profile"
	"github.com/womp-app/womp/internal/theme"
	"github.com/womp-app/womp/internal/tray"
	"github.com/womp-app/womp/internal/womperr"
)

// Service holds every operation exposed to windows, the CLI and MCP.
// Mutations publish profiles_updated and refresh the tray.
type Service struct {
	profiles  *profile.Store
	settings  *config.Store
	engine    *display.Engine
	bus       *eventbus.Bus
	colors    *theme.Monitor
	tray      *tray.Synchronizer
	open      Opener
	quit      func()
	configDir string
	logger    *zap.Logger

	cmdOnce  sync.Once
	commands map[string]handlerFunc
}

// Deps are the collaborators of a Service. Tray, Colors, Open and Quit may
// be nil.
type Deps struct {
	Profiles  *profile.Store
	Settings  *config.Store
	Engine    *display.Engine
	Bus       *eventbus.Bus
	Colors    *theme.Monitor
	Tray      *tray.Synchronizer
	Open      Opener
	Quit      func()
	ConfigDir string
	Logger    *zap.Logger
}

// NewService creates a Service.
func NewService(d Deps) *Service {
	s := &Service{
		profiles:  d.Profiles,
		settings:  d.Settings,
		engine:    d.Engine,
		bus:       d.Bus,
		colors:    d.Colors,
		tray:      d.Tray,
		open:      d.Open,
		quit:      d.Quit,
		configDir: d.ConfigDir,
		logger:    d.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.open == nil {
		s.open = OpenPath
	}
	if s.quit == nil {
		s.quit = func() {}
	}
	return s
}

// Profiles lists every profile.
func (s *Service) Profiles() ([]profile.Profile, error) {
	return s.profiles.List()
}

// ActiveProfile returns the profile matching the live layout, if any.
func (s *Service) ActiveProfile(ctx context.Context) (string, bool) {
	return s.engine.Active(ctx)
}

func (s *Service) DeleteProfile(name string) error {
	if err := s.profiles.Delete(name); err != nil {
		return err
	}
	s.logger.Info("profile deleted", zap.String("profile", name))
	s.ProfilesChanged()
	return nil
}

func (s *Service) RenameProfile(oldName, newName string) (string, error) {
	slug, err := s.profiles.Rename(oldName, newName)
	if err != nil {
		return "", err
	}
	s.logger.Info("profile renamed", zap.String("from", oldName), zap.String("to", slug))
	s.ProfilesChanged()
	return slug, nil
}

func (s *Service) CloneProfile(name string) (string, error) {
	clone, err := s.profiles.Clone(name)
	if err != nil {
		return "", err
	}
	s.logger.Info("profile cloned", zap.String("profile", name), zap.String("clone", clone))
	s.ProfilesChanged()
	return clone, nil
}

// WriteDisplayConfig replaces a profile's metadata. Hook targets are checked
// only while run commands are enabled.
func (s *Service) WriteDisplayConfig(name string, cfg profile.Config) error {
	if err := s.profiles.WriteConfig(name, cfg, s.settings.Get().RunCommands); err != nil {
		return err
	}
	s.ProfilesChanged()
	return nil
}

func (s *Service) ReadDisplayConfig(name string) (*profile.Config, error) {
	return s.profiles.ReadConfig(name)
}

// ApplyDisplayLayout applies a profile. Listeners are notified whenever the
// live layout may have changed, including when only the after hook failed.
func (s *Service) ApplyDisplayLayout(ctx context.Context, name string) (display.Result, error) {
	res, err := s.engine.Apply(ctx, name)
	if res.Applied {
		s.ProfilesChanged()
	}
	if err != nil {
		s.logger.Warn("apply failed", zap.String("profile", name), zap.Error(err))
	}
	return res, err
}

// SaveCurrentDisplayLayout captures the live layout into a new profile. An
// existing profile has its layout replaced when overwrite is set and is a
// name conflict otherwise.
func (s *Service) SaveCurrentDisplayLayout(ctx context.Context, name string, overwrite bool) (profile.Profile, error) {
	l, err := s.engine.Capture(ctx)
	if err != nil {
		return profile.Profile{}, err
	}
	p, err := s.profiles.Create(name, l, nil, overwrite)
	if err != nil {
		return profile.Profile{}, err
	}
	s.logger.Info("saved current layout", zap.String("profile", p.Name))
	s.ProfilesChanged()
	return p, nil
}

func (s *Service) OpenProfileDir(name string) error {
	dir, err := s.profiles.ProfileDir(name)
	if err != nil {
		return err
	}
	return s.open(dir)
}

// NextProfile applies the profile after the active one. The result names
// the applied profile, or is empty when there was nothing to cycle from.
func (s *Service) NextProfile(ctx context.Context) (string, error) {
	return s.cycle(ctx, s.engine.Next)
}

func (s *Service) PreviousProfile(ctx context.Context) (string, error) {
	return s.cycle(ctx, s.engine.Previous)
}

func (s *Service) cycle(ctx context.Context, step func(context.Context) (string, error)) (string, error) {
	name, err := step(ctx)
	if name != "" && (err == nil || errors.Is(err, womperr.ErrCommandLaunchFailed)) {
		s.ProfilesChanged()
	}
	return name, err
}

func (s *Service) TurnOffAllDisplays(ctx context.Context) error {
	return s.engine.TurnOffAllDisplays(ctx)
}

func (s *Service) GlobalConfig() config.GlobalConfig {
	return s.settings.Get()
}

// SetGlobalConfig stores cfg. On an autostart mirror failure the stored
// config is returned together with the error.
func (s *Service) SetGlobalConfig(cfg config.GlobalConfig) (config.GlobalConfig, error) {
	stored, err := s.settings.Set(cfg)
	if err != nil && !errors.Is(err, womperr.ErrAutostartMismatch) {
		return s.settings.Get(), err
	}
	s.engine.InvalidateActive()
	s.RefreshTray()
	return stored, err
}

// SystemColors returns the nine theme colors.
func (s *Service) SystemColors() []string {
	if s.colors == nil {
		return theme.Resolve(nil, s.settings.Get().Theme).Colors()
	}
	return s.colors.Colors()
}

// ChangeTheme stores the window theme and pushes the resulting colors when
// color events are on.
func (s *Service) ChangeTheme(name string) error {
	cfg := s.settings.Get()
	cfg.Theme = config.ParseTheme(name)
	if _, err := s.settings.Set(cfg); err != nil && !errors.Is(err, womperr.ErrAutostartMismatch) {
		return err
	}
	if s.colors != nil && s.colors.Enabled() {
		s.bus.Emit("", eventbus.EventSystemColors, s.colors.Colors())
	}
	return nil
}

func (s *Service) EmitToWindow(window, event string, payload any) {
	s.bus.Emit(window, event, payload)
}

func (s *Service) SetColorEventsEnabled(enabled bool) {
	if s.colors != nil {
		s.colors.SetEnabled(enabled)
	}
}

func (s *Service) ConfigDir() string {
	return s.configDir
}

func (s *Service) ProfilesDir() string {
	return s.profiles.Dir()
}

func (s *Service) ProfileDir(name string) (string, error) {
	return s.profiles.ProfileDir(name)
}

// ConfigPath is the global config file.
func (s *Service) ConfigPath() string {
	if p := s.settings.Path(); p != "" {
		return p
	}
	return filepath.Join(s.configDir, "config.yaml")
}

func (s *Service) Quit() {
	s.logger.Info("quit requested")
	s.quit()
}

// ProfilesChanged notifies windows and rebuilds the tray.
func (s *Service) ProfilesChanged() {
	s.bus.Emit("", eventbus.EventGeneric, eventbus.PayloadProfilesUpdated)
	s.RefreshTray()
}

// RefreshTray marks the tray stale. The tray worker reads TrayState when it
// renders.
func (s *Service) RefreshTray() {
	if s.tray == nil {
		return
	}
	s.tray.Request()
}

// TrayState snapshots the profiles and the live layout for the tray menu.
func (s *Service) TrayState(ctx context.Context) tray.State {
	profiles, err := s.profiles.List()
	if err != nil {
		s.logger.Warn("tray refresh: failed to list profiles", zap.Error(err))
	}
	entries := make([]tray.Entry, 0, len(profiles))
	for _, p := range profiles {
		e := tray.Entry{Name: p.Name}
		if p.Config != nil {
			e.Label = p.Config.Name
		}
		entries = append(entries, e)
	}
	active, _ := s.engine.Active(ctx)
	return tray.State{
		Profiles: entries,
		Active:   active,
		Icon:     s.settings.Get().TrayIcon,
	}
}
