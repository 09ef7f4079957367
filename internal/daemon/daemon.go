package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/womp-app/womp/internal/autostart"
	"github.com/womp-app/womp/internal/bridge"
	"github.com/womp-app/womp/internal/config"
	"github.com/womp-app/womp/internal/display"
	"github.com/womp-app/womp/internal/eventbus"
	"github.com/womp-app/womp/internal/ipc"
	"github.com/womp-app/womp/internal/platform"
	"github.com/womp-app/womp/internal/profile"
	"github.com/womp-app/womp/internal/runtimepath"
	"github.com/womp-app/womp/internal/theme"
	"github.com/womp-app/womp/internal/tray"
)

const shutdownTimeout = 5 * time.Second

// Options configure Run. Zero values select the platform defaults.
type Options struct {
	ConfigDir  string
	SocketPath string
	BridgeAddr string
	// NoTray skips the notification area icon, e.g. on headless sessions.
	NoTray            bool
	ReconcileInterval time.Duration
	Logger            *zap.Logger
}

func (o *Options) resolve() error {
	var err error
	if o.ConfigDir == "" {
		if o.ConfigDir, err = runtimepath.ConfigDir(); err != nil {
			return err
		}
	}
	if o.SocketPath == "" {
		if o.SocketPath, err = runtimepath.SocketPath(); err != nil {
			return err
		}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return nil
}

func autostartEntry() autostart.Entry {
	exe, err := os.Executable()
	if err != nil {
		exe = "womp"
	}
	return autostart.Entry{
		Name:    "WOMP",
		Comment: "Display profile manager",
		Exec:    exe,
		Args:    []string{"daemon"},
	}
}

// Run starts the daemon and blocks until ctx is cancelled, a signal
// arrives or quit is requested.
func Run(ctx context.Context, opts Options) error {
	if err := opts.resolve(); err != nil {
		return err
	}
	logger := opts.Logger

	ctx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	settings := config.NewStore(filepath.Join(opts.ConfigDir, "config.yaml"), autostart.New(autostartEntry()), logger)
	profiles := profile.NewStore(filepath.Join(opts.ConfigDir, "profiles"), logger)
	if err := profiles.Warning(); err != nil {
		logger.Warn("profiles directory unusable, running with an empty store", zap.Error(err))
	}

	backend, err := platform.New(logger)
	if err != nil {
		return fmt.Errorf("failed to open display backend: %w", err)
	}
	if c, ok := backend.(platform.Closer); ok {
		defer c.Close()
	}

	engine := display.New(profiles, backend, settings, display.WithLogger(logger))
	bus := eventbus.New(eventbus.WithLogger(logger))
	defer bus.Shutdown()

	colors := theme.NewMonitor(theme.NewSystemSource(),
		func() config.Theme { return settings.Get().Theme },
		func(c []string) { bus.Emit("", eventbus.EventSystemColors, c) },
		logger)

	var (
		svc      *Service
		renderer *tray.SystrayRenderer
		traySync *tray.Synchronizer
	)
	if !opts.NoTray {
		renderer = &tray.SystrayRenderer{
			OnClick: func(id string) { svc.HandleTrayClick(id) },
			OnExit:  cancel,
		}
		traySync = tray.NewSynchronizer(renderer, func(ctx context.Context) tray.State { return svc.TrayState(ctx) }, logger)
		defer renderer.Close()
	}

	svc = NewService(Deps{
		Profiles:  profiles,
		Settings:  settings,
		Engine:    engine,
		Bus:       bus,
		Colors:    colors,
		Tray:      traySync,
		Quit:      cancel,
		ConfigDir: opts.ConfigDir,
		Logger:    logger,
	})

	ipcServer := ipc.NewServer(opts.SocketPath, svc, logger)
	if err := ipcServer.Start(); err != nil {
		return fmt.Errorf("failed to start IPC server: %w", err)
	}
	defer ipcServer.Stop()

	bridgeServer := bridge.NewServer(opts.BridgeAddr, svc, bus, logger)
	if err := bridgeServer.Start(); err != nil {
		return fmt.Errorf("failed to start window bridge: %w", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()
		if err := bridgeServer.Stop(stopCtx); err != nil {
			logger.Debug("bridge shutdown", zap.Error(err))
		}
	}()
	if err := publishBridge(bridgeServer); err != nil {
		logger.Warn("bridge address not published", zap.Error(err))
	}
	defer unpublishBridge()

	watcher := NewWatcher(profiles.Dir(), func() {
		engine.InvalidateActive()
		svc.ProfilesChanged()
	}, logger)
	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Warn("profiles watcher stopped", zap.Error(err))
		}
	}()

	reconciler := NewReconciler(ReconcilerConfig{
		Interval: opts.ReconcileInterval,
		Logger:   logger,
	}, engine.Active, func(string) {
		bus.Emit("", eventbus.EventGeneric, eventbus.PayloadProfilesUpdated)
		svc.RefreshTray()
	})
	go reconciler.Run(ctx)
	go colors.Run(ctx)

	if traySync != nil {
		go traySync.Run(ctx)
		svc.RefreshTray()
	}

	logger.Info("womp daemon started",
		zap.String("config_dir", opts.ConfigDir),
		zap.String("socket", opts.SocketPath),
		zap.String("bridge", bridgeServer.URL()))

	<-ctx.Done()
	logger.Info("shutting down womp daemon")
	return nil
}

// publishBridge writes the token before the address so a client that finds
// the address can always read a matching token.
func publishBridge(s *bridge.Server) error {
	tokenPath, err := runtimepath.BridgeTokenPath()
	if err != nil {
		return err
	}
	addrPath, err := runtimepath.BridgeAddrPath()
	if err != nil {
		return err
	}
	if err := bridge.WriteTokenFile(tokenPath, s.Token()); err != nil {
		return err
	}
	return bridge.WriteAddrFile(addrPath, s.URL())
}

func unpublishBridge() {
	if addrPath, err := runtimepath.BridgeAddrPath(); err == nil {
		os.Remove(addrPath)
	}
	if tokenPath, err := runtimepath.BridgeTokenPath(); err == nil {
		os.Remove(tokenPath)
	}
}
