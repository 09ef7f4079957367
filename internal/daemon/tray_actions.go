package daemon

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/womp-app/womp/internal/eventbus"
	"github.com/womp-app/womp/internal/tray"
)

const trayActionTimeout = 2 * time.Minute

// trayActions carries out tray clicks against the service.
type trayActions struct {
	s *Service
}

var _ tray.Handler = trayActions{}

func (t trayActions) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), trayActionTimeout)
}

func (t trayActions) ApplyProfile(name string) {
	ctx, cancel := t.ctx()
	defer cancel()
	// Failures are logged by the service.
	_, _ = t.s.ApplyDisplayLayout(ctx, name)
}

// ShowDialog tells the dialog window which form to show.
func (t trayActions) ShowDialog(kind string) {
	t.s.bus.Emit(eventbus.WindowDialog, eventbus.EventDialogType, kind)
	t.s.bus.Emit(eventbus.WindowDialog, eventbus.EventGeneric, eventbus.PayloadTitleChanged)
}

func (t trayActions) TurnOffAllDisplays() {
	ctx, cancel := t.ctx()
	defer cancel()
	if err := t.s.TurnOffAllDisplays(ctx); err != nil {
		t.s.logger.Warn("turn off displays failed", zap.Error(err))
	}
}

func (t trayActions) NextProfile() {
	ctx, cancel := t.ctx()
	defer cancel()
	if _, err := t.s.NextProfile(ctx); err != nil {
		t.s.logger.Warn("next profile failed", zap.Error(err))
	}
}

func (t trayActions) PreviousProfile() {
	ctx, cancel := t.ctx()
	defer cancel()
	if _, err := t.s.PreviousProfile(ctx); err != nil {
		t.s.logger.Warn("previous profile failed", zap.Error(err))
	}
}

// RefreshActive forgets the memoized active profile and re-renders.
func (t trayActions) RefreshActive() {
	t.s.engine.InvalidateActive()
	t.s.bus.Emit(eventbus.WindowMain, eventbus.EventGeneric, eventbus.PayloadProfilesUpdated)
	t.s.RefreshTray()
}

// OpenConfig opens the config file, or its directory before the first save.
func (t trayActions) OpenConfig() {
	target := t.s.ConfigPath()
	if _, err := os.Stat(target); err != nil {
		target = t.s.ConfigDir()
	}
	if err := t.s.open(target); err != nil {
		t.s.logger.Warn("open config failed", zap.Error(err))
	}
}

func (t trayActions) Quit() {
	t.s.Quit()
}

// HandleTrayClick routes a tray item id to the service.
func (s *Service) HandleTrayClick(id string) {
	if !tray.Dispatch(trayActions{s: s}, id) {
		s.logger.Debug("unknown tray action", zap.String("id", id))
	}
}
