package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vitaminmoo/neuromenu/internal/catalog"
	"github.com/vitaminmoo/neuromenu/internal/config"
	"github.com/vitaminmoo/neuromenu/internal/dispatch"
	"github.com/vitaminmoo/neuromenu/internal/history"
	"github.com/vitaminmoo/neuromenu/internal/menu"
	"github.com/vitaminmoo/neuromenu/internal/record"
	"github.com/vitaminmoo/neuromenu/internal/session"
	"github.com/vitaminmoo/neuromenu/internal/speech"
)

const shutdownTimeout = 5 * time.Second

type appOptions struct {
	onEntry func(history.Entry)
	mirror  bool // copy history entries to the slog default logger
	mute    bool
	tap     func([]byte)
}

// app is one assembled menu session: the controller plus everything it
// dispatches to.
type app struct {
	cfg        *config.Config
	catalog    *catalog.Catalog
	history    *history.Log
	speaker    *speech.Speaker
	controller *session.Controller

	cancel context.CancelFunc
	done   chan struct{}
}

func newApp(cfg *config.Config, t session.Transport, p dispatch.Presenter, o appOptions) *app {
	cat := cfg.Catalog()

	var hopts []history.Option
	if o.mirror {
		hopts = append(hopts, history.WithSlog(slog.Default()))
	}
	if o.onEntry != nil {
		hopts = append(hopts, history.OnAppend(o.onEntry))
	}
	log := history.New(cfg.HistorySize, hopts...)

	a := &app{cfg: cfg, catalog: cat, history: log}

	var announcer dispatch.Announcer = dispatch.Silent{}
	if !o.mute {
		a.speaker = speech.FromConfig(cfg.Speech)
		announcer = a.speaker
	}

	machine := menu.NewMachine(cat, menu.WithHighlight(cfg.Highlight))
	a.controller = session.New(t, machine, dispatch.New(announcer, p, log), session.Options{
		DeviceName:       cfg.DeviceName,
		ServiceID:        cfg.ServiceUUID,
		CharacteristicID: cfg.CharacteristicUUID,
		ConnectTimeout:   cfg.ConnectTimeout,
		Tap:              o.tap,
	})
	return a
}

func (a *app) speechStatus() string {
	if a.speaker == nil {
		return "speech muted"
	}
	return a.speaker.Describe()
}

// start runs the controller loop and writes the startup lines.
func (a *app) start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	go func() {
		defer close(a.done)
		a.controller.Run(ctx)
	}()

	a.history.Append("Waiting for device connection...", menu.SeverityInfo)
	severity := menu.SeverityInfo
	if a.speaker != nil && !a.speaker.Available() {
		severity = menu.SeverityWarning
	}
	a.history.Append(a.speechStatus(), severity)
}

// stop drains pending work, drops any live link and stops the loop.
func (a *app) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if _, err := a.controller.Snapshot(ctx); err != nil {
		config.Debugf("controller did not drain: %v", err)
	}
	if a.controller.Connected() {
		if err := a.controller.Disconnect(ctx); err != nil {
			slog.Warn("disconnect on exit failed", "error", err)
		}
	}
	if a.speaker != nil {
		a.speaker.Stop()
	}
	a.cancel()
	<-a.done
}

// openRecording opens path for recording when it is set. The returned tap
// is nil when no recording was requested.
func openRecording(path string) (func([]byte), func() error, error) {
	if path == "" {
		return nil, func() error { return nil }, nil
	}
	w, err := record.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open recording: %w", err)
	}
	config.Debugf("recording notifications to %s", path)
	return w.Tap, w.Close, nil
}
