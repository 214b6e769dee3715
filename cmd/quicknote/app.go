package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/quicknote/pkg/clock"
	"github.com/Veraticus/quicknote/pkg/config"
	"github.com/Veraticus/quicknote/pkg/daemon"
	"github.com/Veraticus/quicknote/pkg/debounce"
	"github.com/Veraticus/quicknote/pkg/fade"
	"github.com/Veraticus/quicknote/pkg/hotcorner"
	"github.com/Veraticus/quicknote/pkg/idle"
	"github.com/Veraticus/quicknote/pkg/interfaces"
	"github.com/Veraticus/quicknote/pkg/note"
	"github.com/Veraticus/quicknote/pkg/preferences"
	"github.com/Veraticus/quicknote/pkg/schedule"
	"github.com/Veraticus/quicknote/pkg/status"
	"github.com/Veraticus/quicknote/pkg/types"
	"github.com/Veraticus/quicknote/pkg/visibility"
	"github.com/Veraticus/quicknote/pkg/window"
)

// Debounce keys
const (
	saveNote   = "note"
	saveBounds = "bounds"
)

// Transport is the part of the socket server the application talks through
type Transport interface {
	Send(clientID string, t daemon.MessageType, payload any) error
	SendHost(t daemon.MessageType, payload any) error
	HasHost() bool
	HostID() string
}

// Dependencies holds all the dependencies for the application
type Dependencies struct {
	Config      *config.Config
	Logger      *slog.Logger
	Loop        *schedule.Loop
	Scheduler   *schedule.Scheduler
	Preferences *preferences.Store
	Notes       *note.Service
	Server      *daemon.Server
	Transport   Transport
	Window      *window.Remote
	Input       *idle.Hub
	Tracker     *idle.Tracker
	Fader       *fade.Sequencer
	Saves       *debounce.Debouncer
	SaveStatus  *status.Recorder
	HotCorner   *hotcorner.Detector
}

// NewDependencies creates all dependencies with the given configuration
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	prefs, err := preferences.Open(cfg.PreferencesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences: %w", err)
	}

	loop := schedule.NewLoop(256)
	server := daemon.NewServer(cfg.SocketPath, logger)

	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		Loop:        loop,
		Scheduler:   schedule.NewScheduler(clock.Real(), loop),
		Preferences: prefs,
		Server:      server,
		Transport:   server,
	}
	deps.wire()

	if cfg.HotCorner.Locator == "xdotool" {
		deps.HotCorner = hotcorner.NewDetector(
			hotcorner.NewXdotoolLocator(),
			clock.Real(),
			hotcorner.ConfigFromPreferences(prefs.Get()),
			nil,
			logger,
		)
		deps.HotCorner.PollInterval = cfg.HotCorner.PollInterval
		deps.HotCorner.EmitInterval = cfg.HotCorner.EmitInterval
	}

	return deps, nil
}

// wire builds the components that only depend on the scheduler, the
// preferences store and the transport.
func (d *Dependencies) wire() {
	d.Notes = note.NewService(
		note.NewStore(d.Config.DataDir),
		note.NewMarkdownExporter(),
		func() preferences.Sync { return d.Preferences.Get().Sync },
		d.Logger,
	)
	d.Window = window.NewRemote(d.Transport, d.Logger)
	d.Input = idle.NewHub()
	d.Tracker = idle.NewTracker(d.Input, d.Scheduler, d.Config.IdlePollInterval)
	d.Fader = fade.New(d.Scheduler, d.Window, d.Window)
	d.SaveStatus = &status.Recorder{}
	d.Saves = debounce.New(d.Scheduler, func(key string, err error) {
		d.Logger.Error("save failed", "what", key, "error", err)
	})
}

// Application is the running daemon: it routes socket messages and triggers
// into the visibility coordinator and persists what the host reports.
type Application struct {
	deps   *Dependencies
	coord  *visibility.Coordinator
	logger *slog.Logger

	activity interfaces.IdleDetector
	prefs    visibility.Prefs
	applied  preferences.Preferences
	unattach func()
}

// NewApplication creates a new application with the given dependencies
func NewApplication(deps *Dependencies) *Application {
	app := &Application{
		deps:     deps,
		logger:   deps.Logger.With("component", "app"),
		activity: deps.Tracker,
		prefs:    deps.Preferences.Get().Visibility(),
		applied:  deps.Preferences.Get(),
	}

	app.coord = visibility.NewCoordinator(visibility.Config{
		Prefs:       app.prefs,
		Scheduler:   deps.Scheduler,
		Tracker:     deps.Tracker,
		Fader:       deps.Fader,
		Editor:      deps.Window,
		GracePeriod: deps.Config.GracePeriod,
		FocusDelay:  deps.Config.FocusDelay,
		OnHidden:    app.flushGeometry,
		OnTransition: func(from, to visibility.State, ev visibility.Event) {
			app.logger.Debug("visibility", "from", from.String(), "to", to.String(), "event", ev.Kind.String())
		},
		Logger: deps.Logger,
	})
	app.unattach = app.coord.Attach(deps.Input)

	if deps.Server != nil {
		deps.Server.OnMessage = func(clientID string, msg daemon.Message) {
			deps.Loop.Post(func() { app.handle(clientID, msg) })
		}
		deps.Server.OnDisconnect = func(clientID string, role daemon.Role) {
			if role == daemon.RoleHost {
				deps.Loop.Post(app.hostGone)
			}
		}
	}
	if deps.HotCorner != nil {
		deps.HotCorner.SetOnTrigger(func() {
			deps.Loop.Post(func() {
				if err := app.trigger(daemon.ActionHotCorner); err != nil {
					app.logger.Debug("hot corner ignored", "error", err)
				}
			})
		})
	}

	return app
}

// Run serves until ctx is cancelled, then flushes pending saves.
func (a *Application) Run(ctx context.Context) error {
	d := a.deps

	if err := d.Server.Start(); err != nil {
		return err
	}
	defer d.Server.Stop()

	// Updates made on the loop notify synchronously, so hand off the post.
	// The latest snapshot is read on the loop.
	unsubscribe := d.Preferences.OnChange(func(preferences.Preferences) {
		go d.Loop.Post(func() { a.applyPreferences(d.Preferences.Get()) })
	})
	defer unsubscribe()

	if err := d.Preferences.Watch(ctx, func(err error) {
		a.logger.Warn("preferences reload failed", "error", err)
	}); err != nil {
		a.logger.Warn("preferences will not reload on change", "error", err)
	}

	if d.HotCorner != nil {
		go func() { _ = d.HotCorner.Run(ctx) }()
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan error, 1)
	go func() { loopDone <- d.Loop.Run(loopCtx) }()

	a.logger.Info("daemon started", "socket", d.Config.SocketPath, "data", d.Config.DataDir)
	<-ctx.Done()

	if err := d.Loop.Do(context.Background(), d.Saves.FlushAll); err != nil {
		a.logger.Warn("pending saves lost", "error", err)
	}
	stopLoop()
	<-loopDone

	a.logger.Info("daemon stopped")
	return nil
}

// Coordinator returns the visibility coordinator
func (a *Application) Coordinator() *visibility.Coordinator {
	return a.coord
}

// handle routes one client message. Runs on the loop.
func (a *Application) handle(clientID string, msg daemon.Message) {
	logger := a.logger.With("client", clientID, "type", string(msg.Type))

	if err := a.route(clientID, msg); err != nil {
		logger.Warn("request failed", "error", err)
		a.reply(clientID, daemon.MsgError, daemon.ErrorPayload{Message: err.Error()})
	}
}

func (a *Application) route(clientID string, msg daemon.Message) error {
	switch msg.Type {
	case daemon.MsgHello:
		var hello daemon.HelloPayload
		if err := msg.Decode(&hello); err != nil {
			return err
		}
		if hello.Role == daemon.RoleHost {
			return a.hostAttached(hello)
		}
		return nil

	case daemon.MsgInput:
		var in daemon.InputPayload
		if err := msg.Decode(&in); err != nil {
			return err
		}
		kind, err := types.ParseInputKind(in.Kind)
		if err != nil {
			return err
		}
		a.deps.Input.Publish(types.InputEvent{Kind: kind, Key: in.Key, DragRegion: in.DragRegion})
		return nil

	case daemon.MsgPointer:
		var p daemon.PointerPayload
		if err := msg.Decode(&p); err != nil {
			return err
		}
		if p.Inside {
			a.coord.Dispatch(visibility.Event{Kind: visibility.EventPointerEnter})
		} else {
			a.coord.Dispatch(visibility.Event{Kind: visibility.EventPointerLeave})
		}
		return nil

	case daemon.MsgFocus:
		return nil

	case daemon.MsgBlur:
		a.coord.Dispatch(visibility.Event{Kind: visibility.EventBlur})
		return nil

	case daemon.MsgClose:
		a.coord.Dispatch(visibility.Event{Kind: visibility.EventClose})
		return nil

	case daemon.MsgVisibility:
		var v daemon.VisibilityPayload
		if err := msg.Decode(&v); err != nil {
			return err
		}
		a.reconcileVisibility(v.Visible)
		return nil

	case daemon.MsgBounds:
		var b daemon.BoundsPayload
		if err := msg.Decode(&b); err != nil {
			return err
		}
		a.deps.Window.ObserveBounds(b.Bounds)
		a.deps.Saves.Schedule(saveBounds, a.deps.Config.BoundsSaveDelay, a.saveGeometry)
		return nil

	case daemon.MsgContent:
		var c daemon.ContentPayload
		if err := msg.Decode(&c); err != nil {
			return err
		}
		a.scheduleNoteSave(c.HTML)
		if clientID != "" && !a.isHost(clientID) {
			// Edited outside the overlay
			a.sendHost(daemon.MsgNote, daemon.NotePayload{HTML: c.HTML})
		}
		return nil

	case daemon.MsgTrigger:
		var t daemon.TriggerPayload
		if err := msg.Decode(&t); err != nil {
			return err
		}
		if err := a.trigger(t.Action); err != nil {
			return err
		}
		a.reply(clientID, daemon.MsgStatus, a.status())
		return nil

	case daemon.MsgGetPreferences:
		a.reply(clientID, daemon.MsgPreferences, daemon.PreferencesPayload{Preferences: a.deps.Preferences.Get()})
		return nil

	case daemon.MsgUpdatePreferences:
		var p daemon.PreferencesPayload
		if err := msg.Decode(&p); err != nil {
			return err
		}
		if err := a.deps.Preferences.Update(p.Preferences); err != nil {
			return err
		}
		a.reply(clientID, daemon.MsgPreferences, daemon.PreferencesPayload{Preferences: a.deps.Preferences.Get()})
		return nil

	case daemon.MsgStatus:
		a.reply(clientID, daemon.MsgStatus, a.status())
		return nil

	default:
		return fmt.Errorf("unsupported message type %q", msg.Type)
	}
}

// trigger arbitrates show requests against the current state.
func (a *Application) trigger(action string) error {
	state := a.coord.State()

	switch action {
	case daemon.ActionHotCorner:
		if state == visibility.Hidden {
			if err := a.show(); err != nil {
				return err
			}
		}
		a.coord.Dispatch(visibility.Event{Kind: visibility.EventHotCorner})

	case daemon.ActionShortcut:
		switch state {
		case visibility.Hidden:
			if err := a.show(); err != nil {
				return err
			}
			a.coord.Dispatch(visibility.Event{Kind: visibility.EventShortcut})
		case visibility.Fading:
			a.coord.Dispatch(visibility.Event{Kind: visibility.EventShortcut})
		default:
			a.coord.Dispatch(visibility.Event{Kind: visibility.EventClose})
		}

	case daemon.ActionShow:
		if state == visibility.Hidden {
			return a.show()
		}

	case daemon.ActionHide:
		if state != visibility.Hidden {
			a.coord.Dispatch(visibility.Event{Kind: visibility.EventClose})
		}

	case daemon.ActionToggle:
		if state == visibility.Hidden {
			return a.show()
		}
		a.coord.Dispatch(visibility.Event{Kind: visibility.EventClose})

	case daemon.ActionSync:
		return a.deps.Notes.Sync()

	default:
		return fmt.Errorf("unknown trigger %q", action)
	}
	return nil
}

// show places and shows the window, then reports it shown.
func (a *Application) show() error {
	saved, ok := a.deps.Preferences.Get().SavedBounds()
	current, err := a.deps.Window.Bounds()
	if err != nil {
		current = types.Bounds{}
	}
	at := window.Place(saved, ok, current, a.deps.Window.Monitors())

	if err := a.deps.Window.Show(at); err != nil {
		return fmt.Errorf("failed to show window: %w", err)
	}
	a.coord.Dispatch(visibility.Event{Kind: visibility.EventShown})
	return nil
}

// reconcileVisibility applies visibility changes the host made on its own.
func (a *Application) reconcileVisibility(visible bool) {
	a.deps.Window.ObserveVisibility(visible)

	state := a.coord.State()
	switch {
	case visible && state == visibility.Hidden:
		a.coord.Dispatch(visibility.Event{Kind: visibility.EventShown})
	case !visible && state != visibility.Hidden:
		a.coord.Dispatch(visibility.Event{Kind: visibility.EventHidden})
	}
}

func (a *Application) hostAttached(hello daemon.HelloPayload) error {
	a.deps.Window.ObserveMonitors(hello.Monitors)

	content, err := a.deps.Notes.Load()
	if err != nil {
		return err
	}
	prefs := a.deps.Preferences.Get()
	a.sendHost(daemon.MsgNote, daemon.NotePayload{HTML: content})
	a.sendHost(daemon.MsgTextSize, daemon.TextSizePayload{Size: prefs.TextSize})
	a.sendHost(daemon.MsgPreferences, daemon.PreferencesPayload{Preferences: prefs})

	if prefs.ShowOnLaunch && a.coord.State() == visibility.Hidden {
		return a.show()
	}
	return nil
}

func (a *Application) hostGone() {
	a.deps.Window.Detach()
	if a.coord.State() != visibility.Hidden {
		a.coord.Dispatch(visibility.Event{Kind: visibility.EventHidden})
	}
}

// applyPreferences pushes a new preferences snapshot to every consumer.
// Runs on the loop.
func (a *Application) applyPreferences(p preferences.Preferences) {
	if vis := p.Visibility(); vis != a.prefs {
		a.prefs = vis
		a.coord.Dispatch(visibility.Event{Kind: visibility.EventPreferencesChanged, Prefs: vis})
	}
	if a.deps.HotCorner != nil {
		a.deps.HotCorner.UpdateConfig(hotcorner.ConfigFromPreferences(p))
	}

	// Geometry saves come from the host itself
	geometryOnly := p.WithoutBounds() == a.applied.WithoutBounds()
	a.applied = p
	if geometryOnly {
		return
	}
	a.sendHost(daemon.MsgTextSize, daemon.TextSizePayload{Size: p.TextSize})
	a.sendHost(daemon.MsgPreferences, daemon.PreferencesPayload{Preferences: p})
}

func (a *Application) scheduleNoteSave(content string) {
	a.deps.SaveStatus.ReportSaving()
	a.deps.Saves.Schedule(saveNote, a.deps.Config.NoteSaveDelay, func() error {
		if err := a.deps.Notes.Save(content); err != nil {
			a.deps.SaveStatus.ReportFailure()
			return err
		}
		a.deps.SaveStatus.ReportSaved()
		return nil
	})
}

// flushGeometry runs whenever the window becomes hidden.
func (a *Application) flushGeometry() {
	if a.deps.Saves.Flush(saveBounds) {
		return
	}
	if err := a.saveGeometry(); err != nil {
		a.logger.Error("save window geometry failed", "error", err)
	}
}

func (a *Application) saveGeometry() error {
	b, err := a.deps.Window.Bounds()
	if errors.Is(err, window.ErrNoBounds) || b.Empty() {
		return nil
	}
	if err != nil {
		return err
	}

	current := a.deps.Preferences.Get()
	if saved, ok := current.SavedBounds(); ok && saved == b {
		return nil
	}
	return a.deps.Preferences.Update(current.WithBounds(b))
}

func (a *Application) status() daemon.StatusPayload {
	sig := a.coord.Signals()
	st := daemon.StatusPayload{
		State:         a.coord.State().String(),
		Locked:        sig.Locked,
		PointerOver:   sig.PointerOver,
		HostConnected: a.deps.Transport.HasHost(),
		Save:          a.deps.SaveStatus.Status().String(),
	}
	if a.activity != nil {
		st.Idle, _ = a.activity.IsUserIdle(a.prefs.AutoHideDelay)
		st.IdleForMS = a.deps.Scheduler.Now().Sub(a.activity.LastActivity()).Milliseconds()
	}
	return st
}

func (a *Application) isHost(clientID string) bool {
	return a.deps.Transport.HostID() == clientID
}

func (a *Application) reply(clientID string, t daemon.MessageType, payload any) {
	if clientID == "" {
		return
	}
	if err := a.deps.Transport.Send(clientID, t, payload); err != nil {
		a.logger.Debug("reply failed", "client", clientID, "error", err)
	}
}

func (a *Application) sendHost(t daemon.MessageType, payload any) {
	if err := a.deps.Transport.SendHost(t, payload); err != nil && !errors.Is(err, daemon.ErrNoHost) {
		a.logger.Debug("host command failed", "type", string(t), "error", err)
	}
}

// Close releases subscriptions
func (a *Application) Close() {
	if a.unattach != nil {
		a.unattach()
		a.unattach = nil
	}
}
