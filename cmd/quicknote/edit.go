package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Veraticus/quicknote/pkg/clock"
	"github.com/Veraticus/quicknote/pkg/config"
	"github.com/Veraticus/quicknote/pkg/daemon"
	"github.com/Veraticus/quicknote/pkg/debounce"
	"github.com/Veraticus/quicknote/pkg/editor"
	"github.com/Veraticus/quicknote/pkg/interfaces"
	"github.com/Veraticus/quicknote/pkg/note"
	"github.com/Veraticus/quicknote/pkg/preferences"
	"github.com/Veraticus/quicknote/pkg/schedule"
	"github.com/Veraticus/quicknote/pkg/status"
	"golang.org/x/term"
)

// noteSaver persists edited note content
type noteSaver interface {
	Save(content string) error
}

// daemonSaver hands content to a running daemon so the overlay picks it up,
// and falls back to writing the note directly when no daemon answers.
type daemonSaver struct {
	socketPath string
	local      noteSaver
	logger     *slog.Logger

	client *daemon.Client
}

func (d *daemonSaver) Save(content string) error {
	if d.client == nil {
		client, err := daemon.Dial(d.socketPath, daemon.HelloPayload{Role: daemon.RoleTrigger}, requestTimeout)
		if err == nil {
			d.client = client
		}
	}
	if d.client != nil {
		err := d.client.Send(daemon.MsgContent, daemon.ContentPayload{HTML: content})
		if err == nil {
			return nil
		}
		d.logger.Debug("daemon save failed, writing locally", "error", err)
		_ = d.client.Close()
		d.client = nil
	}
	return d.local.Save(content)
}

func (d *daemonSaver) Close() {
	if d.client != nil {
		_ = d.client.Close()
		d.client = nil
	}
}

// editSaves debounces scratch file changes into saves. All methods run on
// the loop that owns the debouncer.
type editSaves struct {
	saves    *debounce.Debouncer
	saver    noteSaver
	reporter interfaces.StatusReporter
	delay    time.Duration

	lastSaved string
}

func newEditSaves(sched *schedule.Scheduler, saver noteSaver, reporter interfaces.StatusReporter, delay time.Duration, initial string, logger *slog.Logger) *editSaves {
	return &editSaves{
		saves: debounce.New(sched, func(_ string, err error) {
			logger.Error("note save failed", "error", err)
		}),
		saver:     saver,
		reporter:  reporter,
		delay:     delay,
		lastSaved: initial,
	}
}

// changed schedules a save of content.
func (e *editSaves) changed(content string) {
	e.reporter.ReportSaving()
	e.saves.Schedule(saveNote, e.delay, e.write(content))
}

// finish drops any pending save and writes content if it differs from what
// was last saved.
func (e *editSaves) finish(content string) error {
	e.saves.Cancel(saveNote)
	if content == e.lastSaved {
		return nil
	}
	return e.saves.WriteNow(saveNote, e.write(content))
}

func (e *editSaves) write(content string) func() error {
	return func() error {
		if err := e.saver.Save(content); err != nil {
			e.reporter.ReportFailure()
			return err
		}
		e.lastSaved = content
		e.reporter.ReportSaved()
		return nil
	}
}

// runEdit opens the note in a terminal editor. Each save of the scratch file
// is forwarded to the daemon, or written directly when it is not running.
func runEdit(cfg *config.Config, logger *slog.Logger) error {
	prefs, err := preferences.Open(cfg.PreferencesPath)
	if err != nil {
		return fmt.Errorf("failed to open preferences: %w", err)
	}
	svc := note.NewService(
		note.NewStore(cfg.DataDir),
		note.NewMarkdownExporter(),
		func() preferences.Sync { return prefs.Get().Sync },
		logger,
	)

	content, err := svc.Load()
	if err != nil {
		return err
	}

	scratch, err := os.CreateTemp("", "quicknote-*.html")
	if err != nil {
		return fmt.Errorf("failed to create scratch file: %w", err)
	}
	scratchPath := scratch.Name()
	defer func() { _ = os.Remove(scratchPath) }()
	if _, err := scratch.WriteString(content); err != nil {
		_ = scratch.Close()
		return fmt.Errorf("failed to write scratch file: %w", err)
	}
	if err := scratch.Close(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := schedule.NewLoop(64)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go func() { _ = loop.Run(loopCtx) }()
	sched := schedule.NewScheduler(clock.Real(), loop)

	indicator := status.NewIndicator(os.Stdout, "quicknote", term.IsTerminal(int(os.Stdout.Fd())))
	stopRefresh := make(chan struct{})
	indicator.StartAutoRefresh(stopRefresh)
	defer close(stopRefresh)

	saver := &daemonSaver{socketPath: cfg.SocketPath, local: svc, logger: logger}
	defer saver.Close()
	saves := newEditSaves(sched, saver, status.NewReporter(indicator), cfg.NoteSaveDelay, content, logger)

	watcher, err := editor.NewFileWatcher(scratchPath, []byte(content), logger)
	if err != nil {
		return err
	}
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go func() {
		_ = watcher.Run(watchCtx, func(data []byte) {
			loop.Post(func() { saves.changed(string(data)) })
		})
	}()

	command, args := editor.ResolveCommand(cfg.Editor)
	session := editor.NewSession(command, append(args, scratchPath), nil, logger)
	session.OnResize = indicator.SetWidth
	clears := editor.NewScreenClearDetector(indicator)

	runErr := session.Run(ctx, os.Stdin, os.Stdout, clears.Observe)
	stopWatch()

	final, err := os.ReadFile(scratchPath)
	if err != nil {
		return fmt.Errorf("failed to read scratch file: %w", err)
	}
	var saveErr error
	if err := loop.Do(context.Background(), func() { saveErr = saves.finish(string(final)) }); err != nil {
		return err
	}
	if saveErr != nil {
		return saveErr
	}

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
