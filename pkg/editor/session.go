// Package editor runs the terminal fallback editor: $EDITOR on a scratch copy
// of the note inside a PTY, with the file watched for saves.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// DefaultEditor is used when no editor is configured.
const DefaultEditor = "vi"

// ResolveCommand picks the editor command line: configured, then $VISUAL,
// then $EDITOR, then DefaultEditor.
func ResolveCommand(configured string) (string, []string) {
	line := configured
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if strings.TrimSpace(line) != "" {
			break
		}
		line = os.Getenv(env)
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return DefaultEditor, nil
	}
	return fields[0], fields[1:]
}

// Session is an editor process attached to a PTY
type Session struct {
	command string
	args    []string
	env     []string
	logger  *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	pty     *os.File
	restore func()

	// OnResize is called with the new column count after SIGWINCH.
	OnResize func(cols int)
}

// NewSession creates a session; Run starts it.
func NewSession(command string, args, env []string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		command: command,
		args:    args,
		env:     env,
		logger:  logger.With("component", "editor"),
	}
}

// Run starts the editor and copies stdin to it and its output to stdout until
// it exits. onOutput sees every output chunk. Cancelling ctx kills the editor.
func (s *Session) Run(ctx context.Context, stdin io.Reader, stdout io.Writer, onOutput func([]byte)) error {
	if err := s.start(); err != nil {
		return err
	}
	defer s.Restore()

	s.mu.Lock()
	ptmx, cmd := s.pty, s.cmd
	s.mu.Unlock()

	if file, ok := stdin.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		if err := s.makeRaw(file); err != nil {
			s.logger.Warn("failed to enable raw mode", "error", err)
		}
		if err := pty.InheritSize(file, ptmx); err != nil {
			s.logger.Debug("failed to copy terminal size", "error", err)
		}
		stop := make(chan struct{})
		defer close(stop)
		go s.watchResize(file, stop)
	}

	go func() {
		// A terminal stdin keeps this blocked after the editor exits
		_, _ = io.Copy(ptmx, stdin)
	}()

	killed := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
		case <-killed:
		}
	}()

	out := io.Writer(stdout)
	if onOutput != nil {
		out = &observedWriter{w: stdout, observe: onOutput}
	}
	_, copyErr := io.Copy(out, ptmx)

	err := cmd.Wait()
	close(killed)
	_ = ptmx.Close()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("editor exited: %w", err)
	}
	// Reading a PTY whose child exited reports EIO on Linux
	if copyErr != nil && !errors.Is(copyErr, syscall.EIO) {
		return fmt.Errorf("failed to copy editor output: %w", copyErr)
	}
	return nil
}

func (s *Session) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return fmt.Errorf("editor already started")
	}

	// #nosec G204 - the editor command is chosen by the user
	cmd := exec.Command(s.command, s.args...)
	cmd.Env = s.env

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("failed to start %s in PTY: %w", s.command, err)
	}
	s.cmd, s.pty = cmd, ptmx
	return nil
}

func (s *Session) makeRaw(file *os.File) error {
	fd := int(file.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.restore = func() { _ = term.Restore(fd, state) }
	s.mu.Unlock()
	return nil
}

// Restore returns the terminal to its original mode. Safe to call repeatedly.
func (s *Session) Restore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restore != nil {
		s.restore()
		s.restore = nil
	}
}

func (s *Session) watchResize(tty *os.File, stop <-chan struct{}) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGWINCH)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-sigChan:
			s.mu.Lock()
			ptmx := s.pty
			s.mu.Unlock()
			if err := pty.InheritSize(tty, ptmx); err != nil {
				s.logger.Debug("failed to resize PTY", "error", err)
			}
			if s.OnResize != nil {
				if cols, _, err := term.GetSize(int(tty.Fd())); err == nil {
					s.OnResize(cols)
				}
			}
		case <-stop:
			return
		}
	}
}

// observedWriter passes every chunk to observe before writing it.
type observedWriter struct {
	w       io.Writer
	observe func([]byte)
}

func (o *observedWriter) Write(p []byte) (int, error) {
	o.observe(p)
	return o.w.Write(p)
}
