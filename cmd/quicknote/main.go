package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Veraticus/quicknote/pkg/config"
	"github.com/Veraticus/quicknote/pkg/daemon"
	flag "github.com/spf13/pflag"
)

// requestTimeout bounds how long client commands wait for the daemon.
const requestTimeout = 2 * time.Second

func main() {
	var (
		configPath string
		socketPath string
		debug      bool
		help       bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&socketPath, "socket", "", "Path to the daemon socket")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.BoolVarP(&help, "help", "h", false, "Show help message")
	flag.CommandLine.SetInterspersed(false)
	flag.Parse()

	if help {
		printUsage()
		os.Exit(0)
	}

	// The config file location must be known before loading
	if configPath != "" {
		if err := os.Setenv("QUICKNOTE_CONFIG", configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error setting config path: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if socketPath != "" {
		cfg.SocketPath = socketPath
	}
	if debug {
		cfg.Debug = true
	}

	logger := newLogger(cfg.Debug)

	args := flag.Args()
	command := "daemon"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "daemon":
		err = runDaemon(cfg, logger)
	case "trigger":
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, "Usage: quicknote trigger ACTION")
			os.Exit(2)
		}
		err = runTrigger(cfg, args[0])
	case "show", "hide", "toggle", "shortcut", "sync":
		err = runTrigger(cfg, command)
	case "status":
		err = runStatus(cfg)
	case "edit":
		err = runEdit(cfg, logger)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", command)
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runDaemon(cfg *config.Config, logger *slog.Logger) error {
	deps, err := NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating dependencies: %w", err)
	}

	app := NewApplication(deps)
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx)
}

func runTrigger(cfg *config.Config, action string) error {
	client, err := daemon.Dial(cfg.SocketPath, daemon.HelloPayload{Role: daemon.RoleTrigger}, requestTimeout)
	if err != nil {
		return fmt.Errorf("daemon not reachable: %w", err)
	}
	defer client.Close()

	reply, err := client.Request(daemon.MsgTrigger, daemon.TriggerPayload{Action: action}, daemon.MsgStatus, requestTimeout)
	if err != nil {
		return err
	}
	var st daemon.StatusPayload
	if err := reply.Decode(&st); err != nil {
		return err
	}
	fmt.Println(st.State)
	return nil
}

func runStatus(cfg *config.Config) error {
	client, err := daemon.Dial(cfg.SocketPath, daemon.HelloPayload{Role: daemon.RoleStatus}, requestTimeout)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Println("not running")
			return nil
		}
		return fmt.Errorf("daemon not reachable: %w", err)
	}
	defer client.Close()

	reply, err := client.Request(daemon.MsgStatus, nil, daemon.MsgStatus, requestTimeout)
	if err != nil {
		return err
	}
	var st daemon.StatusPayload
	if err := reply.Decode(&st); err != nil {
		return err
	}

	out, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func printUsage() {
	fmt.Println("quicknote - floating scratchpad daemon")
	fmt.Println()
	fmt.Println("Usage: quicknote [OPTIONS] [COMMAND]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  daemon           Run the daemon (default)")
	fmt.Println("  trigger ACTION   Send hotcorner, shortcut, show, hide, toggle or sync")
	fmt.Println("  toggle           Shorthand for trigger toggle (also show, hide, shortcut, sync)")
	fmt.Println("  status           Print the daemon's state")
	fmt.Println("  edit             Edit the note in $EDITOR")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  QUICKNOTE_CONFIG           Path to config file")
	fmt.Println("  QUICKNOTE_SOCKET           Path to the daemon socket")
	fmt.Println("  QUICKNOTE_DATA_DIR         Directory holding the note")
	fmt.Println("  QUICKNOTE_PREFERENCES      Path to preferences.yaml")
	fmt.Println("  QUICKNOTE_EDITOR           Editor used by quicknote edit")
	fmt.Println("  QUICKNOTE_DEBUG            Enable debug logging (true/false)")
	fmt.Println("  QUICKNOTE_GRACE_PERIOD     Idle grace period after show (default: 50ms)")
	fmt.Println("  QUICKNOTE_NOTE_SAVE_DELAY  Note auto-save delay (default: 500ms)")
	fmt.Println()
	fmt.Println("Configuration file: ~/.config/quicknote/config.yaml")
}
