package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"ripple/internal/config"
)

var (
	configPath = flag.String("config", "./ripple.toml", "Path to config file")
	rootFlag   = flag.String("root", "", "Project root to analyze (default from config)")
	revRange   = flag.String("range", "", "Git revision range to analyze (default from config)")
	jsonOut    = flag.Bool("json", false, "Print the result as JSON")
	watch      = flag.Bool("watch", false, "Re-analyze on file changes")
	ui         = flag.Bool("ui", false, "Enable terminal UI mode (implies -watch)")
	trend      = flag.Bool("trend", false, "Print trend report from run history and exit")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("ripple v%s\n", VERSION)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stderr
	if *ui {
		// In UI mode, avoid terminal logs corrupting the TUI.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
				if err == nil {
					output = f
				} else {
					fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath == "./ripple.toml" {
			cfg, err = config.Load("./ripple.example.toml")
		}
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	if *rootFlag != "" {
		cfg.Project.Root = *rootFlag
	} else if flag.NArg() > 0 {
		cfg.Project.Root = flag.Arg(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer app.Close(context.Background())

	if *trend {
		if err := app.RunTrend(os.Stdout, *jsonOut); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		return
	}

	if err := app.StartObservability(ctx, VERSION); err != nil {
		slog.Error("failed to start observability", "error", err)
		os.Exit(1)
	}

	result, err := app.RunOnce(ctx, *revRange)
	if err != nil {
		slog.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	if *jsonOut {
		if err := app.PrintJSON(os.Stdout, result); err != nil {
			slog.Error("failed to encode result", "error", err)
			os.Exit(1)
		}
	} else if !*ui {
		app.PrintSummary(os.Stdout, result)
	}

	if !*watch && !*ui {
		return
	}

	if err := app.StartWatcher(ctx); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}

	if *ui {
		if err := app.RunUI(result); err != nil {
			slog.Error("failed to run UI", "error", err)
			os.Exit(1)
		}
		return
	}

	<-ctx.Done()
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "ripple", "ripple.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "ripple", "ripple.log")
	}

	return "ripple.log"
}
