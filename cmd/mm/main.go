package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/modmill/modmill/internal/datasource"
	"github.com/modmill/modmill/pkg/config"
	"github.com/modmill/modmill/pkg/export"
	"github.com/modmill/modmill/pkg/loader"
	"github.com/modmill/modmill/pkg/ui"
	"github.com/modmill/modmill/pkg/version"
	"github.com/modmill/modmill/pkg/watcher"
)

func main() {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	dirFlag := flag.String("dir", "", "Data directory (overrides the configured game)")
	gameFlag := flag.String("game", "", "Game name from the config to open")
	snapshotFlag := flag.String("snapshot", "", "Write an SVG snapshot of the mod list to this path and exit")
	flag.Parse()

	// CPU profiling support
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: mm [options]")
		fmt.Println("\nA TUI mod and pack manager.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("mm %s\n", version.Version)
		os.Exit(0)
	}

	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		// Non-fatal: continue with defaults
		cfg = config.DefaultConfig()
	}
	if *gameFlag != "" {
		if cfg.FindGame(*gameFlag) == nil {
			fmt.Fprintf(os.Stderr, "Unknown game %q. Configured games:\n", *gameFlag)
			for _, g := range cfg.Games {
				fmt.Fprintf(os.Stderr, "  %s (%s)\n", g.Name, g.DataDir)
			}
			os.Exit(1)
		}
		cfg.ActiveGame = *gameFlag
	}

	dataDir := resolveDataDir(cfg, *dirFlag)
	if dataDir == "" {
		fmt.Fprintln(os.Stderr, "No data directory. Pass --dir or configure a game in "+config.ConfigPath())
		os.Exit(1)
	}

	collection, err := loader.LoadCollection(context.Background(), dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning %s: %v\n", dataDir, err)
		os.Exit(1)
	}

	// Headless snapshot export needs no terminal.
	if *snapshotFlag != "" || cfg.UI.Headless {
		path := *snapshotFlag
		if path == "" {
			path = filepath.Join(dataDir, "mm-mods.svg")
		}
		err := export.Snapshot(collection.Mods, nil, export.SnapshotOptions{
			Path:  path,
			Title: fmt.Sprintf("mm mods — %s", filepath.Base(dataDir)),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Snapshot failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", path)
		os.Exit(0)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "mm needs a terminal; use --snapshot for non-interactive export")
		os.Exit(1)
	}

	// Profile store lives next to the rest of the app data, not the game.
	var store *datasource.Store
	if appData := config.DataDir(); appData != "" {
		if err := os.MkdirAll(appData, 0o755); err == nil {
			store, err = datasource.Open(filepath.Join(appData, "profiles.db"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: profile store unavailable: %v\n", err)
				store = nil
			}
		}
	}
	if store != nil {
		defer store.Close()
	}

	// Live reload is best-effort; the TUI works without it.
	var w *watcher.Watcher
	if w, err = watcher.NewWatcher(dataDir); err == nil {
		if err := w.Start(); err != nil {
			w = nil
		}
	} else {
		w = nil
	}
	if w != nil {
		defer w.Stop()
	}

	app := ui.NewApp(cfg, dataDir, collection, w, store)
	if err := runTUIProgram(app); err != nil {
		fmt.Printf("Error running mm: %v\n", err)
		os.Exit(1)
	}
}

// resolveDataDir picks the data directory: flag first, then the active game.
func resolveDataDir(cfg config.Config, flagDir string) string {
	if flagDir != "" {
		abs, err := filepath.Abs(flagDir)
		if err != nil {
			return flagDir
		}
		return abs
	}
	return cfg.ActiveGameDir()
}

func runTUIProgram(app ui.App) error {
	p := tea.NewProgram(
		app,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set MM_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("MM_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted)) {
		return nil
	}
	return err
}

// gameSummary is used by --help style listings and tests.
func gameSummary(games []config.Game) string {
	var sb strings.Builder
	for _, g := range games {
		fmt.Fprintf(&sb, "%s\t%s\n", g.Name, g.DataDir)
	}
	return sb.String()
}
