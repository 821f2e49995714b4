package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/craftpanel/internal/backup"
	"github.com/tinytelemetry/craftpanel/internal/distribution"
	"github.com/tinytelemetry/craftpanel/internal/history"
	"github.com/tinytelemetry/craftpanel/internal/httpserver"
	"github.com/tinytelemetry/craftpanel/internal/lookup"
	"github.com/tinytelemetry/craftpanel/internal/model"
	"github.com/tinytelemetry/craftpanel/internal/panel"
	"github.com/tinytelemetry/craftpanel/internal/settings"
	"github.com/tinytelemetry/craftpanel/internal/socketrpc"
)

// runServer runs the panel until SIGINT or SIGTERM.
func runServer(cfg appConfig) error {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	appSettings := settings.NewStore(filepath.Join(cfg.DataDir, settings.DefaultFile))
	if _, err := appSettings.Load(); err != nil {
		log.Printf("server: app config: %v", err)
	}

	resolver, err := lookup.NewResolver(lookup.Options{
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		UserAgent:  cfg.UserAgent,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize lookup: %w", err)
	}

	// History is optional. Interfaces stay nil when it is disabled so the
	// panel falls back to its no-op recorder.
	var (
		recorder model.RunRecorder
		reader   model.HistoryReader
	)
	if cfg.HistoryEnabled {
		store, err := history.NewStore(cfg.HistoryDBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize run history: %w", err)
		}
		defer store.Close()

		rec := history.NewRecorder(store)
		defer rec.Stop()

		cleaner := history.NewRetentionCleaner(store, history.RetentionConfig{
			RetentionDays: cfg.HistoryRetention,
		})
		if cleaner != nil {
			defer cleaner.Stop()
		}

		snapshots, err := backup.NewManager(store, backup.Config{
			Enabled:  cfg.BackupEnabled,
			Interval: cfg.BackupInterval,
			Dir:      cfg.BackupDir,
			KeepLast: cfg.BackupKeepLast,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize history snapshots: %w", err)
		}
		if snapshots != nil {
			defer snapshots.Stop()
		}
		recorder, reader = rec, store
	}

	svc := panel.New(panel.Options{
		Root:     cfg.RootDir,
		Settings: appSettings,
		JavaPath: cfg.JavaPath,
		Distribution: distribution.NewClient(distribution.Options{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.DownloadTimeout,
		}),
		Lookup:            resolver,
		Recorder:          recorder,
		History:           reader,
		StopTimeout:       cfg.StopTimeout,
		DeleteStopTimeout: cfg.DeleteStopTimeout,
		DeleteGrace:       cfg.DeleteGrace,
		Host:              cfg.Host,
		Port:              cfg.Port,
	})
	// Runs before the history recorder and store are closed, so the final
	// exit is still recorded.
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.StopTimeout+2*time.Second)
		defer cancel()
		if err := svc.Close(ctx); err != nil {
			log.Printf("server: stopping minecraft server: %v", err)
		}
	}()

	apiServer := httpserver.NewServer(cfg.Addr(), svc, httpserver.Config{StaticDir: staticDir(cfg.StaticDir)})
	if err := apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	defer apiServer.Stop()

	// The control socket is optional; a failure only disables the console client.
	socketUp := false
	if cfg.SocketEnabled {
		sockServer := socketrpc.NewServer(cfg.SocketPath, svc)
		if err := sockServer.Start(); err != nil {
			log.Printf("Warning: failed to start socket server: %v", err)
		} else {
			socketUp = true
			defer sockServer.Stop()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		log.Printf("server: shutdown requested")
		cancel()

		// The deadline starts at the first signal.
		deadline := time.NewTimer(cfg.ShutdownTimeout + cfg.StopTimeout)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		cleanupSocket(cfg.SocketPath)
		os.Exit(1)
	}()

	printStartupBanner(cfg, apiServer.Addr(), socketUp)
	log.Printf("server: listening on %s, root %s", apiServer.Addr(), cfg.RootDir)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("server: errgroup exited with error: %v", err)
	}

	signal.Stop(sigCh)
	return nil
}

// staticDir returns dir when it exists and is a directory.
func staticDir(dir string) string {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ""
	}
	return dir
}

func cleanupSocket(path string) {
	if path != "" {
		os.Remove(path)
	}
}

func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "craftpanel")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logPath := filepath.Join(logDir, "craftpanel.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}

func printStartupBanner(cfg appConfig, apiAddr string, socketUp bool) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	row := func(ok bool, label, value string) string {
		mark := dot
		if ok {
			mark = check
		}
		return fmt.Sprintf("    %s  %-14s %s", mark, label, value)
	}

	logo := green.Bold(true).Render(`
    ╔═╗╦═╗╔═╗╔═╗╔╦╗╔═╗╔═╗╔╗╔╔═╗╦
    ║  ╠╦╝╠═╣╠╣  ║ ╠═╝╠═╣║║║║╣ ║
    ╚═╝╩╚═╩ ╩╚   ╩ ╩  ╩ ╩╝╚╝╚═╝╩═╝`)

	separator := dim.Render("    ─────────────────────────────────")

	lines := []string{"", logo, "    " + dim.Render("v"+version), "", separator, ""}

	lines = append(lines, bold.Render("    Gateway"), "")
	lines = append(lines, row(true, "HTTP API", cyan.Render("http://"+apiAddr)))
	if socketUp {
		lines = append(lines, row(true, "Unix Socket", cyan.Render(shortenPath(cfg.SocketPath))))
	} else {
		lines = append(lines, row(false, "Unix Socket", dim.Render("disabled")))
	}
	if dir := staticDir(cfg.StaticDir); dir != "" {
		lines = append(lines, row(true, "Web UI", dim.Render(shortenPath(dir))))
	} else {
		lines = append(lines, row(false, "Web UI", dim.Render("not found")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Storage"), "")
	lines = append(lines, row(true, "Root", dim.Render(shortenPath(cfg.RootDir))))
	lines = append(lines, row(true, "Data", dim.Render(shortenPath(cfg.DataDir))))
	if cfg.HistoryEnabled {
		lines = append(lines, row(true, "Run History", dim.Render(shortenPath(cfg.HistoryDBPath))))
	} else {
		lines = append(lines, row(false, "Run History", dim.Render("disabled")))
	}
	if cfg.HistoryEnabled && cfg.BackupEnabled {
		lines = append(lines, row(true, "Snapshots", dim.Render(shortenPath(cfg.BackupDir))))
	} else {
		lines = append(lines, row(false, "Snapshots", dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, row(true, "Config File", dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, row(false, "Config File", dim.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
