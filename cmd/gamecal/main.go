package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"gamecal/internal/config"
	appLog "gamecal/internal/log"
	"gamecal/internal/model"
	"gamecal/internal/schedule"
	"gamecal/internal/snapshot"
	"gamecal/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values that override the config file.
type flagConfig struct {
	configPath string
	listen     string
	source     string
	once       bool
	icsPath    string
	debug      bool
}

func main() {
	flags := parseFlags()
	if err := run(flags); err != nil {
		appLog.Error("gamecal failed", err)
		os.Exit(1)
	}
}

func run(flags flagConfig) error {
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", flags.configPath, err)
	}

	// CLI flags override the config file.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.source != "" {
		conf.Snapshot.Source = flags.source
	}
	if flags.debug {
		conf.LogLevel = string(appLog.LevelDebug)
	}
	level, err := appLog.ParseLevel(conf.LogLevel)
	if err != nil {
		return err
	}
	appLog.SetLevel(level)

	appLog.Info("gamecal starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"min_players", conf.MinPlayers,
		"once", flags.once,
		"ics", flags.icsPath,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := snapshot.NewStore(snapshot.NewFetcher(conf.Snapshot.CacheDir), conf.Snapshot.Source)
	initialErr := store.Refresh(ctx)

	switch {
	case flags.once:
		if initialErr != nil {
			return initialErr
		}
		return printReport(store, conf)
	case flags.icsPath != "":
		if initialErr != nil {
			return initialErr
		}
		return writeCalendar(store, conf, flags.icsPath)
	}

	// The server starts even without a snapshot; the API answers 503 until
	// a scheduled refresh succeeds.
	if err := store.Start(ctx, conf.RefreshCron, conf.Location()); err != nil {
		return err
	}
	return serve(ctx, conf, store)
}

func printReport(store *snapshot.Store, conf *config.Config) error {
	snap, err := store.Current()
	if err != nil {
		return err
	}
	report, err := schedule.BuildReport(schedule.SuggestInput{
		Game:         snap.Game,
		Players:      snap.Players,
		Availability: snap.Availability,
		MinPlayers:   conf.MinPlayers,
		Order:        schedule.OrderRanked,
		Today:        model.DateOf(time.Now().In(conf.Location())),
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeCalendar(store *snapshot.Store, conf *config.Config, path string) error {
	snap, err := store.Current()
	if err != nil {
		return err
	}
	body := web.RenderCalendar(conf, snap, time.Now())
	if err := config.WriteFileAtomic(path, []byte(body), ".gamecal-ics-*.tmp"); err != nil {
		return fmt.Errorf("write calendar %s: %w", path, err)
	}
	appLog.Info("calendar written", "path", path, "sessions", len(snap.Sessions))
	return nil
}

func serve(ctx context.Context, conf *config.Config, store *snapshot.Store) error {
	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           web.NewServer(conf, store).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	appLog.Info("gamecal exiting")
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/gamecal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.source, "snapshot", "", "Snapshot path or URL (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Print the suggestion report as JSON and exit")
	flag.StringVar(&cfg.icsPath, "ics", "", "Write the session calendar to this path and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
