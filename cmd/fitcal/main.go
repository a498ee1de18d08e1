package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"fitcal/internal/capture"
	"fitcal/internal/config"
	"fitcal/internal/dateutil"
	appLog "fitcal/internal/log"
	"fitcal/internal/session"
	"fitcal/internal/store"
	"fitcal/internal/tui"
	"fitcal/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	listen     string
	tui        bool
	once       bool
	debug      bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	level := conf.LogLevel
	if flags.debug {
		level = "debug"
	}
	appLog.SetLevel(appLog.ParseLevel(level))

	appLog.Info("fitcal starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"data_dir", conf.DataDir,
		"refresh", conf.RefreshCron,
		"snapshot", conf.Snapshot,
		"plan_count", len(conf.Plans),
		"class_count", len(conf.Classes),
		"tui", flags.tui,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("fitcal exited with error", err)
		os.Exit(1)
	}
	appLog.Info("fitcal exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	if err := os.MkdirAll(conf.DataDir, 0o700); err != nil {
		return err
	}

	db, err := store.Open(conf.DBPath())
	if err != nil {
		return err
	}
	defer db.Close()

	tracker := session.NewTracker(db)

	if flags.tui {
		return runTUI(ctx, conf, db, tracker)
	}

	srv, err := web.NewServer(conf, db, tracker)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              conf.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Listen before serving so a -once snapshot can reach the page.
	ln, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		return err
	}
	serveErr := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	defer shutdown(httpSrv)

	if flags.once {
		refresh(ctx, conf, srv)
		return nil
	}

	c := cron.New(cron.WithLocation(srv.Calendar().Location()))
	if _, err := c.AddFunc(conf.RefreshCron, func() { refresh(ctx, conf, srv) }); err != nil {
		return err
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	// Warm the planned events and snapshot right away instead of waiting
	// for the first tick.
	go refresh(ctx, conf, srv)

	select {
	case <-ctx.Done():
		return nil
	case err, ok := <-serveErr:
		if ok {
			return err
		}
		return nil
	}
}

// refresh reloads plans and class feeds, then captures the month snapshot
// when enabled.
func refresh(ctx context.Context, conf *config.Config, srv *web.Server) {
	srv.Refresh(ctx)
	if !conf.Snapshot {
		return
	}

	opts := capture.Options{
		BaseURL:    localBaseURL(conf.Listen),
		OutputPath: conf.PreviewPath(),
	}
	if conf.BasicAuth != nil {
		opts.Username = conf.BasicAuth.Username
		opts.Password = conf.BasicAuth.Password
	}
	if err := capture.MonthSnapshot(ctx, opts, dateutil.Now()); err != nil {
		appLog.Error("month snapshot failed", err)
	}
}

func shutdown(httpSrv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		appLog.Error("HTTP server shutdown failed", err)
	}
}

func runTUI(ctx context.Context, conf *config.Config, db *store.DB, tracker *session.Tracker) error {
	loc, err := conf.Location()
	if err != nil {
		return err
	}

	logFile, err := os.OpenFile(filepath.Join(conf.DataDir, "fitcal.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer logFile.Close()
	defer appLog.SetOutput(os.Stderr)

	return tui.Run(ctx, tui.Deps{
		Store:     db,
		Session:   tracker,
		Calendar:  dateutil.NewCalendar(loc),
		LogOutput: logFile,
	})
}

// localBaseURL is the URL the snapshot browser uses to reach this process.
// Wildcard listen hosts are replaced with loopback.
func localBaseURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/fitcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.tui, "tui", false, "Run the terminal home screen instead of the HTTP server")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh (+snapshot) cycle and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
