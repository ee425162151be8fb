package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/starsep/gtfs-tczew/internal/app"
	"github.com/starsep/gtfs-tczew/internal/appconf"
	"github.com/starsep/gtfs-tczew/internal/cache"
	"github.com/starsep/gtfs-tczew/internal/gtfs"
	"github.com/starsep/gtfs-tczew/internal/httpfetch"
	"github.com/starsep/gtfs-tczew/internal/logging"
	"github.com/starsep/gtfs-tczew/internal/operator"
	"github.com/starsep/gtfs-tczew/internal/osmtree"
	"github.com/starsep/gtfs-tczew/internal/report"
	"github.com/starsep/gtfs-tczew/internal/webui"
)

// flags override the configuration file.
type flags struct {
	configPath string
	env        string
	port       int
	logLevel   string
	outputDir  string
	database   string
	apiKeys    string
	serve      bool
	quiet      bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("gtfs-tczew", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "Path to a YAML configuration file")
	fs.StringVar(&f.env, "env", "", "Environment (development|test|production)")
	fs.IntVar(&f.port, "port", 0, "Web UI port")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	fs.StringVar(&f.outputDir, "output", "", "Output directory")
	fs.StringVar(&f.database, "db", "", "SQLite database the feed is imported into")
	fs.StringVar(&f.apiKeys, "api-keys", "", "Comma separated keys allowed to trigger a regeneration")
	fs.BoolVar(&f.serve, "serve", false, "Keep serving the generated feed over HTTP")
	fs.BoolVar(&f.quiet, "quiet", false, "Do not print the comparison report")
	err := fs.Parse(args)
	return f, err
}

func loadConfig(f flags) (appconf.Config, error) {
	cfg, err := appconf.Load(f.configPath)
	if err != nil {
		return cfg, err
	}
	if f.env != "" {
		cfg.Env = appconf.EnvFlagToEnvironment(f.env)
	}
	if f.port != 0 {
		cfg.Server.Port = f.port
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.outputDir != "" {
		cfg.Output.Dir = f.outputDir
	}
	if f.database != "" {
		cfg.Output.Database = f.database
	}
	if f.apiKeys != "" {
		cfg.Server.APIKeys = nil
		for _, key := range strings.Split(f.apiKeys, ",") {
			if key = strings.TrimSpace(key); key != "" {
				cfg.Server.APIKeys = append(cfg.Server.APIKeys, key)
			}
		}
	}
	return cfg, appconf.Validate(cfg)
}

// buildSources wires both upstream clients to a shared response cache.
// Responses expire before the next periodic run, which builds its own clients
// through the returned factory.
func buildSources(cfg appconf.Config, logger *slog.Logger) (gtfs.SourceFactory, cache.Store, error) {
	ttl := cfg.CacheTTL()
	var store cache.Store = cache.NewMemoryStore(cfg.HTTP.CacheSize, ttl)
	if cfg.HTTP.CachePath != "" {
		sqliteStore, err := cache.NewSQLiteStore(cfg.HTTP.CachePath, ttl)
		if err != nil {
			return nil, nil, fmt.Errorf("error opening response cache: %w", err)
		}
		store = cache.NewTiered(store, sqliteStore)
	}

	client := &http.Client{}
	fetcherFor := func(requestsPerSecond float64) *httpfetch.Fetcher {
		return httpfetch.New(client, store, logger, httpfetch.Options{
			Timeout:           cfg.Timeout(),
			RequestsPerSecond: requestsPerSecond,
			MaxRetries:        cfg.HTTP.MaxRetries,
			UserAgent:         cfg.HTTP.UserAgent,
		})
	}

	osmFetcher := fetcherFor(cfg.OSM.RequestsPerSecond)
	operatorFetcher := fetcherFor(cfg.Operator.RequestsPerSecond)
	factory := func() gtfs.Sources {
		return gtfs.Sources{
			OSM: osmtree.NewAPIClient(osmFetcher, cfg.OSM.APIURL),
			Operator: operator.NewClient(operatorFetcher, operator.ClientConfig{
				BaseURL:         cfg.Operator.BaseURL,
				TimetableID:     cfg.Operator.TimetableID,
				AverageSpeedKmh: cfg.Operator.AverageSpeedKmh,
			}, logger),
		}
	}
	return factory, store, nil
}

func run(ctx context.Context, args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.NewLogger(os.Stderr, level, cfg.Log.Format)

	sources, store, err := buildSources(cfg, logger)
	if err != nil {
		return logging.ReplaceLogFatal(logger, "failed to build upstream clients", err)
	}
	defer logging.SafeCloseWithLogging(store, logger, "close_response_cache")

	var sinks []report.Sink
	if !f.quiet {
		sinks = append(sinks, report.NewTextSink(os.Stdout))
	}

	manager, err := gtfs.InitGTFSManager(gtfs.ConfigFromApp(cfg), sources, logger, sinks...)
	if err != nil {
		return logging.ReplaceLogFatal(logger, "failed to initialize GTFS manager", err)
	}
	defer manager.Shutdown()

	if _, err := manager.Generate(ctx); err != nil {
		return logging.ReplaceLogFatal(logger, "failed to generate feed", err)
	}
	manager.PrintStatistics()

	if !f.serve {
		return nil
	}

	application := &app.Application{
		Config:      cfg,
		Logger:      logger,
		GtfsManager: manager,
	}
	manager.StartPeriodicUpdates(cfg.RefreshInterval())
	return serve(ctx, application)
}

func serve(ctx context.Context, application *app.Application) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", application.Config.Server.Port),
		Handler:      webui.NewWebUI(application).Handler(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Minute,
		ErrorLog:     slog.NewLogLogger(application.Logger.Handler(), slog.LevelError),
	}

	errs := make(chan error, 1)
	go func() {
		application.Logger.Info("starting server", "addr", srv.Addr, "env", application.Config.Env.String())
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
