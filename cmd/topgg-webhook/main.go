package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-topgg/adapters/gocommand"
	"github.com/goliatone/go-topgg/adapters/gologger"
	"github.com/goliatone/go-topgg/adapters/prom"
	"github.com/goliatone/go-topgg/core"
	sqlstore "github.com/goliatone/go-topgg/store/sql"
	"github.com/goliatone/go-topgg/webhook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type options struct {
	listen      string
	configFile  string
	sqliteDSN   string
	postgresDSN string
	retention   time.Duration
	debug       bool
}

func main() {
	var opts options
	flag.StringVar(&opts.listen, "listen", ":8080", "HTTP listen address.")
	flag.StringVar(&opts.configFile, "config", "topgg.yaml", "Optional YAML config file.")
	flag.StringVar(&opts.sqliteDSN, "sqlite", "", "Record votes to this sqlite DSN.")
	flag.StringVar(&opts.postgresDSN, "postgres", "", "Record votes to this postgres DSN.")
	flag.DurationVar(&opts.retention, "retention", 0, "Prune recorded votes older than this. Zero keeps everything.")
	flag.BoolVar(&opts.debug, "debug", false, "Enable debug logging.")
	flag.Parse()

	level := slog.LevelInfo
	if opts.debug {
		level = slog.LevelDebug
	}
	base := gologger.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	loggers := gologger.ResolveForJob(core.DefaultServiceName, base, nil)
	logger := loggers.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, loggers); err != nil {
		logger.Error("topgg-webhook: exiting", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, loggers gologger.Loggers) error {
	logger := loggers.Named("main")

	cfg, err := core.LoadConfig(ctx, core.Config{}, core.WithConfigFile(opts.configFile))
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := prom.NewRecorder(registry)

	handlers := core.VoteHandlers{}

	client, err := openStore(ctx, opts)
	if err != nil {
		return err
	}
	if client != nil {
		defer client.Close()
		store, err := sqlstore.NewVoteStoreFromClient(client)
		if err != nil {
			return err
		}
		handlers = append(handlers, sqlstore.NewRecorder(store, loggers.Named("store"), metrics))
		if opts.retention > 0 {
			go prune(ctx, store, opts.retention, loggers.Named("store"))
		}
	}

	voteLogger := loggers.Named("votes")
	subscription := gocommand.SubscribeVotes(func(ctx context.Context, vote core.Vote) error {
		voteLogger.WithContext(ctx).Info("vote received",
			"target", vote.Target().String(),
			"user", vote.User.String(),
			"type", string(vote.Type),
			"weekend", vote.IsWeekend,
		)
		return nil
	})
	if subscription != nil {
		defer subscription.Unsubscribe()
	}
	handlers = append(handlers, gocommand.NewHandler(loggers.Named("gocommand"), metrics))

	hook, err := webhook.NewFromConfig(cfg, handlers,
		webhook.WithLoggerProvider(loggers.Provider),
		webhook.WithMetricsRecorder(metrics),
	)
	if err != nil {
		return err
	}

	router := webhook.NewMux(cfg.Webhook.Path, hook)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              opts.listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("topgg-webhook: listening", "addr", opts.listen, "path", cfg.Webhook.Path)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logger.Info("topgg-webhook: shutting down")
	return server.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, opts options) (*persistence.Client, error) {
	switch {
	case opts.postgresDSN != "":
		return sqlstore.OpenPostgres(ctx, opts.postgresDSN)
	case opts.sqliteDSN != "":
		return sqlstore.OpenSQLite(ctx, opts.sqliteDSN)
	default:
		return nil, nil
	}
}

func prune(ctx context.Context, store *sqlstore.VoteStore, retention time.Duration, logger core.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		removed, err := store.Prune(ctx, retention)
		if err != nil {
			logger.Warn("topgg-webhook: prune votes failed", "error", err)
		} else if removed > 0 {
			logger.Info("topgg-webhook: pruned votes", "removed", removed)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
