package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"topolab/internal/collector"
	"topolab/internal/handler"
	"topolab/internal/hub"
	"topolab/internal/repository/sqlite"
	"topolab/internal/service"
	"topolab/internal/topology"
	"topolab/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	collector    collectorFlags
	addr         string
	dbPath       string
	pollInterval time.Duration
	watch        bool
	debounce     time.Duration
}

func newServeCmd(a *app) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the topology over HTTP and rebuild it periodically",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.collector.apply(cmd, a.cfg)
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = opts.addr
			}
			if cmd.Flags().Changed("db") {
				a.cfg.Database.Path = opts.dbPath
			}
			if !cmd.Flags().Changed("poll-interval") {
				opts.pollInterval = a.cfg.Build.PollInterval.Duration()
			}
			if opts.watch && opts.collector.fixture == "" {
				return fmt.Errorf("--watch requires --fixture")
			}
			return runServe(cmd.Context(), a, opts)
		},
	}

	opts.collector.register(cmd)
	cmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address (default from config, :3000)")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "SQLite database path (default from config)")
	cmd.Flags().DurationVar(&opts.pollInterval, "poll-interval", 0, "rebuild interval, 0 disables polling")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "rebuild whenever the --fixture file changes")
	cmd.Flags().DurationVar(&opts.debounce, "watch-debounce", watcher.DefaultDebounce, "quiet period after a fixture write before rebuilding")
	return cmd
}

func runServe(ctx context.Context, a *app, opts serveOptions) error {
	logger := a.logger
	logger.Info("Starting topolab server")

	repo, err := sqlite.New(a.cfg.Database.Path, logger.Named("sqlite"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()
	logger.Info("Database opened", zap.String("path", a.cfg.Database.Path))

	src, cleanup, firewallIP, err := a.openCollector(ctx, opts.collector)
	if err != nil {
		return err
	}
	defer cleanup()

	eventBus := service.NewEventBus()
	sseHub := hub.New(logger.Named("hub"))

	builder := topology.NewBuilder(src,
		topology.WithLogger(logger.Named("builder")),
		topology.WithFirewallIP(firewallIP),
	)
	svc := service.NewTopologyService(builder, repo, eventBus, logger.Named("service"),
		service.WithHistoryLimit(a.cfg.Build.HistoryLimit))

	topologyHandler := handler.NewTopologyHandler(svc, logger.Named("http"))
	topologyHandler.SetClientCounter(sseHub)

	mux := http.NewServeMux()
	topologyHandler.Register(mux)
	mux.Handle("GET /events", sseHub)

	server := &http.Server{
		Addr: a.cfg.Server.Addr,
		Handler: handler.Chain(mux,
			handler.Recover(logger),
			handler.CORS,
			handler.Logger(logger.Named("http")),
		),
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: event streams stay open.
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sseHub.Run(gctx)
		return nil
	})

	// Connect event bus to SSE hub
	events := make(chan service.Event, 100)
	eventBus.Subscribe(events)
	g.Go(func() error {
		defer eventBus.Unsubscribe(events)
		for {
			select {
			case <-gctx.Done():
				return nil
			case event := <-events:
				sseHub.Broadcast(event)
			}
		}
	})

	if opts.pollInterval > 0 {
		poller := service.NewPoller(svc, opts.pollInterval, logger.Named("poller"))
		g.Go(func() error {
			poller.Run(gctx)
			return nil
		})
	} else {
		logger.Info("Polling disabled, building on first request")
	}

	if fixture, ok := src.(*collector.Fixture); ok && opts.watch {
		path := opts.collector.fixture
		w := watcher.New(path, func(ctx context.Context) {
			if err := fixture.Reload(path); err != nil {
				logger.Warn("Keeping previous inventory", zap.Error(err))
				return
			}
			// Failures are logged and published by the service
			_, _, _ = svc.Rebuild(ctx)
		}, logger.Named("watcher")).WithDebounce(opts.debounce)
		g.Go(func() error {
			return w.Watch(gctx)
		})
	}

	g.Go(func() error {
		logger.Info("Server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
