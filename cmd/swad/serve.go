package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	swad "github.com/MrEthical07/swad"
	"github.com/MrEthical07/swad/handler"
	"github.com/MrEthical07/swad/metrics/export/prometheus"
	"github.com/MrEthical07/swad/middleware"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gw, logger, err := buildGateway(flags)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, gw, logger)
		},
	}
}

// routes mounts the login and forward-auth handlers behind the session
// middleware. The metrics endpoint stays outside so scrapes create no
// sessions.
func routes(gw *swad.Gateway) http.Handler {
	cfg := gw.Config()

	app := http.NewServeMux()
	app.Handle(cfg.Server.LoginRoute, handler.Login(gw))
	app.Handle("/{$}", handler.Check(gw))

	if !cfg.Metrics.Enabled || cfg.Metrics.Path == "" {
		return middleware.Sessions(gw)(app)
	}
	root := http.NewServeMux()
	root.Handle("GET "+cfg.Metrics.Path, prometheus.NewExporter(gw).Handler())
	root.Handle("/", middleware.Sessions(gw)(app))
	return root
}

func serve(ctx context.Context, gw *swad.Gateway, logger *zap.Logger) error {
	cfg := gw.Config()
	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           routes(gw),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ErrorLog:          zap.NewStdLog(logger.Named("http")),
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	swept := make(chan struct{})
	go func() {
		defer close(swept)
		gw.Run(sweepCtx)
	}()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Listen), zap.Strings("realms", gw.Registry().RealmNames()))
		errc <- srv.ListenAndServe()
	}()

	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		err = srv.Shutdown(shutdownCtx)
		cancel()
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	stopSweep()
	<-swept
	if cerr := gw.Close(); cerr != nil {
		logger.Warn("closing checkers", zap.Error(cerr))
	}
	return err
}
