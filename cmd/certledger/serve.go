package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	jwttoken "certledger/internal/jwt_token"
	"certledger/internal/platform/config"
	"certledger/internal/platform/httpserver"
	"certledger/internal/platform/metrics"
	"certledger/internal/platform/tracing"
	httptransport "certledger/internal/transport/http"
	"certledger/pkg/platform/middleware/auth"
)

func serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reconciliation worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serveRun(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

func serveRun(ctx context.Context, cfg *config.Config) error {
	log := commonRun(cfg)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, programName, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Error("failed to flush traces", "error", err)
		}
	}()

	m := metrics.New(version)
	a, err := wire(ctx, *cfg, log, m.Registry)
	if err != nil {
		return err
	}
	defer a.Close()

	var validator auth.JWTValidator
	if cfg.Auth.JWTSigningKey != "" {
		validator = jwttoken.NewJWTValidatorAdapter(
			jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience),
		)
	} else if !cfg.Auth.AllowWalletHeader {
		log.Warn("no jwt signing key and wallet header disabled; issuance endpoints will reject every request")
	}

	h := httptransport.New(a.issuance, a.resolution, a.legacy, a.index, log.With("component", "http"))
	router := httptransport.NewRouter(h, httptransport.RouterConfig{
		Logger:            log,
		Validator:         validator,
		AllowWalletHeader: cfg.Auth.AllowWalletHeader,
		Gatherer:          m.Registry,
		RequestTimeout:    cfg.Server.RequestTimeout,
	})
	srv := httpserver.New(cfg.Server, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting certledger", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := a.worker.Run(gctx, a.source); err != nil {
			return fmt.Errorf("reconcile worker: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("server stopped")
		return nil
	})
	return g.Wait()
}
