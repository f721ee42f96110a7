package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"medsys.org/internal/accounts"
	"medsys.org/internal/auth"
	"medsys.org/internal/config"
	"medsys.org/internal/grpcapi"
	"medsys.org/internal/httpapi"
	"medsys.org/internal/obs"
	"medsys.org/internal/records"
	"medsys.org/internal/store/pg"
)

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

// services bundles everything the transports need.
type services struct {
	store     *pg.Store
	validator *auth.Validator
	verifier  *auth.Verifier
	accounts  *accounts.Service
	records   *records.Service
}

func buildServices(cfg config.Config, store *pg.Store) (*services, error) {
	issuer, err := auth.NewIssuer(cfg.JWT, auth.SystemClock)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "token issuer")
	}
	validator, err := auth.NewValidator(cfg.JWT, cfg.ValidatorOptions()...)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "token validator")
	}
	verifier, err := auth.NewVerifier(store, issuer)
	if err != nil {
		return nil, err
	}
	hasher, err := auth.HasherFor(cfg.Auth.Hasher)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	acc, err := accounts.NewService(store, accounts.WithHasher(hasher))
	if err != nil {
		return nil, err
	}
	recs, err := records.NewService(store, nil)
	if err != nil {
		return nil, err
	}
	return &services{store: store, validator: validator, verifier: verifier, accounts: acc, records: recs}, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := newLogger(cfg)
	obs.Init()
	obs.InitBuildInfo(version, commit, time.Now())

	store, err := openStore(ctx, cfg)
	if err != nil {
		obs.LogError(ctx, logger, "database unavailable", err)
		return err
	}
	defer store.Close()

	svc, err := buildServices(cfg, store)
	if err != nil {
		return err
	}

	proxies, err := httpapi.ParseTrustedProxies(cfg.HTTP.TrustedProxies)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	api := httpapi.New(
		httpapi.WithLogger(logger),
		httpapi.WithVersion(version),
		httpapi.WithAuthenticator(svc.verifier),
		httpapi.WithTokenValidator(svc.validator),
		httpapi.WithAccounts(svc.accounts),
		httpapi.WithRecords(svc.records),
		httpapi.WithReadiness(store),
		httpapi.WithLoginRate(cfg.HTTP.LoginRate, cfg.HTTP.LoginBurst),
		httpapi.WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes),
		httpapi.WithCORSOrigins(cfg.HTTP.CORSOrigins...),
		httpapi.WithTrustedProxies(proxies...),
	)
	defer api.Close()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- oops.Code("HTTP_SERVE_FAILED").Wrap(err)
		}
	}()

	var grpcSrv *grpcapi.Server
	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return oops.Code("GRPC_LISTEN_FAILED").With("addr", cfg.GRPC.Addr).Wrap(err)
		}
		authorizer := grpcapi.NewAuthorizer(svc.validator, cfg.GRPCPolicies(grpcapi.DefaultPolicies()), grpcapi.PublicMethods()...)
		grpcSrv = grpcapi.NewServer(logger, authorizer, store)
		go grpcSrv.WatchReadiness(ctx, 15*time.Second)
		go func() {
			logger.Info("grpc server starting", "addr", cfg.GRPC.Addr)
			if err := grpcSrv.GRPC().Serve(lis); err != nil {
				errCh <- oops.Code("GRPC_SERVE_FAILED").Wrap(err)
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		obs.LogError(ctx, logger, "server failed", err)
		return err
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if grpcSrv != nil {
		grpcSrv.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		obs.LogError(shutdownCtx, logger, "http shutdown", err)
	}
	logger.Info("stopped")
	return nil
}
