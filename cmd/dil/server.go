package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mindburn-Labs/dil/pkg/api"
	"github.com/Mindburn-Labs/dil/pkg/config"
	"github.com/Mindburn-Labs/dil/pkg/crypto"
	"github.com/Mindburn-Labs/dil/pkg/engine"
	"github.com/Mindburn-Labs/dil/pkg/observability"
)

const shutdownTimeout = 10 * time.Second

//nolint:gocognit
func runServer(stdout, stderr io.Writer) int {
	fmt.Fprintf(stdout, "%sDIL API starting...%s\n", ColorBold+ColorBlue, ColorReset)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, ok := loadConfig(stderr)
	if !ok {
		return 2
	}
	logger := newLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	telCfg := observability.DefaultConfig()
	telCfg.ServiceVersion = version
	telCfg.Enabled = cfg.Telemetry.Enabled
	telCfg.OTLPEndpoint = cfg.Telemetry.Endpoint
	telCfg.Insecure = cfg.Telemetry.Insecure
	tel, err := observability.New(ctx, telCfg)
	if err != nil {
		log.Printf("[dil] telemetry init failed: %v", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = tel.Shutdown(sctx)
	}()

	hasher, err := crypto.NewRecordHasher(cfg.Secret())
	if err != nil {
		log.Printf("[dil] %v", err)
		return 2
	}
	lgr, closer, err := openLedger(ctx, cfg, hasher)
	if err != nil {
		log.Printf("[dil] failed to open ledger: %v", err)
		return 1
	}
	defer func() { _ = closer.Close() }()
	log.Printf("[dil] ledger: %d records restored", lgr.Size())

	eng, err := engine.New(lgr, engine.Options{Logger: logger, Telemetry: tel})
	if err != nil {
		log.Printf("[dil] engine init failed: %v", err)
		return 1
	}

	limiter, err := newLimiter(ctx, cfg)
	if err != nil {
		log.Printf("[dil] rate limiter init failed: %v", err)
		return 1
	}

	srv, err := api.NewServer(eng, api.Options{Logger: logger, Limiter: limiter, Version: version})
	if err != nil {
		log.Printf("[dil] api init failed: %v", err)
		return 1
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[dil] ready: http://localhost:%s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Printf("[dil] server error: %v", err)
			return 1
		}
	case <-ctx.Done():
	}

	log.Println("[dil] shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		log.Printf("[dil] shutdown: %v", err)
		return 1
	}
	return 0
}

// newLimiter shares buckets through Redis when an address is configured and
// keeps them in process otherwise.
func newLimiter(ctx context.Context, cfg *config.Config) (api.Limiter, error) {
	if cfg.RateLimit.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RateLimit.RedisAddr, err)
		}
		log.Printf("[dil] rate limit: redis at %s", cfg.RateLimit.RedisAddr)
		go func() {
			<-ctx.Done()
			_ = client.Close()
		}()
		return api.NewRedisLimiter(client, cfg.RateLimit.RPS, cfg.RateLimit.Burst), nil
	}
	local := api.NewLocalLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go local.Run(ctx)
	return local, nil
}
