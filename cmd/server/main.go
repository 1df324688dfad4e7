package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/redis/go-redis/v9"

	"hushbox/internal/app"
	"hushbox/internal/config"
	"hushbox/internal/crypto"
	"hushbox/internal/ratelimit"
	"hushbox/internal/reaper"
	"hushbox/internal/secret"
	"hushbox/internal/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("HUSHBOX_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := clog.New(slog.NewJSONHandler(os.Stderr, nil))
	ctx := clog.WithLogger(context.Background(), logger)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cipher, err := crypto.NewCipher(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("encryption key: %v", err)
	}

	st, err := newStore(cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer st.Close()

	limiter := ratelimit.New(cfg.RateLimit.Window.Std(), cfg.RateLimit.MaxAttempts)
	go limiter.Run(ctx, cfg.RateLimit.EvictInterval.Std())

	svc := secret.NewService(st, cipher, limiter)

	rp := reaper.New(st)
	if cfg.Reaper.Enabled {
		go rp.Run(ctx, cfg.Reaper.Interval.Std())
	}

	handler := app.NewHandler(svc, rp, cfg.Server.BaseURL)
	router := app.NewRouter(handler, app.RouterConfig{RequireHTTPS: cfg.Server.RequireHTTPS})

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout.Std(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout.Std(),
		WriteTimeout:      cfg.Server.WriteTimeout.Std(),
		IdleTimeout:       cfg.Server.IdleTimeout.Std(),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", cfg.ListenAddr())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	case <-ctx.Done():
		logger.Infof("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("shutdown: %v", err)
		}
	}
}

func newStore(cfg config.Config) (store.Store, error) {
	switch cfg.Store.Type {
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		opt, err := redis.ParseURL(cfg.Store.RedisURL)
		if err != nil {
			return nil, err
		}
		return store.NewRedisStore(redis.NewClient(opt))
	}
}
