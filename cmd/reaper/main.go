// Command reaper runs a single sweep that deletes secrets whose
// lifecycle has ended. It is meant to be invoked by an external
// scheduler such as cron.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/redis/go-redis/v9"

	"hushbox/internal/config"
	"hushbox/internal/reaper"
	"hushbox/internal/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("HUSHBOX_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Store.Type != "redis" {
		log.Fatal("the reaper binary only makes sense against a shared redis store")
	}

	logger := clog.New(slog.NewJSONHandler(os.Stderr, nil))
	ctx := clog.WithLogger(context.Background(), logger)
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	opt, err := redis.ParseURL(cfg.Store.RedisURL)
	if err != nil {
		log.Fatalf("redis url: %v", err)
	}
	st, err := store.NewRedisStore(redis.NewClient(opt))
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer st.Close()

	removed, err := reaper.New(st).Sweep(ctx)
	if err != nil {
		log.Fatalf("sweep failed after %d deletions: %v", removed, err)
	}
}
