package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"squl/gateway/internal/cache"
	"squl/gateway/internal/config"
	"squl/gateway/internal/graphql"
	internalhttp "squl/gateway/internal/http"
	"squl/gateway/internal/jobs"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store cache.Store
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("redis ping failed: %v", err)
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Printf("redis close error: %v", err)
			}
		}()
		store = cache.NewRedisStore(redisClient)
	} else {
		store = cache.NewMemoryStore()
	}

	upstream := graphql.New(cfg.GraphQLAPIURL, cfg.UpstreamTimeout)
	lists := cache.New(store, cfg.CacheTTL)
	probe := jobs.StartUpstreamProbe(ctx, cfg.ProbeInterval, cfg.ProbeTimeout, upstream)

	server := internalhttp.NewServer(cfg, upstream, lists, probe)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("gateway http listening on %s (upstream %s)", cfg.HTTPAddr, cfg.GraphQLAPIURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
