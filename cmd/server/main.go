package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/numeshj/saranya-class/internal/config"
	"github.com/numeshj/saranya-class/internal/db"
	"github.com/numeshj/saranya-class/internal/guard"
	internalhttp "github.com/numeshj/saranya-class/internal/http"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := db.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store setup failed: %v", err)
	}
	defer cleanup()

	var attemptGuard guard.Guard
	if cfg.GuardRedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.GuardRedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis guard connection failed: %v", err)
		}
		defer client.Close()
		attemptGuard = guard.NewRedis(client, cfg.LoginMaxFailures, cfg.LoginLockout)
	} else {
		attemptGuard = guard.NewMemory(cfg.LoginMaxFailures, cfg.LoginLockout)
	}

	server := internalhttp.NewServer(cfg, store, attemptGuard)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("auth service listening on %s (store=%s)", cfg.HTTPAddr, cfg.StoreBackend)
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
