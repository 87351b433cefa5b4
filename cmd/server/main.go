package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coffeeshop/backend/internal/analytics"
	"coffeeshop/backend/internal/cache"
	"coffeeshop/backend/internal/config"
	"coffeeshop/backend/internal/httpapi"
	"coffeeshop/backend/internal/ledger"
	"coffeeshop/backend/internal/service"
	"coffeeshop/backend/internal/session"
	"coffeeshop/backend/internal/store"
	"coffeeshop/backend/internal/store/memory"
	pgstore "coffeeshop/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Println("repository: postgres")
	} else {
		if cfg.SeedDemoCatalog {
			repo = memory.NewSeeded()
		} else {
			repo = memory.New()
		}
		log.Println("repository: in-memory")
	}

	trendCache := cache.TrendCache(cache.NoopTrendCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisTrendCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			trendCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("unknown timezone %q, using local time", cfg.Timezone)
		loc = time.Local
	}

	runCtx, stopEngines := context.WithCancel(context.Background())
	defer stopEngines()

	ledgerEngine := ledger.NewEngine(repo)
	ledgerEngine.Start(runCtx)
	analyticsEngine := analytics.NewEngine(repo, trendCache, time.Duration(cfg.TrendCacheTTLSeconds)*time.Second, loc)
	analyticsEngine.Start(runCtx)

	sessions := session.NewManager(repo)
	svc := service.New(repo, ledgerEngine, analyticsEngine, sessions)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo, sessions)
	api := httpapi.New(svc, auth, sessions, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("coffeeshop backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	stopEngines()
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
