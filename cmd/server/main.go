package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/ignite/cdp-console/internal/api"
	"github.com/ignite/cdp-console/internal/config"
	"github.com/ignite/cdp-console/internal/dispatch"
	"github.com/ignite/cdp-console/internal/pkg/logger"
	"github.com/ignite/cdp-console/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("config load failed", "path", *configPath, "error", err.Error())
		os.Exit(1)
	}
	if cfg.LogDebug {
		logger.SetLevel(logger.DEBUG)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("store init failed", "backend", cfg.Store.Backend, "error", err.Error())
		os.Exit(1)
	}
	defer closeStore()

	transport, err := buildTransport(cfg)
	if err != nil {
		logger.Error("transport init failed", "error", err.Error())
		os.Exit(1)
	}
	dispatcher := dispatch.NewDispatcher(transport)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	handlers := api.NewHandlers(st, cfg.Store.Collection, cfg.Store.KeyField, dispatcher,
		cfg.Segment.DefaultLimit, cfg.Segment.MaxLimit)
	handlers.Register(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{Addr: addr, Handler: r}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", "addr", addr, "store", cfg.Store.Backend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "error", err.Error())
	}
	logger.Info("server stopped")
}

// openStore connects the configured document-store backend and
// verifies connectivity before the server starts taking requests.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		rs := store.NewRedisStore(client)
		if err := rs.Ping(ctx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return rs, func() { client.Close() }, nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.Store.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres open: %w", err)
		}
		ps := store.NewPostgresStore(db)
		if err := ps.Ping(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("postgres ping: %w", err)
		}
		return ps, func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// buildTransport picks SES when enabled, SMTP otherwise. Validation of
// the chosen transport's settings happens in its constructor, before
// any batch is accepted.
func buildTransport(cfg *config.Config) (dispatch.Transport, error) {
	if cfg.SES.Enabled {
		return dispatch.NewSESTransport(dispatch.SESConfig{
			AccessKey: cfg.SES.AccessKey,
			SecretKey: cfg.SES.SecretKey,
			Region:    cfg.SES.Region,
			From:      cfg.SES.From,
		})
	}
	return dispatch.NewSMTPTransport(dispatch.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
}
