package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradevault/internal/blobstore"
	"tradevault/internal/custody"
	documenthandler "tradevault/internal/document/handler"
	documentservice "tradevault/internal/document/service"
	documentstore "tradevault/internal/document/store"
	integrityhandler "tradevault/internal/integrity/handler"
	integrityservice "tradevault/internal/integrity/service"
	integritystore "tradevault/internal/integrity/store"
	jwttoken "tradevault/internal/jwt_token"
	ledgerhandler "tradevault/internal/ledger/handler"
	ledgerservice "tradevault/internal/ledger/service"
	ledgerstore "tradevault/internal/ledger/store"
	"tradevault/internal/platform/config"
	"tradevault/internal/platform/httpserver"
	"tradevault/internal/platform/logger"
	"tradevault/internal/platform/metrics"
	"tradevault/internal/platform/postgres"
	redisplatform "tradevault/internal/platform/redis"
	tradehandler "tradevault/internal/trade/handler"
	tradeservice "tradevault/internal/trade/service"
	tradestore "tradevault/internal/trade/store"
	httptransport "tradevault/internal/transport/http"
	"tradevault/pkg/platform/tx"
)

// main wires dependencies and owns the server lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	db, err := postgres.Open(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	docStore := documentstore.Store(documentstore.NewPostgres(db))
	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		docStore = documentstore.NewCached(docStore, redisClient.Client, cfg.Redis.CacheTTL)
		defer func() { _ = redisClient.Close() }()
		log.Info("digest lookup cache enabled")
	}

	blobs := buildBlobstore(cfg, log)
	runner := tx.NewPostgresRunner(db)

	ledgerStore := ledgerstore.NewPostgres(db)
	tradeStore := tradestore.NewPostgres(db)
	checkStore := integritystore.NewPostgres(db)

	docs, err := documentservice.New(docStore, blobs, log)
	if err != nil {
		log.Error("document service init failed", "error", err)
		os.Exit(1)
	}
	ledger, err := ledgerservice.New(ledgerStore, docStore, log)
	if err != nil {
		log.Error("ledger service init failed", "error", err)
		os.Exit(1)
	}
	trades, err := tradeservice.New(tradeStore, log)
	if err != nil {
		log.Error("trade service init failed", "error", err)
		os.Exit(1)
	}
	integrity, err := integrityservice.New(checkStore, docStore, blobs, ledgerStore, runner, log)
	if err != nil {
		log.Error("integrity service init failed", "error", err)
		os.Exit(1)
	}
	coordinator, err := custody.New(docs, ledger, trades, runner, log)
	if err != nil {
		log.Error("custody coordinator init failed", "error", err)
		os.Exit(1)
	}

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)

	router := httptransport.NewRouter(httptransport.Deps{
		Documents:      documenthandler.New(coordinator, docs, log),
		Ledger:         ledgerhandler.New(ledger, log),
		Trades:         tradehandler.New(trades, coordinator, log),
		Integrity:      integrityhandler.New(integrity, log),
		TokenValidator: jwttoken.NewJWTServiceAdapter(jwtService),
		AdminToken:     cfg.Auth.AdminToken,
		Metrics:        metrics.New(),
		Logger:         log,
	})

	srv := httpserver.New(cfg.HTTP.Addr, router)
	log.Info("starting tradevault", "addr", cfg.HTTP.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// buildBlobstore prefers S3 with a local fallback; without S3 credentials
// bytes stay on local disk.
func buildBlobstore(cfg config.Config, log *slog.Logger) blobstore.Store {
	local := blobstore.NewLocal(cfg.Integrity.LocalRoot)
	if cfg.S3.Bucket == "" {
		log.Info("blobstore: local only", "root", cfg.Integrity.LocalRoot)
		return local
	}
	s3store, err := blobstore.NewS3(cfg.S3)
	if err != nil {
		log.Warn("blobstore: s3 init failed, using local only", "error", err)
		return local
	}
	log.Info("blobstore: s3 with local fallback", "bucket", cfg.S3.Bucket)
	return blobstore.NewFallback(s3store, local, log)
}
