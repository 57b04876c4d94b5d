package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"storymapper/api/internal/app"
	"storymapper/api/internal/attach"
	"storymapper/api/internal/collab"
	"storymapper/api/internal/config"
	"storymapper/api/internal/email"
	"storymapper/api/internal/export"
	"storymapper/api/internal/search"
	"storymapper/api/internal/session"
	"storymapper/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewPgSearch(db))
	searchService.ReindexAll(ctx)

	var fileStore *attach.MinioStore
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		fileStore, err = attach.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("object store connection failed: %v", err)
		}
		log.Printf("Attachments stored in bucket %s", cfg.MinioBucket)
	} else {
		log.Printf("MINIO_ENDPOINT not set, attachments disabled")
	}

	var service *app.Service
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for refresh token storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		if fileStore != nil {
			service = app.New(cfg, dataStore, redisStore, searchService, fileStore)
		} else {
			service = app.New(cfg, dataStore, redisStore, searchService, nil)
		}
	} else {
		log.Printf("Using PostgreSQL for refresh token storage")
		if fileStore != nil {
			service = app.New(cfg, dataStore, dataStore, searchService, fileStore)
		} else {
			service = app.New(cfg, dataStore, dataStore, searchService, nil)
		}
	}

	mailService := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if mailService.IsConfigured() {
		service.WithMailer(mailService)
	} else {
		log.Printf("SMTP_HOST not set, member notification mail disabled")
	}

	httpServer := app.NewHTTPServer(service, export.NewService(), cfg.CORSOrigin)
	gateway := collab.NewGateway(service, collab.NewHub())

	mux := http.NewServeMux()
	mux.Handle("/collaboration", gateway.Handler())
	mux.Handle("/", httpServer.Handler())

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("StoryMapper API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
