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

	"spreadsheet/api/internal/app"
	"spreadsheet/api/internal/auth"
	"spreadsheet/api/internal/backend"
	"spreadsheet/api/internal/config"
	"spreadsheet/api/internal/search"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	b := backend.OpenOrMemory(ctx, cfg)
	log.Printf("Using %s backend for sheet storage", b.Name)

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}

	service := app.New(cfg, b, meiliClient)
	defer service.Close()

	keys := auth.NewKeyChecker(cfg.EditorKeyHash)
	if keys.Enabled() {
		log.Printf("Editor key required for writes")
	}

	httpServer := app.NewHTTPServer(service, keys, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Spreadsheet API listening on %s", cfg.Addr)
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
