package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lumenbank/backend/internal/audit"
	"github.com/lumenbank/backend/internal/config"
	"github.com/lumenbank/backend/internal/database"
	"github.com/lumenbank/backend/internal/handlers"
	"github.com/lumenbank/backend/internal/server"
	"github.com/lumenbank/backend/internal/services"
)

func main() {
	cfg := config.Load()

	auditLog := audit.New(cfg.LogDir)
	auditLog.Log("SYSTEM_START", "Banking system starting")

	store, err := database.New(cfg.DataDir, auditLog)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}

	bank, err := services.NewBankingService(store, auditLog, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize banking service: %v", err)
	}

	router := server.NewRouter()
	handlers.NewAPI(bank).Mount(router)

	srv := server.New(":"+cfg.ServerPort, router)
	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
	log.Printf("Server started on :%s, data in %s", cfg.ServerPort, store.DataDir())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	auditLog.Log("SYSTEM_STOP", "Banking system stopped")
	log.Println("Server stopped")
}
