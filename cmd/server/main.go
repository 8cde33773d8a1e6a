package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"triton-orders/config"
	"triton-orders/internal/api"
	"triton-orders/internal/ledger"
	"triton-orders/internal/service"
	"triton-orders/internal/stats"
	"triton-orders/internal/util"

	"github.com/gin-gonic/gin"
)

func main() {
	rebuildStats := flag.Bool("rebuild-stats", false, "rebuild the stats document by replaying the ledger, then exit")
	flag.Parse()

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting triton orders service")

	tp, err := util.InitTracer(cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	ledgerStore := ledger.New(cfg.Storage.OrdersFile)
	if err := ledgerStore.Initialize(); err != nil {
		log.Fatalf("Failed to initialize ledger: %v", err)
	}
	log.Printf("Ledger workbook ready: %s", cfg.Storage.OrdersFile)

	statsStore, err := stats.New(cfg.Storage.StatsFile)
	if err != nil {
		log.Fatalf("Failed to load stats document: %v", err)
	}
	log.Printf("Stats document ready: %s", cfg.Storage.StatsFile)

	orderService := service.NewOrderService(ledgerStore, statsStore)

	if *rebuildStats {
		if err := orderService.RebuildStats(context.Background()); err != nil {
			log.Fatalf("Failed to rebuild stats: %v", err)
		}
		log.Println("Stats rebuilt from ledger")
		return
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(orderService, cfg.Storage.RecentLimit)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
