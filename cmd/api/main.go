package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/markdave123-py/pdfchat/internal/app"
	"github.com/markdave123-py/pdfchat/internal/config"
	"github.com/markdave123-py/pdfchat/internal/pkg/logger"
)

func main() {
	// Handle SIGINT/SIGTERM for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	zapLog := logger.NewZapLogger(cfg.LogFilePath, cfg.IsProduction())

	application, err := app.NewApp(ctx, cfg, zapLog)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		zapLog.Error("MAIN", "server stopped with error", map[string]interface{}{"error": err.Error()})
		return
	}
	zapLog.Info("MAIN", "shutting down...", nil)
}
