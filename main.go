package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"notebit/pkg/logger"
)

// main boots the indexing process. There is no GUI shell in this build: App
// exposes its operations as plain exported methods for a binding layer to
// call (see §6 of the design notes), and this entry point just keeps the
// background pipeline (watchers, job manager, watch-state sync) alive until
// the process receives a shutdown signal.
func main() {
	err := logger.Initialize(logger.Config{
		Level:         logger.DEBUG,
		LogDir:        "logs",
		FileName:      "notebit.log",
		MaxFileSize:   10 * 1024 * 1024, // 10MB
		MaxBackups:    5,
		ConsoleOutput: true,
	})
	if err != nil {
		println("Failed to initialize logger:", err.Error())
	}
	defer logger.GetDefault().Close()

	logger.Info("Starting notebit indexer...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp()
	app.startup(ctx)
	defer app.shutdown(ctx)

	<-ctx.Done()
	logger.Info("Shutting down notebit indexer...")
}
