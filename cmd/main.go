package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"trusio/internal/bootstrap"
	"trusio/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	container := bootstrap.NewContainer()
	container.MustInit()
	defer logger.Sync()

	if err := container.Start(); err != nil {
		container.Log.Fatalf("Failed to start: %v", err)
	}

	waitForShutdown(container)
}

// waitForShutdown blocks until SIGINT/SIGTERM and drains gracefully.
func waitForShutdown(container *bootstrap.Container) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case <-container.Context.Done():
	}

	container.Shutdown(shutdownTimeout)
}
