package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spec-kit/giftcard-platform/internal/app"
	"github.com/spec-kit/giftcard-platform/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, config.ServiceLog); err != nil {
		log.Fatalf("log-service: %v", err)
	}
}
