package main

import (
	"cafes/app"
	"cafes/config"
	"context"
	"github.com/gin-gonic/gin"
	"log"
	"os/signal"
	"syscall"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		log.Println("Running in debug mode")
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialise: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		log.Printf("Server error: %v", err)
	}
}
