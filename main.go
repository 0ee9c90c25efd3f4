package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/revisionbot/internal/cli"
	"github.com/example/revisionbot/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cli.Run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		stop()
		if errors.Is(err, cli.ErrUsage) {
			log.Println(err)
			os.Exit(2)
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}
