package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"bulk-mail-verify-go/internal/bouncer"
	"bulk-mail-verify-go/internal/config"
	"bulk-mail-verify-go/internal/model"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	client := bouncer.NewClient(cfg.Bouncer)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, mode := range model.Modes() {
		credits, err := client.Credits(ctx, mode)
		if err != nil {
			log.Fatalf("Failed to fetch credits for mode %s: %v", mode, err)
		}
		fmt.Printf("%s credits remaining: %d\n", mode, credits.Credits)
	}
}
