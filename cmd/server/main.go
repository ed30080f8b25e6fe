package main

import (
	"context"
	"log"

	"github.com/dpolishuk/codeflow/internal/cli"
	"github.com/dpolishuk/codeflow/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := cli.Serve(context.Background(), cfg); err != nil {
		log.Fatal(err)
	}
}
