package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/ambralab/tpdb-backend/internal/app"
)

func main() {
	var force, missingOnly bool
	var compoundIDRaw string
	flag.BoolVar(&force, "force", false, "regenerate even when an image already exists")
	flag.BoolVar(&missingOnly, "missing-only", false, "only render compounds without an image")
	flag.StringVar(&compoundIDRaw, "compound-id", "", "render a single compound by id")
	flag.Parse()

	var compoundID *uuid.UUID
	if compoundIDRaw != "" {
		id, err := uuid.Parse(compoundIDRaw)
		if err != nil {
			fmt.Printf("invalid compound id %q\n", compoundIDRaw)
			os.Exit(2)
		}
		compoundID = &id
	}

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	log := application.Log
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	generated, err := application.Services.Molecule.Regenerate(ctx, force, missingOnly, compoundID)
	if err != nil {
		log.Error("Regenerate failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("generated %d molecule images\n", generated)
}
