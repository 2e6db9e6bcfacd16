package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ambralab/tpdb-backend/internal/app"
)

func main() {
	var maxFiles int
	flag.IntVar(&maxFiles, "max-files", 1, "maximum number of jobs to process in one run (0 = all pending)")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	log := application.Log
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	processed, err := application.Services.Upload.ProcessPending(ctx, maxFiles)
	if err != nil {
		log.Error("Processing pending uploads failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("processed %d upload jobs\n", processed)
}
