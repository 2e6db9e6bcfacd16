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
	var clearExisting bool
	var skipImages bool
	flag.BoolVar(&clearExisting, "clear", false, "delete all compound data before importing")
	flag.BoolVar(&skipImages, "skip-images", false, "skip molecule image generation")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("usage: import_excel [-clear] [-skip-images] <file.xlsx>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	log := application.Log
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	count, err := application.Services.Importer.ImportFile(ctx, path, clearExisting, skipImages)
	if err != nil {
		log.Error("Import failed", "path", path, "error", err)
		os.Exit(1)
	}
	fmt.Printf("imported %d records from %s\n", count, path)
}
