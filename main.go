// Package main provides the entry point for the Union Bug Placer application.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"union-bug-placer/internal/app"
	"union-bug-placer/internal/asset"
	"union-bug-placer/internal/logging"
	"union-bug-placer/internal/render"
	"union-bug-placer/internal/version"
	"union-bug-placer/ui/mainwindow"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

const (
	appID    = "org.unionbugplacer.app"
	appTitle = "Union Bug Placer"
)

func main() {
	assetDir := flag.String("assets", "", "Directory holding the overlay PDFs (default: next to the executable)")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	log.Printf("Starting %s %s", appTitle, version.String())

	// pdfcpu would otherwise create a config directory in the user's home.
	api.DisableConfigDir()

	cfg := app.DefaultConfig()
	cfg.AssetDir = *assetDir
	store := asset.NewStore(asset.ResolveRoot(cfg.AssetDir))
	for _, k := range store.Missing() {
		log.Printf("Asset missing: %s in %s", asset.FileName(k), store.Root())
	}

	rasterizer, err := render.NewPdfiumRasterizer()
	if err != nil {
		log.Fatalf("Failed to start the PDF renderer: %v", err)
	}
	defer rasterizer.Close()

	pipeline := render.NewPipeline(rasterizer)
	pipeline.Fit = cfg.Fit()

	session := app.NewSession(cfg, pipeline, store)
	defer session.Close()

	a := fyneapp.NewWithID(appID)
	a.Settings().SetTheme(&app.PlacerTheme{})

	win := mainwindow.New(a, session, render.NewSprites(rasterizer))

	if flag.NArg() > 0 {
		path := flag.Arg(0)
		if err := session.OpenDocument(path); err != nil {
			log.Printf("Failed to open %s: %v", path, err)
		}
	}

	win.ShowAndRun()
}
