package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"obliqueslice/internal/logging"
	"obliqueslice/pkg/config"
	"obliqueslice/pkg/raster"
	"obliqueslice/pkg/render"
	"obliqueslice/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "obliqueslice.yaml", "Configuration file (.yaml or .toml)")
	initConfig := flag.Bool("init", false, "Write a default configuration file and exit")
	outputName := flag.String("output", "slice.png", "Output PNG filename")
	pickX := flag.Int("pick-x", -1, "Pixel column to identify when rendering pick ids")
	pickY := flag.Int("pick-y", -1, "Pixel row to identify when rendering pick ids")
	slicesDir := flag.String("slices-dir", "slices", "Directory to save slice sequences")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logging
	if cfg.Output.Logging.Logfile != "" {
		logger, closer, err := logging.NewFileLogger(cfg.Output.Logging.FileConfig())
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer closer.Close()
		render.SetLogger(logger)
		fmt.Printf("Sending log messages to: %s\n", cfg.Output.Logging.Logfile)
	} else if cfg.Output.Verbose {
		level, _ := logging.ParseLevel(cfg.Output.Logging.Level)
		render.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}

	fmt.Println("================================")
	fmt.Println("OBLIQUE VOLUME SLICE RENDERER")
	fmt.Println("================================")

	layers, err := buildLayers(cfg)
	if err != nil {
		log.Fatalf("Failed to build layers: %v", err)
	}
	opts, err := cfg.RenderOptions()
	if err != nil {
		log.Fatalf("Invalid render options: %v", err)
	}
	view, err := cfg.RenderView(render.GridCenter(layers[0].Grid))
	if err != nil {
		log.Fatalf("Invalid view: %v", err)
	}

	canvas, err := raster.NewCanvas(cfg.Output.Width, cfg.Output.Height)
	if err != nil {
		log.Fatalf("Failed to create canvas: %v", err)
	}
	defer canvas.Close()

	// Render the frame
	renderer := render.NewRenderer()
	startTime := time.Now()
	stats, err := renderer.DrawFrame(view, layers, opts, canvas)
	if err != nil {
		log.Fatalf("Rendering failed: %v", err)
	}
	fmt.Printf("\nRendered %d slices in %.3f seconds\n", stats.Slices, time.Since(startTime).Seconds())
	fmt.Printf("- Cells: %d, triangles: %d, meshes: %d\n", stats.Cells, stats.Triangles, stats.Meshes)
	if stats.Skipped > 0 || stats.Fallbacks > 0 {
		fmt.Printf("- Skipped: %d, fallbacks: %d\n", stats.Skipped, stats.Fallbacks)
	}
	if stats.Aborted {
		fmt.Println("- Frame aborted: the slice plane is degenerate")
	}

	if err := saveImage(canvas, cfg.Output.Scale, *outputName); err != nil {
		log.Fatalf("Failed to save image: %v", err)
	}
	fmt.Printf("Output image saved to: %s\n", *outputName)

	// Identify the picked pixel
	if opts.Identify {
		fmt.Printf("Recorded %d pick ids\n", stats.Records)
		if stats.Unpickable > 0 {
			fmt.Printf("- %d cells left without a pick id\n", stats.Unpickable)
		}
		if *pickX >= 0 && *pickY >= 0 {
			rgb := canvas.PickColor(*pickX, *pickY)
			if rec, ok := renderer.ResolveColor(rgb); ok {
				fmt.Printf("Pixel (%d, %d): layer %d map %d voxel (%d, %d, %d)\n",
					*pickX, *pickY, rec.Layer, rec.MapIndex, rec.I, rec.J, rec.K)
			} else {
				fmt.Printf("Pixel (%d, %d): nothing drawn\n", *pickX, *pickY)
			}
		}
	}

	// Extract and save slice sequences if requested
	if cfg.Output.SaveSequences {
		fmt.Println("\nSaving slice sequences along all axes...")
		viewer, err := visualization.NewViewer(layers, opts, cfg.Output.Width, cfg.Output.Height)
		if err != nil {
			log.Fatalf("Failed to create viewer: %v", err)
		}
		viewer.SetScale(cfg.Output.Scale)
		viewer.SetRotation(view.Rotation)
		viewer.SetZoom(view.Zoom)
		if err := viewer.SaveAllSequences(context.Background(), *slicesDir); err != nil {
			log.Printf("Warning: Failed to save slice sequences: %v", err)
		} else {
			fmt.Printf("Slice sequences saved to: %s\n", *slicesDir)
		}
	}
}

func saveImage(canvas *raster.Canvas, scale int, filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if scale <= 1 {
		return canvas.SavePNG(filename)
	}
	return raster.SavePNG(raster.Upscale(canvas.Image(), scale), filename)
}
