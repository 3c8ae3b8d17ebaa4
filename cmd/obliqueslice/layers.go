package main

import (
	"fmt"

	"github.com/DmitriyVTitov/size"
	"github.com/dustin/go-humanize"

	"obliqueslice/pkg/coloring"
	"obliqueslice/pkg/config"
	"obliqueslice/pkg/render"
	"obliqueslice/pkg/volume"
)

// buildLayers creates the phantom underlay and the optional overlay
// described by the volume section.
func buildLayers(cfg *config.Config) ([]render.Layer, error) {
	under, err := buildGrid(cfg, "underlay", cfg.Volume.Kind)
	if err != nil {
		return nil, err
	}
	layers := []render.Layer{{Grid: under, Opacity: 1}}

	if cfg.Volume.Overlay != "" {
		over, err := buildGrid(cfg, "overlay", cfg.Volume.Overlay)
		if err != nil {
			return nil, err
		}
		layers = append(layers, render.Layer{Grid: over, Opacity: cfg.Volume.OverlayOpacity})
	}
	return layers, nil
}

func buildGrid(cfg *config.Config, name, kindName string) (volume.Grid, error) {
	kind, err := config.ParseKind(kindName)
	if err != nil {
		return nil, err
	}
	vol, err := volume.NewPhantom(kind, cfg.Volume.Size, cfg.Volume.Spacing)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s phantom: %w", name, err)
	}
	fmt.Printf("%s: %d^3 %s voxels, %s in memory\n", name, cfg.Volume.Size, kind,
		humanize.Bytes(uint64(size.Of(vol))))

	var md *volume.MapMetadata
	var grid volume.Grid
	switch cfg.Volume.Storage {
	case "block":
		g, err := volume.NewBlockGrid(name, vol, nil, cfg.Volume.BlockSize, cfg.Volume.CacheBytes)
		if err != nil {
			return nil, err
		}
		fmt.Printf("%s: %s compressed in %d voxel blocks\n", name,
			humanize.Bytes(uint64(g.CompressedBytes())), cfg.Volume.BlockSize)
		md, grid = g.MapMetadata(0), g
	default:
		g, err := volume.NewDenseGrid(name, vol, nil)
		if err != nil {
			return nil, err
		}
		md, grid = g.MapMetadata(0), g
	}

	switch {
	case md.Palette != nil:
		md.Palette = coloring.NewPaletteColorMapping(cfg.Volume.Palette)
	case md.Labels != nil:
		md.Labels = volume.PhantomLabelTable()
	}
	return grid, nil
}
