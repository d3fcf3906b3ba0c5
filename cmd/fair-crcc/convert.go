package main

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/crs4/fair-crcc/ometiff"
	"github.com/crs4/fair-crcc/slide"
)

var convertCmd = &cobra.Command{
	Use:   "convert SOURCE DEST",
	Short: "Convert a CRCC OME-TIFF to a tiled color BigTIFF",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := tiffOptions(cmd)
		if err != nil {
			return err
		}
		return withVips(func() error {
			return timed(func() error {
				return ometiff.ConvertColor(args[0], args[1], opt, logger)
			})
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import SOURCE DEST",
	Short: "Convert an openslide-readable slide to an OME BigTIFF",
	Long: `import loads a slide in a supported openslide format (mirax, aperio,
hamamatsu), drops the alpha band openslide appends, and writes a tiled
BigTIFF plus an OME-XML metadata document carrying the vendor's general
metadata fields.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := tiffOptions(cmd)
		if err != nil {
			return err
		}
		return withVips(func() error {
			return timed(func() error {
				return ometiff.ImportOpenslide(args[0], args[1], opt, logger)
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(importCmd)
	for _, cmd := range []*cobra.Command{convertCmd, importCmd} {
		f := cmd.Flags()
		f.StringP("compression", "c", "jpeg",
			"tiff compression: "+strings.Join(slide.TIFFCompressions(), ", "))
		f.BoolP("pyramid", "p", false, "generate pyramid")
		f.IntP("tile-size", "t", 512, "tile side length in pixels")
	}
	importCmd.Flags().IntP("quality", "q", 0, "encoder quality; 0 keeps the encoder default")
}

func tiffOptions(cmd *cobra.Command) (slide.TIFFOptions, error) {
	f := cmd.Flags()
	compression, _ := f.GetString("compression")
	pyramid, _ := f.GetBool("pyramid")
	tileSize, _ := f.GetInt("tile-size")
	quality := 0
	if f.Lookup("quality") != nil {
		quality, _ = f.GetInt("quality")
		if f.Changed("quality") && quality <= 0 {
			return slide.TIFFOptions{}, fmt.Errorf("quality value must be > 0, got %d", quality)
		}
	}

	if !lo.Contains(slide.TIFFCompressions(), compression) {
		return slide.TIFFOptions{}, fmt.Errorf("unknown tiff compression %q (choose from %s)",
			compression, strings.Join(slide.TIFFCompressions(), ", "))
	}
	if tileSize <= 0 {
		return slide.TIFFOptions{}, fmt.Errorf("tile size must be > 0, got %d", tileSize)
	}
	return slide.TIFFOptions{
		Compression: compression,
		Quality:     quality,
		TileSize:    tileSize,
		Pyramid:     pyramid,
	}, nil
}
