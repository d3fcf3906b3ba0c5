package ometiff

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/crs4/fair-crcc/slide"
	"github.com/crs4/fair-crcc/tiffx"
)

// The CRCC OME-TIFF layout: six pages, of which the first three are the
// full-resolution co-registered channels and the last three a smaller
// embedded copy of the same.
const (
	LayoutPages = 6
	ColorPages  = 3
)

// AssembleColor opens the CRCC slide at path and band-joins its three
// full-resolution channel pages, in page order, into one 3-band image tagged
// as generic multiband. Fails when the file does not have the expected
// 6-page layout.
func AssembleColor(path string) (*slide.Slide, error) {
	s, err := slide.Open(path)
	if err != nil {
		return nil, err
	}
	err = s.RequirePages(LayoutPages)
	s.Close()
	if err != nil {
		return nil, err
	}

	pages, err := slide.OpenPages(path, ColorPages)
	if err != nil {
		return nil, err
	}
	color := pages[0]
	if err := color.BandJoin(pages[1:]...); err != nil {
		slide.CloseAll(pages)
		return nil, fmt.Errorf("band join pages of %q err, %w", path, err)
	}
	slide.CloseAll(pages[1:])
	return color, nil
}

// ConvertColor converts the CRCC OME-TIFF at in to a tiled color BigTIFF at
// out, then validates the written file's structure.
func ConvertColor(in, out string, opt slide.TIFFOptions, log *zap.Logger) error {
	color, err := AssembleColor(in)
	if err != nil {
		return err
	}
	defer color.Close()

	log.Info("writing tiff",
		zap.String("dest", out),
		zap.String("compression", opt.Compression),
		zap.Int("tile_size", opt.TileSize),
		zap.Bool("pyramid", opt.Pyramid),
	)
	if err := color.SaveTIFF(out, opt); err != nil {
		return err
	}
	return verify(out, color.Width(), color.Height(), log)
}

// ImportOpenslide converts an openslide-readable slide at in to a tiled
// BigTIFF at out, writing the OME-XML metadata document next to it. The
// alpha band openslide appends is dropped before encoding.
func ImportOpenslide(in, out string, opt slide.TIFFOptions, log *zap.Logger) error {
	s, err := slide.Open(in)
	if err != nil {
		return err
	}
	defer s.Close()

	metadata, err := VendorMetadata(s)
	if err != nil {
		return err
	}
	if err := s.DropAlpha(); err != nil {
		return fmt.Errorf("drop alpha band err, %w", err)
	}

	omexml, err := BuildOMEXML(s.Width(), s.Height(), ColorPages, metadata)
	if err != nil {
		return fmt.Errorf("build ome-xml err, %w", err)
	}
	sidecar := strings.TrimSuffix(out, filepath.Ext(out)) + ".ome.xml"
	if err := os.WriteFile(sidecar, omexml, 0o644); err != nil {
		return fmt.Errorf("write ome-xml %q err, %w", sidecar, err)
	}

	log.Info("writing tiff",
		zap.String("dest", out),
		zap.String("sidecar", sidecar),
		zap.String("compression", opt.Compression),
		zap.Int("tile_size", opt.TileSize),
		zap.Bool("pyramid", opt.Pyramid),
		zap.Int("metadata_fields", len(metadata)),
	)
	if err := s.SaveTIFF(out, opt); err != nil {
		return err
	}
	return verify(out, s.Width(), s.Height(), log)
}

// verify checks the structure of a written TIFF with the tiffx reader.
func verify(path string, width, height int, log *zap.Logger) error {
	info, err := tiffx.DecodeFile(path)
	if err != nil {
		return err
	}
	first := info.Pages[0]
	if first.Width != width || first.Height != height {
		return fmt.Errorf("written tiff %q is %dx%d, expected %dx%d",
			path, first.Width, first.Height, width, height)
	}
	log.Info("tiff written",
		zap.String("dest", path),
		zap.Bool("bigtiff", info.BigTIFF),
		zap.Int("pages", len(info.Pages)),
	)
	return nil
}
