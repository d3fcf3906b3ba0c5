// Package patch implements random patch sampling over large images: draw a
// uniformly random coordinate inside the valid bounds, fetch the fixed-size
// region at that coordinate, encode it, and persist it under a name derived
// from the draw.
//
// Pixel access goes through the Source interface so that the same sampling
// loop runs against a libvips-backed whole-slide image or a plain in-memory
// raster.
package patch

import "fmt"

// Format selects the patch encoding.
type Format int

const (
	JPEG Format = iota
	JP2K
)

// Ext returns the output filename extension, including the dot.
func (f Format) Ext() string {
	switch f {
	case JP2K:
		return ".jp2"
	default:
		return ".jpg"
	}
}

func (f Format) String() string {
	switch f {
	case JP2K:
		return "jp2k"
	default:
		return "jpeg"
	}
}

// Region is one decoded fixed-size sub-image. Regions are transient: encoded
// once, then closed. No two fetches share a decoded buffer.
type Region interface {
	// Dims returns the region's pixel dimensions.
	Dims() (width, height int)

	// Bands returns the number of bands (channels).
	Bands() int

	// Encode encodes the region in the given format at the given quality.
	Encode(f Format, quality int) ([]byte, error)

	// Close releases the decoded buffer. Safe to call more than once.
	Close()
}

// Source provides bounded random access to an image's pixel data. A region
// fetch decodes only the requested sub-area, never the full image.
type Source interface {
	// Bounds returns the source's full pixel dimensions.
	Bounds() (width, height int)

	// Fetch decodes the size x size region with top-left corner at (x, y).
	// The rectangle must lie fully inside Bounds.
	Fetch(x, y, size int) (Region, error)
}

// Sink receives encoded patches. Put may be called with the same name twice
// when two draws hit the same coordinate; the later patch wins.
type Sink interface {
	Put(name string, data []byte) error
	Close() error
}

// Config holds the sampling parameters.
type Config struct {
	// Count is the number of patches to draw. May be zero.
	Count int

	// Size is the patch side length in pixels, applied to both dimensions.
	Size int

	// Quality is the encoder quality setting, in [1, 100].
	Quality int

	// Format selects JPEG or JPEG2000 output.
	Format Format
}

func (c Config) validate() error {
	if c.Count < 0 {
		return fmt.Errorf("patch count must be >= 0, got %d", c.Count)
	}
	if c.Size <= 0 {
		return fmt.Errorf("patch size must be > 0, got %d", c.Size)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality must be in [1, 100], got %d", c.Quality)
	}
	return nil
}

// FileName returns the output name for the index'th patch drawn at (x, y),
// e.g. "007_1024_512.jpg". The name is the only record of the patch's origin.
func FileName(index, x, y int, f Format) string {
	return fmt.Sprintf("%03d_%d_%d%s", index, x, y, f.Ext())
}
