// Package slide centralizes all libvips access: opening whole-slide images,
// page selection, partial region decode, band joins, resizing, and encoding.
// Callers outside this package never touch govips directly.
package slide

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Startup initializes libvips, routing its log lines into logger. Must be
// called once before any other function in this package; pair with Shutdown.
// Thread-pool sizing follows libvips' own VIPS_CONCURRENCY contract.
func Startup(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	vips.LoggingSettings(func(domain string, level vips.LogLevel, msg string) {
		logger.Debug(msg, zap.String("domain", domain))
	}, vips.LogLevelError)
	vips.Startup(nil)
}

// Shutdown releases libvips' global state.
func Shutdown() {
	vips.Shutdown()
}

// Slide is an opened image, optionally a single page of a multi-page file.
type Slide struct {
	img  *vips.ImageRef
	path string
}

// Open opens the image at path. libvips picks the loader from the file
// contents, including openslide for formats such as mirax and aperio.
func Open(path string) (*Slide, error) {
	img, err := vips.NewImageFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("open image %q err, %w", path, err)
	}
	return &Slide{img: img, path: path}, nil
}

// OpenPage opens a single page of the multi-page image at path.
func OpenPage(path string, page int) (*Slide, error) {
	params := vips.NewImportParams()
	params.Page.Set(page)
	params.NumPages.Set(1)
	img, err := vips.LoadImageFromFile(path, params)
	if err != nil {
		return nil, fmt.Errorf("open page %d of %q err, %w", page, path, err)
	}
	return &Slide{img: img, path: path}, nil
}

// OpenPages opens pages [0, n) of the multi-page image at path. On error,
// pages opened so far are closed.
func OpenPages(path string, n int) ([]*Slide, error) {
	pages := make([]*Slide, 0, n)
	for i := 0; i < n; i++ {
		p, err := OpenPage(path, i)
		if err != nil {
			CloseAll(pages)
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// CloseAll closes every slide in pages.
func CloseAll(pages []*Slide) {
	for _, p := range pages {
		p.Close()
	}
}

func (s *Slide) Path() string { return s.path }
func (s *Slide) Width() int   { return s.img.Width() }
func (s *Slide) Height() int  { return s.img.Height() }
func (s *Slide) Bands() int   { return s.img.Bands() }

// Pages returns the page count recorded in the image header (n-pages).
func (s *Slide) Pages() int { return s.img.Pages() }

// Fields returns the image's header and metadata field names.
func (s *Slide) Fields() []string { return s.img.ImageFields() }

// GetString returns a string-typed header field such as "openslide.vendor".
// The underlying binding returns "" for absent fields, so presence is checked
// against the field list to tell a missing field from an empty value.
func (s *Slide) GetString(name string) (string, error) {
	if !lo.Contains(s.img.ImageFields(), name) {
		return "", fmt.Errorf("image %q has no field %q", s.path, name)
	}
	return s.img.GetString(name), nil
}

func (s *Slide) Close() {
	s.img.Close()
}

// RequirePages fails with a descriptive error unless the slide reports
// exactly n pages.
func (s *Slide) RequirePages(n int) error {
	if got := s.Pages(); got != n {
		return fmt.Errorf("unexpected image format: %q has %d pages, expected %d",
			s.path, got, n)
	}
	return nil
}

// HasAlpha reports whether the last band is an alpha channel.
func (s *Slide) HasAlpha() bool { return s.img.HasAlpha() }

// DropAlpha removes the alpha band openslide appends to loaded slides.
func (s *Slide) DropAlpha() error {
	if !s.img.HasAlpha() {
		return nil
	}
	return s.img.ExtractBand(0, s.img.Bands()-1)
}

// BandJoin appends the bands of each slide in rest to s, in argument order.
// The joined slides are consumed and must not be used afterwards.
func (s *Slide) BandJoin(rest ...*Slide) error {
	imgs := make([]*vips.ImageRef, len(rest))
	for i, r := range rest {
		imgs[i] = r.img
	}
	return s.img.BandJoin(imgs...)
}

// ResizeToWidth scales the slide so that its width becomes width, using a
// linear kernel.
func (s *Slide) ResizeToWidth(width int) error {
	scale := float64(width) / float64(s.img.Width())
	return s.img.Resize(scale, vips.KernelLinear)
}

// WriteToFile encodes the slide to path, choosing the encoder from the file
// extension (.jpg, .jp2, .png, .tif, .webp) at the given quality.
func (s *Slide) WriteToFile(path string, quality int) error {
	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".jpg", ".jpeg":
		p := vips.NewJpegExportParams()
		p.Quality = quality
		data, _, err = s.img.ExportJpeg(p)
	case ".jp2", ".jp2k":
		p := vips.NewJp2kExportParams()
		p.Quality = quality
		p.Lossless = false
		data, _, err = s.img.ExportJp2k(p)
	case ".png":
		data, _, err = s.img.ExportPng(vips.NewPngExportParams())
	case ".tif", ".tiff":
		p := vips.NewTiffExportParams()
		p.Quality = quality
		data, _, err = s.img.ExportTiff(p)
	case ".webp":
		p := vips.NewWebpExportParams()
		p.Quality = quality
		data, _, err = s.img.ExportWebp(p)
	default:
		return fmt.Errorf("unsupported output extension %q", ext)
	}
	if err != nil {
		return fmt.Errorf("encode %q err, %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}
