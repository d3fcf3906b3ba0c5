package slide

import (
	"testing"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/stretchr/testify/require"

	"github.com/crs4/fair-crcc/patch"
)

// These tests run against a real libvips via synthetic images; no slide
// fixtures are required.

func init() {
	Startup(nil)
}

func blackSlide(t *testing.T, w, h int) *Slide {
	t.Helper()
	img, err := vips.Black(w, h)
	require.NoError(t, err)
	return &Slide{img: img, path: "synthetic"}
}

func TestFetchAreaDims(t *testing.T) {
	s := blackSlide(t, 256, 128)
	defer s.Close()

	reg, err := fetchArea(s, 10, 20, 64)
	require.NoError(t, err)
	defer reg.Close()
	require.Equal(t, 64, reg.Width())
	require.Equal(t, 64, reg.Height())

	// The fetch must not mutate the source.
	require.Equal(t, 256, s.Width())
	require.Equal(t, 128, s.Height())
}

func TestFetchAreaOutOfBounds(t *testing.T) {
	s := blackSlide(t, 64, 64)
	defer s.Close()
	_, err := fetchArea(s, 32, 32, 64)
	require.Error(t, err)
}

func TestMultibandFetch(t *testing.T) {
	pages := []*Slide{
		blackSlide(t, 128, 128),
		blackSlide(t, 128, 128),
		blackSlide(t, 128, 128),
	}
	defer CloseAll(pages)
	for _, p := range pages {
		require.Equal(t, 1, p.Bands())
	}

	src, err := NewMultibandSource(pages...)
	require.NoError(t, err)
	w, h := src.Bounds()
	require.Equal(t, 128, w)
	require.Equal(t, 128, h)

	reg, err := src.Fetch(16, 16, 32)
	require.NoError(t, err)
	defer reg.Close()
	require.Equal(t, 3, reg.Bands())
	rw, rh := reg.Dims()
	require.Equal(t, 32, rw)
	require.Equal(t, 32, rh)
}

func TestMultibandSourceDimMismatch(t *testing.T) {
	a := blackSlide(t, 128, 128)
	b := blackSlide(t, 64, 64)
	defer a.Close()
	defer b.Close()
	_, err := NewMultibandSource(a, b)
	require.Error(t, err)
}

func TestVipsRegionEncodeJPEG(t *testing.T) {
	s := blackSlide(t, 100, 100)
	defer s.Close()
	src := NewSource(s)
	reg, err := src.Fetch(0, 0, 50)
	require.NoError(t, err)
	defer reg.Close()

	data, err := reg.Encode(patch.JPEG, 90)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	// JPEG SOI marker.
	require.Equal(t, []byte{0xFF, 0xD8}, data[:2])
}

func TestGetString(t *testing.T) {
	s := blackSlide(t, 32, 32)
	defer s.Close()

	// Fields not present in the header must surface as an error rather
	// than an empty string, so vendor detection fails cleanly on images
	// that did not come through openslide.
	_, err := s.GetString("openslide.vendor")
	require.Error(t, err)
	require.Contains(t, err.Error(), `no field "openslide.vendor"`)
}

func TestSaveTIFFUnknownCompression(t *testing.T) {
	s := blackSlide(t, 32, 32)
	defer s.Close()

	// The binding's compression enum has no JPEG 2000 entry.
	require.NotContains(t, TIFFCompressions(), "jp2k")
	err := s.SaveTIFF(t.TempDir()+"/out.tif", TIFFOptions{Compression: "jp2k", TileSize: 256})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown tiff compression")
}

func TestRequirePages(t *testing.T) {
	s := blackSlide(t, 32, 32)
	defer s.Close()
	require.NoError(t, s.RequirePages(1))
	err := s.RequirePages(6)
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected 6")
}
