package slide

import (
	"fmt"
	"os"

	"github.com/davidbyttow/govips/v2/vips"
)

// TIFFOptions controls tiled (Big)TIFF output.
type TIFFOptions struct {
	// Compression is one of none, jpeg, deflate, packbits, ccittfax4, lzw,
	// webp, zstd.
	Compression string

	// Quality applies to the lossy compressors. Zero keeps the encoder
	// default.
	Quality int

	// TileSize is the tile side length.
	TileSize int

	// Pyramid adds successively halved resolution levels.
	Pyramid bool
}

var tiffCompressions = map[string]vips.TiffCompression{
	"none":      vips.TiffCompressionNone,
	"jpeg":      vips.TiffCompressionJpeg,
	"deflate":   vips.TiffCompressionDeflate,
	"packbits":  vips.TiffCompressionPackbits,
	"ccittfax4": vips.TiffCompressionFax4,
	"lzw":       vips.TiffCompressionLzw,
	"webp":      vips.TiffCompressionWebp,
	"zstd":      vips.TiffCompressionZstd,
}

// TIFFCompressions lists the accepted Compression values. JPEG 2000 tile
// compression is absent: libvips supports it, the Go binding's enum stops
// at zstd.
func TIFFCompressions() []string {
	return []string{"none", "jpeg", "deflate", "packbits", "ccittfax4", "lzw", "webp", "zstd"}
}

// SaveTIFF writes the slide as a tiled TIFF to path. Large slides come out
// as BigTIFF; libvips switches automatically once offsets outgrow the
// classic format.
func (s *Slide) SaveTIFF(path string, opt TIFFOptions) error {
	comp, ok := tiffCompressions[opt.Compression]
	if !ok {
		return fmt.Errorf("unknown tiff compression %q", opt.Compression)
	}
	p := vips.NewTiffExportParams()
	p.Compression = comp
	p.Tile = true
	p.TileWidth = opt.TileSize
	p.TileHeight = opt.TileSize
	p.Pyramid = opt.Pyramid
	if opt.Quality > 0 {
		p.Quality = opt.Quality
	}
	data, _, err := s.img.ExportTiff(p)
	if err != nil {
		return fmt.Errorf("encode tiff %q err, %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}
