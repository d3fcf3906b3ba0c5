package slide

import (
	"fmt"

	"github.com/davidbyttow/govips/v2/vips"

	"github.com/crs4/fair-crcc/patch"
)

// PageSource samples patches from a single opened slide.
type PageSource struct {
	s *Slide
}

// NewSource returns a patch source over s.
func NewSource(s *Slide) *PageSource {
	return &PageSource{s: s}
}

func (p *PageSource) Bounds() (int, int) {
	return p.s.Width(), p.s.Height()
}

func (p *PageSource) Fetch(x, y, size int) (patch.Region, error) {
	img, err := fetchArea(p.s, x, y, size)
	if err != nil {
		return nil, err
	}
	return &vipsRegion{img: img}, nil
}

// MultibandSource samples patches from several co-registered single-band
// pages of one slide, joining the per-page regions into one multi-band patch
// in fixed page order.
type MultibandSource struct {
	pages []*Slide
}

// NewMultibandSource returns a patch source over pages. All pages must share
// the same dimensions.
func NewMultibandSource(pages ...*Slide) (*MultibandSource, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("multiband source needs at least one page")
	}
	w, h := pages[0].Width(), pages[0].Height()
	for i, p := range pages[1:] {
		if p.Width() != w || p.Height() != h {
			return nil, fmt.Errorf(
				"page %d is %dx%d, expected %dx%d as page 0",
				i+1, p.Width(), p.Height(), w, h)
		}
	}
	return &MultibandSource{pages: pages}, nil
}

func (m *MultibandSource) Bounds() (int, int) {
	return m.pages[0].Width(), m.pages[0].Height()
}

func (m *MultibandSource) Fetch(x, y, size int) (patch.Region, error) {
	regions := make([]*vips.ImageRef, 0, len(m.pages))
	closeAll := func() {
		for _, r := range regions {
			r.Close()
		}
	}
	for i, p := range m.pages {
		img, err := fetchArea(p, x, y, size)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		regions = append(regions, img)
	}
	// Joined bands follow page order. The result is generic multiband, not a
	// named color space; the jp2k encoder keeps the bands as-is.
	if err := regions[0].BandJoin(regions[1:]...); err != nil {
		closeAll()
		return nil, fmt.Errorf("band join at (%d, %d) err, %w", x, y, err)
	}
	for _, r := range regions[1:] {
		r.Close()
	}
	return &vipsRegion{img: regions[0]}, nil
}

// fetchArea decodes only the requested sub-area. The copy keeps each fetch
// on its own buffer: ExtractArea mutates the ref it is called on.
func fetchArea(s *Slide, x, y, size int) (*vips.ImageRef, error) {
	img, err := s.img.Copy()
	if err != nil {
		return nil, fmt.Errorf("copy image ref err, %w", err)
	}
	if err := img.ExtractArea(x, y, size, size); err != nil {
		img.Close()
		return nil, fmt.Errorf("extract %dx%d area at (%d, %d) err, %w",
			size, size, x, y, err)
	}
	return img, nil
}

type vipsRegion struct {
	img *vips.ImageRef
}

func (r *vipsRegion) Dims() (int, int) {
	return r.img.Width(), r.img.Height()
}

func (r *vipsRegion) Bands() int { return r.img.Bands() }

func (r *vipsRegion) Encode(f patch.Format, quality int) ([]byte, error) {
	switch f {
	case patch.JPEG:
		p := vips.NewJpegExportParams()
		p.Quality = quality
		data, _, err := r.img.ExportJpeg(p)
		return data, err
	case patch.JP2K:
		p := vips.NewJp2kExportParams()
		p.Quality = quality
		p.Lossless = false
		data, _, err := r.img.ExportJp2k(p)
		return data, err
	default:
		return nil, fmt.Errorf("unsupported patch format %d", f)
	}
}

func (r *vipsRegion) Close() {
	r.img.Close()
}
