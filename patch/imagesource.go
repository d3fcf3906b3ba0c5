package patch

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ImageSource adapts a decoded image.Image to the Source interface. It covers
// plain raster inputs and tests; whole-slide formats go through the libvips
// backed sources in the slide package instead, which never decode the full
// image.
type ImageSource struct {
	img image.Image
}

// NewImageSource returns a Source over img.
func NewImageSource(img image.Image) *ImageSource {
	return &ImageSource{img: img}
}

// OpenImageSource decodes the image at path into memory.
func OpenImageSource(path string) (*ImageSource, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %q err, %w", path, err)
	}
	return &ImageSource{img: img}, nil
}

func (s *ImageSource) Bounds() (width, height int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *ImageSource) Fetch(x, y, size int) (Region, error) {
	w, h := s.Bounds()
	if x < 0 || y < 0 || x+size > w || y+size > h {
		return nil, fmt.Errorf("region %dx%d at (%d, %d) outside image bounds %dx%d",
			size, size, x, y, w, h)
	}
	min := s.img.Bounds().Min
	crop := imaging.Crop(s.img, image.Rect(min.X+x, min.Y+y, min.X+x+size, min.Y+y+size))
	return &imageRegion{img: crop}, nil
}

type imageRegion struct {
	img *image.NRGBA
}

func (r *imageRegion) Dims() (int, int) {
	b := r.img.Bounds()
	return b.Dx(), b.Dy()
}

// Bands reports 3: the crop carries RGB payload, the alpha plane is padding.
func (r *imageRegion) Bands() int { return 3 }

func (r *imageRegion) Encode(f Format, quality int) ([]byte, error) {
	if f != JPEG {
		return nil, fmt.Errorf("%s encoding requires a libvips backed source", f)
	}
	var buf bytes.Buffer
	err := imaging.Encode(&buf, r.img, imaging.JPEG, imaging.JPEGQuality(quality))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *imageRegion) Close() {}
