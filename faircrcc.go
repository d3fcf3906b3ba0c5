// Package faircrcc holds command-line utilities for large pathology
// whole-slide images: random patch sampling, thumbnailing, and conversion to
// tiled OME/BigTIFF, plus an RO-Crate bundler for the surrounding workflow
// directory. Pixel work is delegated to libvips via govips; the packages here
// are the sampling logic, metadata construction, and CLI around it.
package faircrcc

import (
	"github.com/crs4/fair-crcc/patch"
	"github.com/crs4/fair-crcc/slide"
)

var _ patch.Source = new(patch.ImageSource)
var _ patch.Source = new(slide.PageSource)
var _ patch.Source = new(slide.MultibandSource)

var _ patch.Sink = new(patch.DirSink)
var _ patch.Sink = new(patch.BundleSink)
