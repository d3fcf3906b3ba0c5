// Package ometiff converts whole-slide images to tiled BigTIFF: joining the
// co-registered channel pages of the CRCC 6-page OME-TIFF layout into one
// color image, and importing openslide formats with minimal OME-XML metadata
// carried over from the vendor fields.
package ometiff

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/crs4/fair-crcc/slide"
)

const (
	omeNamespace = "http://www.openmicroscopy.org/Schemas/OME/2016-06"
	xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"
	omeSchema    = omeNamespace + " " + omeNamespace + "/ome.xsd"
)

type omeDocument struct {
	XMLName        xml.Name        `xml:"OME"`
	Namespace      string          `xml:"xmlns,attr"`
	XSI            string          `xml:"xmlns:xsi,attr"`
	SchemaLocation string          `xml:"xsi:schemaLocation,attr"`
	Image          omeImage        `xml:"Image"`
	Annotations    *omeAnnotations `xml:"StructuredAnnotations,omitempty"`
}

type omeImage struct {
	ID     string    `xml:"ID,attr"`
	Pixels omePixels `xml:"Pixels"`
}

type omePixels struct {
	ID              string     `xml:"ID,attr"`
	DimensionOrder  string     `xml:"DimensionOrder,attr"`
	Interleaved     string     `xml:"Interleaved,attr"`
	SizeC           int        `xml:"SizeC,attr"`
	SizeX           int        `xml:"SizeX,attr"`
	SizeY           int        `xml:"SizeY,attr"`
	SizeZ           int        `xml:"SizeZ,attr"`
	SizeT           int        `xml:"SizeT,attr"`
	SignificantBits int        `xml:"SignificantBits,attr"`
	Type            string     `xml:"Type,attr"`
	Channel         omeChannel `xml:"Channel"`
	TiffData        struct{}   `xml:"TiffData"`
}

type omeChannel struct {
	ID              string   `xml:"ID,attr"`
	SamplesPerPixel int      `xml:"SamplesPerPixel,attr"`
	LightPath       struct{} `xml:"LightPath"`
}

type omeAnnotations struct {
	XMLAnnotations []omeXMLAnnotation `xml:"XMLAnnotation"`
}

type omeXMLAnnotation struct {
	ID    string   `xml:"ID,attr"`
	Value omeValue `xml:"Value"`
}

type omeValue struct {
	Original originalMetadata `xml:"OriginalMetadata"`
}

type originalMetadata struct {
	Key   string `xml:"Key"`
	Value string `xml:"Value"`
}

// BuildOMEXML returns a minimal OME-XML document for a single uint8 image of
// the given dimensions and band count, with the vendor metadata attached as
// OriginalMetadata annotations in sorted key order.
func BuildOMEXML(width, height, bands int, metadata map[string]string) ([]byte, error) {
	doc := omeDocument{
		Namespace:      omeNamespace,
		XSI:            xsiNamespace,
		SchemaLocation: omeSchema,
		Image: omeImage{
			ID: "Image:0",
			Pixels: omePixels{
				ID:              "Pixels:0",
				DimensionOrder:  "XYCZT",
				Interleaved:     "false",
				SizeC:           bands,
				SizeX:           width,
				SizeY:           height,
				SizeZ:           1,
				SizeT:           1,
				SignificantBits: 8,
				Type:            "uint8",
				Channel: omeChannel{
					ID:              "Channel:0:0",
					SamplesPerPixel: bands,
				},
			},
		},
	}

	if len(metadata) > 0 {
		keys := lo.Keys(metadata)
		sort.Strings(keys)
		annotations := make([]omeXMLAnnotation, len(keys))
		for i, k := range keys {
			annotations[i] = omeXMLAnnotation{
				ID: fmt.Sprintf("Annotation:%d", i),
				Value: omeValue{
					Original: originalMetadata{Key: k, Value: metadata[k]},
				},
			}
		}
		doc.Annotations = &omeAnnotations{XMLAnnotations: annotations}
	}

	out, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// VendorMetadata extracts the openslide vendor's general metadata fields
// from an openslide-loaded slide, keyed by the vendor-local field name.
func VendorMetadata(s *slide.Slide) (map[string]string, error) {
	vendor, err := s.GetString("openslide.vendor")
	if err != nil {
		return nil, fmt.Errorf("read openslide vendor err, %w", err)
	}

	var prefix string
	var key func(field string) string
	afterLastDot := func(f string) string { return f[strings.LastIndex(f, ".")+1:] }
	switch vendor {
	case "mirax":
		prefix = "mirax.GENERAL."
		key = afterLastDot
	case "aperio":
		prefix = "aperio."
		key = afterLastDot
	case "hamamatsu":
		prefix = "hamamatsu."
		key = func(f string) string { return f[strings.Index(f, ".")+1:] }
	default:
		return nil, fmt.Errorf("unsupported openslide vendor %q", vendor)
	}

	fields := lo.Filter(s.Fields(), func(f string, _ int) bool {
		return strings.HasPrefix(f, prefix)
	})
	metadata := make(map[string]string, len(fields))
	for _, f := range fields {
		v, err := s.GetString(f)
		if err != nil {
			return nil, fmt.Errorf("read field %q err, %w", f, err)
		}
		metadata[key(f)] = v
	}
	return metadata, nil
}
