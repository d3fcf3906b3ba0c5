package tiffx

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func encodeClassic(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(y), 0, 0xFF})
		}
	}
	var buf bytes.Buffer
	err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Uncompressed})
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDecodeClassic(t *testing.T) {
	data := encodeClassic(t, 37, 23)
	info, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.False(t, info.BigTIFF)
	require.Len(t, info.Pages, 1)
	require.Equal(t, 37, info.Pages[0].Width)
	require.Equal(t, 23, info.Pages[0].Height)
}

func TestDecodeBadMagic(t *testing.T) {
	for _, data := range [][]byte{
		[]byte("BM\x00\x00\x00\x00\x00\x00"),
		[]byte("II\x00\x00\x00\x00\x00\x00"),
		bytes.Repeat([]byte{0}, 8),
	} {
		_, err := Decode(bytes.NewReader(data))
		require.Error(t, err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	data := encodeClassic(t, 16, 16)
	_, err := Decode(bytes.NewReader(data[:4]))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecodeNoIFD(t *testing.T) {
	// Valid header, zero first-IFD offset.
	data := []byte("II\x2A\x00\x00\x00\x00\x00")
	_, err := Decode(bytes.NewReader(data))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no image file directories")
}

// buildBigTIFF writes a minimal little-endian BigTIFF: one IFD with width,
// height, compression, and an out-of-line image description.
func buildBigTIFF(t *testing.T, width, height uint64, desc string) []byte {
	t.Helper()
	le := binary.LittleEndian
	var buf bytes.Buffer

	// Header: magic, offset size 8, reserved 0, first IFD at 16.
	buf.WriteString("II\x2B\x00")
	require.NoError(t, binary.Write(&buf, le, uint16(8)))
	require.NoError(t, binary.Write(&buf, le, uint16(0)))
	require.NoError(t, binary.Write(&buf, le, uint64(16)))

	descBytes := append([]byte(desc), 0)
	const entries = 4
	// IFD layout: count (8) + entries (4*20) + next (8), description after.
	descOffset := uint64(16 + 8 + entries*20 + 8)

	require.NoError(t, binary.Write(&buf, le, uint64(entries)))
	entry := func(tag, typ uint16, count, value uint64) {
		require.NoError(t, binary.Write(&buf, le, tag))
		require.NoError(t, binary.Write(&buf, le, typ))
		require.NoError(t, binary.Write(&buf, le, count))
		require.NoError(t, binary.Write(&buf, le, value))
	}
	entry(tagImageWidth, typeLong8, 1, width)
	entry(tagImageLength, typeLong, 1, height)
	entry(tagCompression, typeShort, 1, 7) // jpeg
	entry(tagImageDescription, typeASCII, uint64(len(descBytes)), descOffset)
	require.NoError(t, binary.Write(&buf, le, uint64(0))) // no next IFD
	buf.Write(descBytes)
	return buf.Bytes()
}

func TestDecodeBigTIFF(t *testing.T) {
	desc := `<?xml version="1.0"?><OME></OME>`
	data := buildBigTIFF(t, 150000, 98304, desc)
	info, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.True(t, info.BigTIFF)
	require.Len(t, info.Pages, 1)
	require.Equal(t, 150000, info.Pages[0].Width)
	require.Equal(t, 98304, info.Pages[0].Height)
	require.Equal(t, 7, info.Pages[0].Compression)
	require.Equal(t, desc, info.Pages[0].Description)
}

func TestDecodeBigTIFFInlineDescription(t *testing.T) {
	le := binary.LittleEndian
	var buf bytes.Buffer
	buf.WriteString("II\x2B\x00")
	require.NoError(t, binary.Write(&buf, le, uint16(8)))
	require.NoError(t, binary.Write(&buf, le, uint16(0)))
	require.NoError(t, binary.Write(&buf, le, uint64(16)))
	require.NoError(t, binary.Write(&buf, le, uint64(1)))
	// "ok" with NUL fits inline in the 8 value bytes.
	require.NoError(t, binary.Write(&buf, le, uint16(tagImageDescription)))
	require.NoError(t, binary.Write(&buf, le, uint16(typeASCII)))
	require.NoError(t, binary.Write(&buf, le, uint64(3)))
	buf.WriteString("ok\x00\x00\x00\x00\x00\x00")
	require.NoError(t, binary.Write(&buf, le, uint64(0)))

	info, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, "ok", info.Pages[0].Description)
}
