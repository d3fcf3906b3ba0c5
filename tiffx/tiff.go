// Package tiffx reads TIFF and BigTIFF headers and IFD chains: byte order,
// format variant, per-page dimensions and compression, and the image
// description. It decodes no pixel data; the converters use it to
// sanity-check the files libvips writes.
package tiffx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	leHeader = "II\x2A\x00" // little-endian classic
	beHeader = "MM\x00\x2A" // big-endian classic
	leBig    = "II\x2B\x00" // little-endian BigTIFF
	beBig    = "MM\x00\x2B" // big-endian BigTIFF

	tagImageWidth       = 256
	tagImageLength      = 257
	tagCompression      = 259
	tagImageDescription = 270

	typeASCII = 2
	typeShort = 3
	typeLong  = 4
	typeLong8 = 16

	// Chain walks stop here; a longer chain means a cycle or a corrupt file.
	maxPages = 4096
)

// Page is one image file directory.
type Page struct {
	Width       int
	Height      int
	Compression int
	Description string
}

// Info describes a decoded TIFF structure.
type Info struct {
	BigTIFF   bool
	ByteOrder binary.ByteOrder
	Pages     []Page
}

// DecodeFile decodes the TIFF structure of the file at path.
func DecodeFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open tiff %q err, %w", path, err)
	}
	defer f.Close()
	info, err := Decode(f)
	if err != nil {
		return Info{}, fmt.Errorf("decode tiff %q err, %w", path, err)
	}
	return info, nil
}

// Decode reads the header and walks the IFD chain of the TIFF in r.
func Decode(r io.ReadSeeker) (Info, error) {
	var empty Info
	var b [16]byte
	if _, err := io.ReadFull(r, b[:8]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return empty, err
	}

	var info Info
	switch string(b[0:4]) {
	case leHeader:
		info.ByteOrder = binary.LittleEndian
	case beHeader:
		info.ByteOrder = binary.BigEndian
	case leBig:
		info.ByteOrder = binary.LittleEndian
		info.BigTIFF = true
	case beBig:
		info.ByteOrder = binary.BigEndian
		info.BigTIFF = true
	default:
		return empty, errors.New("unsupported binary format")
	}

	var next int64
	if info.BigTIFF {
		// Offset size (must be 8) and a reserved zero word precede the
		// first IFD offset.
		if info.ByteOrder.Uint16(b[4:6]) != 8 || info.ByteOrder.Uint16(b[6:8]) != 0 {
			return empty, errors.New("unsupported bigtiff offset size")
		}
		if _, err := io.ReadFull(r, b[8:16]); err != nil {
			return empty, err
		}
		next = int64(info.ByteOrder.Uint64(b[8:16]))
	} else {
		next = int64(info.ByteOrder.Uint32(b[4:8]))
	}

	for next != 0 {
		if len(info.Pages) >= maxPages {
			return empty, fmt.Errorf("ifd chain longer than %d entries", maxPages)
		}
		page, n, err := decodeIFD(r, info, next)
		if err != nil {
			return empty, fmt.Errorf("ifd %d at offset %d err, %w", len(info.Pages), next, err)
		}
		info.Pages = append(info.Pages, page)
		next = n
	}
	if len(info.Pages) == 0 {
		return empty, errors.New("no image file directories")
	}
	return info, nil
}

func decodeIFD(r io.ReadSeeker, info Info, offset int64) (Page, int64, error) {
	var empty Page
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return empty, 0, err
	}

	entrySize := 12
	if info.BigTIFF {
		entrySize = 20
	}

	var count int64
	var b [20]byte
	if info.BigTIFF {
		if _, err := io.ReadFull(r, b[:8]); err != nil {
			return empty, 0, err
		}
		count = int64(info.ByteOrder.Uint64(b[:8]))
	} else {
		if _, err := io.ReadFull(r, b[:2]); err != nil {
			return empty, 0, err
		}
		count = int64(info.ByteOrder.Uint16(b[:2]))
	}
	if count < 0 || count > 1<<16 {
		return empty, 0, fmt.Errorf("implausible ifd entry count %d", count)
	}

	entries := make([]byte, count*int64(entrySize))
	if _, err := io.ReadFull(r, entries); err != nil {
		return empty, 0, err
	}
	if _, err := io.ReadFull(r, b[:offsetSize(info)]); err != nil {
		return empty, 0, err
	}
	next := readOffset(info, b[:offsetSize(info)])

	var page Page
	for i := int64(0); i < count; i++ {
		e := entries[i*int64(entrySize) : (i+1)*int64(entrySize)]
		tag := info.ByteOrder.Uint16(e[0:2])
		typ := info.ByteOrder.Uint16(e[2:4])
		switch tag {
		case tagImageWidth, tagImageLength, tagCompression:
			v, err := scalarValue(info, typ, e)
			if err != nil {
				return empty, 0, fmt.Errorf("tag %d: %w", tag, err)
			}
			switch tag {
			case tagImageWidth:
				page.Width = int(v)
			case tagImageLength:
				page.Height = int(v)
			case tagCompression:
				page.Compression = int(v)
			}
		case tagImageDescription:
			s, err := asciiValue(info, r, typ, e)
			if err != nil {
				return empty, 0, fmt.Errorf("image description: %w", err)
			}
			page.Description = s
		}
	}
	return page, next, nil
}

func offsetSize(info Info) int {
	if info.BigTIFF {
		return 8
	}
	return 4
}

func readOffset(info Info, b []byte) int64 {
	if info.BigTIFF {
		return int64(info.ByteOrder.Uint64(b))
	}
	return int64(info.ByteOrder.Uint32(b))
}

// scalarValue reads a count-1 integer value stored inline in the entry.
func scalarValue(info Info, typ uint16, entry []byte) (int64, error) {
	value := entry[8:12]
	if info.BigTIFF {
		value = entry[12:20]
	}
	switch typ {
	case typeShort:
		return int64(info.ByteOrder.Uint16(value[:2])), nil
	case typeLong:
		return int64(info.ByteOrder.Uint32(value[:4])), nil
	case typeLong8:
		if !info.BigTIFF {
			return 0, errors.New("long8 value in classic tiff")
		}
		return int64(info.ByteOrder.Uint64(value)), nil
	default:
		return 0, fmt.Errorf("unsupported value type %d", typ)
	}
}

// asciiValue reads an ASCII field, following the value offset when the
// string does not fit in the entry.
func asciiValue(info Info, r io.ReadSeeker, typ uint16, entry []byte) (string, error) {
	if typ != typeASCII {
		return "", fmt.Errorf("unsupported value type %d", typ)
	}
	var n int64
	value := entry[8:12]
	if info.BigTIFF {
		n = int64(info.ByteOrder.Uint64(entry[4:12]))
		value = entry[12:20]
	} else {
		n = int64(info.ByteOrder.Uint32(entry[4:8]))
	}
	if n <= 0 {
		return "", nil
	}
	if n > 1<<24 {
		return "", fmt.Errorf("implausible description length %d", n)
	}
	var raw []byte
	if n <= int64(len(value)) {
		raw = value[:n]
	} else {
		pos, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return "", err
		}
		if _, err := r.Seek(readOffset(info, value), io.SeekStart); err != nil {
			return "", err
		}
		raw = make([]byte, n)
		if _, err := io.ReadFull(r, raw); err != nil {
			return "", err
		}
		if _, err := r.Seek(pos, io.SeekStart); err != nil {
			return "", err
		}
	}
	// ASCII fields are NUL terminated.
	for len(raw) > 0 && raw[len(raw)-1] == 0 {
		raw = raw[:len(raw)-1]
	}
	return string(raw), nil
}
