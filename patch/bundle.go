package patch

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	seekable "github.com/SaveTheRbtz/zstd-seekable-format-go"
	"github.com/klauspost/compress/zstd"
)

// A bundle is a single-file alternative to a patch directory: every encoded
// patch is appended to one seekable zstd stream, followed by a JSON index and
// an 8-byte big-endian index length. Individual patches stay randomly
// accessible without decompressing the whole stream.

// BundleEntry records one patch's location inside the decompressed stream.
type BundleEntry struct {
	Name   string `json:"name"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
}

// BundleSink streams patches into a seekable zstd bundle.
type BundleSink struct {
	w       io.WriteCloser
	enc     *zstd.Encoder
	off     int64
	entries []BundleEntry
}

var _ Sink = new(BundleSink)

// NewBundleSink returns a sink writing a bundle to w. Close finalizes the
// index and the zstd seek table; an unclosed bundle is unreadable.
func NewBundleSink(w io.Writer) (*BundleSink, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder err, %w", err)
	}
	sw, err := seekable.NewWriter(w, enc)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("create seekable writer err, %w", err)
	}
	return &BundleSink{w: sw, enc: enc}, nil
}

func (b *BundleSink) Put(name string, data []byte) error {
	if _, err := b.w.Write(data); err != nil {
		return err
	}
	b.entries = append(b.entries, BundleEntry{
		Name:   name,
		Offset: b.off,
		Size:   int64(len(data)),
	})
	b.off += int64(len(data))
	return nil
}

func (b *BundleSink) Close() error {
	defer b.enc.Close()
	index, err := json.Marshal(b.entries)
	if err != nil {
		return err
	}
	if _, err := b.w.Write(index); err != nil {
		return err
	}
	var trailer [8]byte
	binary.BigEndian.PutUint64(trailer[:], uint64(len(index)))
	if _, err := b.w.Write(trailer[:]); err != nil {
		return err
	}
	return b.w.Close()
}

// Bundle reads a bundle written by BundleSink.
type Bundle struct {
	r       seekable.Reader
	dec     *zstd.Decoder
	entries []BundleEntry
}

// OpenBundle reads the index of the bundle in rs.
func OpenBundle(rs io.ReadSeeker) (*Bundle, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder err, %w", err)
	}
	r, err := seekable.NewReader(rs, dec)
	if err != nil {
		dec.Close()
		return nil, fmt.Errorf("open seekable stream err, %w", err)
	}
	entries, err := readBundleIndex(r)
	if err != nil {
		r.Close()
		dec.Close()
		return nil, err
	}
	return &Bundle{r: r, dec: dec, entries: entries}, nil
}

func readBundleIndex(r seekable.Reader) ([]BundleEntry, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if size < 8 {
		return nil, fmt.Errorf("bundle too short: %d bytes", size)
	}
	var trailer [8]byte
	if _, err := r.ReadAt(trailer[:], size-8); err != nil {
		return nil, err
	}
	indexLen := int64(binary.BigEndian.Uint64(trailer[:]))
	if indexLen < 0 || indexLen > size-8 {
		return nil, fmt.Errorf("corrupt bundle index length %d", indexLen)
	}
	index := make([]byte, indexLen)
	if _, err := r.ReadAt(index, size-8-indexLen); err != nil {
		return nil, err
	}
	var entries []BundleEntry
	if err := json.Unmarshal(index, &entries); err != nil {
		return nil, fmt.Errorf("decode bundle index err, %w", err)
	}
	return entries, nil
}

// Entries returns the index in write order. Colliding names appear twice;
// Extract resolves to the later entry.
func (b *Bundle) Entries() []BundleEntry {
	return b.entries
}

// Extract returns the named patch's encoded bytes.
func (b *Bundle) Extract(name string) ([]byte, error) {
	for i := len(b.entries) - 1; i >= 0; i-- {
		if e := b.entries[i]; e.Name == name {
			data := make([]byte, e.Size)
			if _, err := b.r.ReadAt(data, e.Offset); err != nil {
				return nil, err
			}
			return data, nil
		}
	}
	return nil, fmt.Errorf("patch %q not found in bundle", name)
}

func (b *Bundle) Close() error {
	defer b.dec.Close()
	return b.r.Close()
}
