package patch

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	seekable "github.com/SaveTheRbtz/zstd-seekable-format-go"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

func TestBundleRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewBundleSink(&buf)
	require.NoError(t, err)

	want := map[string][]byte{}
	for i := 0; i < 10; i++ {
		name := FileName(i, i*100, i*50, JPEG)
		data := bytes.Repeat([]byte{byte(i)}, 100+i*37)
		want[name] = data
		require.NoError(t, sink.Put(name, data))
	}
	require.NoError(t, sink.Close())

	b, err := OpenBundle(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer b.Close()

	require.Len(t, b.Entries(), 10)
	for name, data := range want {
		got, err := b.Extract(name)
		require.NoError(t, err)
		require.Equal(t, data, got, "patch %s", name)
	}

	_, err = b.Extract("999_0_0.jpg")
	require.Error(t, err)
}

func TestBundleCollidingNames(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewBundleSink(&buf)
	require.NoError(t, err)
	require.NoError(t, sink.Put("000_5_5.jpg", []byte("first")))
	require.NoError(t, sink.Put("000_5_5.jpg", []byte("second")))
	require.NoError(t, sink.Close())

	b, err := OpenBundle(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer b.Close()

	// Both draws stay in the index; extraction resolves to the later one.
	require.Len(t, b.Entries(), 2)
	got, err := b.Extract("000_5_5.jpg")
	require.NoError(t, err)
	require.Equal(t, []byte("second"), got)
}

func TestBundleEmpty(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewBundleSink(&buf)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	b, err := OpenBundle(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer b.Close()
	require.Empty(t, b.Entries())
}

func TestBundleCorrupt(t *testing.T) {
	// Streams whose frames decode but whose index trailer is broken must
	// error out of OpenBundle without handing back a half-open bundle.
	writeStream := func(t *testing.T, chunks ...[]byte) []byte {
		var buf bytes.Buffer
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		w, err := seekable.NewWriter(&buf, enc)
		require.NoError(t, err)
		for _, c := range chunks {
			_, err := w.Write(c)
			require.NoError(t, err)
		}
		require.NoError(t, w.Close())
		enc.Close()
		return buf.Bytes()
	}

	t.Run("too short", func(t *testing.T) {
		data := writeStream(t, []byte{1, 2, 3})
		b, err := OpenBundle(bytes.NewReader(data))
		require.ErrorContains(t, err, "bundle too short")
		require.Nil(t, b)
	})

	t.Run("oversized index length", func(t *testing.T) {
		trailer := make([]byte, 8)
		binary.BigEndian.PutUint64(trailer, 1<<40)
		data := writeStream(t, trailer)
		b, err := OpenBundle(bytes.NewReader(data))
		require.ErrorContains(t, err, "corrupt bundle index length")
		require.Nil(t, b)
	})

	t.Run("malformed index json", func(t *testing.T) {
		index := []byte("not json")
		trailer := make([]byte, 8)
		binary.BigEndian.PutUint64(trailer, uint64(len(index)))
		data := writeStream(t, index, trailer)
		b, err := OpenBundle(bytes.NewReader(data))
		require.ErrorContains(t, err, "decode bundle index")
		require.Nil(t, b)
	})
}

func TestBundleThroughSampler(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewBundleSink(&buf)
	require.NoError(t, err)

	src := &fakeSource{w: 300, h: 300, bands: 3}
	s, err := New(src, sink, Config{Count: 4, Size: 64, Quality: 90})
	require.NoError(t, err)
	require.NoError(t, s.Run())

	b, err := OpenBundle(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer b.Close()
	require.Len(t, b.Entries(), 4)
	for i, e := range b.Entries() {
		require.Equal(t, fmt.Sprintf("%03d_%d_%d.jpg", i, src.fetches[i].x, src.fetches[i].y), e.Name)
	}
}
