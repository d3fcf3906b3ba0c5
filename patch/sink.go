package patch

import (
	"fmt"

	"github.com/spf13/afero"
)

// DirSink writes each patch as its own file inside a directory.
type DirSink struct {
	fs  afero.Fs
	dir string
}

var _ Sink = new(DirSink)

// NewDirSink returns a sink writing into dir, creating it if needed.
func NewDirSink(fs afero.Fs, dir string) (*DirSink, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %q err, %w", dir, err)
	}
	return &DirSink{fs: afero.NewBasePathFs(fs, dir), dir: dir}, nil
}

func (d *DirSink) Put(name string, data []byte) error {
	return afero.WriteFile(d.fs, name, data, 0o644)
}

func (d *DirSink) Close() error { return nil }
