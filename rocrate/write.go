package rocrate

import (
	"io"
	"path"

	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Write materializes the crate as a directory at dir on dst: the metadata
// document plus a copy of every payload file, preserving relative paths.
func (c *Crate) Write(dst afero.Fs, dir string) error {
	if err := dst.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create crate dir %q", dir)
	}
	metadata, err := c.Metadata()
	if err != nil {
		return errors.Wrap(err, "render crate metadata")
	}
	if err := afero.WriteFile(dst, path.Join(dir, MetadataName), metadata, 0o644); err != nil {
		return errors.Wrap(err, "write crate metadata")
	}
	for _, rel := range c.files() {
		data, err := afero.ReadFile(c.fs, path.Join(c.root, rel))
		if err != nil {
			return errors.Wrapf(err, "read %q", rel)
		}
		target := path.Join(dir, rel)
		if parent := path.Dir(target); parent != "." {
			if err := dst.MkdirAll(parent, 0o755); err != nil {
				return errors.Wrapf(err, "create dir for %q", rel)
			}
		}
		if err := afero.WriteFile(dst, target, data, 0o644); err != nil {
			return errors.Wrapf(err, "write %q", rel)
		}
	}
	return nil
}

// WriteZip materializes the crate as a zip archive streamed to w, with the
// payload at the archive root.
func (c *Crate) WriteZip(w io.Writer) error {
	zw := zip.NewWriter(w)

	metadata, err := c.Metadata()
	if err != nil {
		return errors.Wrap(err, "render crate metadata")
	}
	f, err := zw.Create(MetadataName)
	if err != nil {
		return err
	}
	if _, err := f.Write(metadata); err != nil {
		return err
	}

	for _, rel := range c.files() {
		data, err := afero.ReadFile(c.fs, path.Join(c.root, rel))
		if err != nil {
			return errors.Wrapf(err, "read %q", rel)
		}
		f, err := zw.Create(rel)
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			return err
		}
	}
	return zw.Close()
}
