// Package archive writes collected files into a single tar+gzip
// container. No third-party tar/zip-writing library appears anywhere
// in the retrieval pack, so this is built on the standard library's
// archive/tar and compress/gzip (see DESIGN.md).
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
)

// Writer is the archive container contract a collection run writes
// through: one entry at a time, by logical name and declared size,
// then a final Close once every entry has been added.
type Writer interface {
	AddFile(name string, size int64, r io.Reader) error
	Close() error
}

// TarGzWriter implements Writer over a tar stream wrapped in gzip
// compression.
type TarGzWriter struct {
	gz *gzip.Writer
	tw *tar.Writer
}

// NewTarGzWriter wraps w in a gzip-compressed tar writer.
func NewTarGzWriter(w io.Writer) *TarGzWriter {
	gz := gzip.NewWriter(w)
	return &TarGzWriter{gz: gz, tw: tar.NewWriter(gz)}
}

// AddFile writes one file entry: a header declaring size, followed by
// exactly size bytes read from r.
func (a *TarGzWriter) AddFile(name string, size int64, r io.Reader) error {
	header := &tar.Header{
		Name: name,
		Mode: 0o644,
		Size: size,
	}
	if err := a.tw.WriteHeader(header); err != nil {
		return fmt.Errorf("archive: write header for %s: %w", name, err)
	}
	if _, err := io.CopyN(a.tw, r, size); err != nil {
		return fmt.Errorf("archive: copy %s: %w", name, err)
	}
	return nil
}

// Close flushes the tar and gzip layers in order.
func (a *TarGzWriter) Close() error {
	if err := a.tw.Close(); err != nil {
		return fmt.Errorf("archive: close tar writer: %w", err)
	}
	if err := a.gz.Close(); err != nil {
		return fmt.Errorf("archive: close gzip writer: %w", err)
	}
	return nil
}
