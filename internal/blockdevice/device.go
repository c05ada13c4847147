// Package blockdevice implements a buffered, sector-aligned seekable
// reader over a raw volume handle.
//
// Raw volume devices reject reads and seeks that don't start on a
// sector boundary, so this type absorbs that requirement and exposes a
// byte-granular Read/Seek surface to callers, the same way the
// original Rust Volume<T> wrapped a BufReader and translated arbitrary
// seeks into sector-aligned ones.
package blockdevice

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	// MinAlignment is the conservative sector granularity every raw
	// volume is assumed to support until a real sector size is known.
	MinAlignment = 512

	// BufferSize is the capacity of the internal read-ahead buffer.
	BufferSize = 1 << 20 // 1 MiB
)

// ErrUnsupported is returned for operations the device intentionally
// does not implement, such as SeekFrom::End.
var ErrUnsupported = errors.New("blockdevice: unsupported operation")

// Device is a buffered, seekable byte source over a raw volume handle.
// It is not safe for concurrent use: it holds a single cursor, and two
// goroutines reading through the same Device will interfere with each
// other's position, by design (see ContentReader in package ntfs).
type Device struct {
	file  *os.File
	align int64

	buf      []byte
	bufStart int64 // absolute offset of buf[0]
	bufValid int   // number of valid bytes currently in buf

	pos int64 // current logical offset
}

// Open opens the raw volume (or disk image) at path for buffered,
// sector-aligned reading.
func Open(path string) (*Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("blockdevice: open %s: %w", path, err)
	}
	return &Device{
		file:  f,
		align: MinAlignment,
		buf:   make([]byte, BufferSize),
	}, nil
}

// Close releases the underlying volume handle.
func (d *Device) Close() error {
	return d.file.Close()
}

// SetAlignment narrows the buffer's refill granularity to sectorSize
// once the boot sector has been parsed. Before this is called, the
// device conservatively aligns to MinAlignment, the lower bound every
// real NTFS volume satisfies.
func (d *Device) SetAlignment(sectorSize uint16) {
	if sectorSize == 0 {
		return
	}
	d.align = int64(sectorSize)
}

// Position returns the current logical byte offset.
func (d *Device) Position() int64 {
	return d.pos
}

func (d *Device) alignDown(x int64) int64 {
	return x - (x % d.align)
}

// refillAt reloads the internal buffer starting at an already-aligned
// absolute offset.
func (d *Device) refillAt(aligned int64) error {
	if _, err := d.file.Seek(aligned, io.SeekStart); err != nil {
		return err
	}
	n, err := io.ReadFull(d.file, d.buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	d.bufStart = aligned
	d.bufValid = n
	return nil
}

// Read fills at most len(p) bytes, advancing the logical position. It
// guarantees forward progress unless the device is at EOF.
func (d *Device) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if d.pos < d.bufStart || d.pos >= d.bufStart+int64(d.bufValid) {
		if err := d.refillAt(d.alignDown(d.pos)); err != nil {
			return 0, err
		}
	}
	off := int(d.pos - d.bufStart)
	if off >= d.bufValid {
		return 0, io.EOF
	}
	n := copy(p, d.buf[off:d.bufValid])
	d.pos += int64(n)
	return n, nil
}

// ReadFull fills buf entirely or returns an error: io.EOF if no bytes
// could be read, io.ErrUnexpectedEOF if only some could.
func (d *Device) ReadFull(buf []byte) error {
	_, err := io.ReadFull(d, buf)
	return err
}

// Seek repositions the device. Only io.SeekStart and io.SeekCurrent
// are supported; io.SeekEnd returns ErrUnsupported because the device
// is not required to know the volume's size.
//
// The buffer-reuse logic described for this algorithm (reuse the
// forward window, reuse the retained trailing window, or re-align and
// refill) is implemented lazily inside Read: Seek only updates the
// logical cursor, and the next Read decides whether the existing
// buffer already covers it.
func (d *Device) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = d.pos + offset
	case io.SeekEnd:
		return 0, fmt.Errorf("blockdevice: seek: %w", ErrUnsupported)
	default:
		return 0, fmt.Errorf("blockdevice: seek: invalid whence %d", whence)
	}
	if target < 0 {
		return 0, fmt.Errorf("blockdevice: seek: negative target %d", target)
	}
	d.pos = target
	return d.pos, nil
}
