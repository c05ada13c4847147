package ntfs

import (
	"fmt"
	"io"

	"github.com/shubham/squirrel/internal/blockdevice"
)

// ContentReader is a seekable byte stream over an attribute's content,
// uniform whether the attribute is resident or spread across cluster
// runs on the volume. Like blockdevice.Device, a ContentReader holds a
// single cursor and is not safe for concurrent use.
type ContentReader interface {
	io.Reader
	Size() int64
	Seek(offset int64, whence int) (int64, error)
}

// newContentReader picks the ContentReader implementation appropriate
// for attr: a resident attribute's value already sits in memory, a
// non-resident one is read lazily through dev by way of its run list.
func newContentReader(attr Attribute, dev *blockdevice.Device) ContentReader {
	if !attr.NonResident {
		return &residentReader{data: attr.Resident}
	}
	return NewRunReader(dev, attr.Runs)
}

type residentReader struct {
	data []byte
	pos  int64
}

func (r *residentReader) Size() int64 { return int64(len(r.data)) }

func (r *residentReader) Read(p []byte) (int, error) {
	if r.pos >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += int64(n)
	return n, nil
}

func (r *residentReader) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.pos + offset
	case io.SeekEnd:
		target = int64(len(r.data)) + offset
	default:
		return 0, fmt.Errorf("ntfs: resident reader: invalid whence %d", whence)
	}
	if target < 0 || target > int64(len(r.data)) {
		return 0, fmt.Errorf("ntfs: resident reader: %w: seek target %d", ErrOutOfRange, target)
	}
	r.pos = target
	return r.pos, nil
}

// runState locates a position within RunReader.runs: run is the index
// of the run containing it, pos is the offset within that run.
type runState struct {
	run int
	pos uint64
}

// RunReader streams a non-resident attribute's content by following
// its DataRun list, seeking the backing device to the right cluster
// run on demand. It holds no buffer of its own; blockdevice.Device
// already absorbs sector alignment and read-ahead.
type RunReader struct {
	dev   *blockdevice.Device
	runs  []DataRun
	size  uint64
	state runState
}

// NewRunReader builds a RunReader over runs, reading through dev. runs
// is held by reference, not copied: callers must not mutate it after
// passing it in.
func NewRunReader(dev *blockdevice.Device, runs []DataRun) *RunReader {
	var size uint64
	for _, r := range runs {
		size += r.ByteLen
	}
	return &RunReader{dev: dev, runs: runs, size: size}
}

func (r *RunReader) Size() int64 { return int64(r.size) }

// stateFor locates the run containing virtual position pos.
func (r *RunReader) stateFor(pos uint64) runState {
	idx := len(r.runs)
	for i, run := range r.runs {
		if run.VirtOffset > pos {
			idx = i
			break
		}
	}
	run := idx - 1
	return runState{run: run, pos: pos - r.runs[run].VirtOffset}
}

func (r *RunReader) virtPosition() uint64 {
	return r.runs[r.state.run].VirtOffset + r.state.pos
}

func (r *RunReader) physicalPosition() uint64 {
	return r.runs[r.state.run].ByteOffset + r.state.pos
}

func (r *RunReader) runRemaining() uint64 {
	return r.runs[r.state.run].ByteLen - r.state.pos
}

func (r *RunReader) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		if len(r.runs) == 0 {
			target = offset
		} else {
			target = int64(r.virtPosition()) + offset
		}
	case io.SeekEnd:
		target = int64(r.size) + offset
	default:
		return 0, fmt.Errorf("ntfs: run reader: invalid whence %d", whence)
	}
	if target < 0 || target > int64(r.size) {
		return 0, fmt.Errorf("ntfs: run reader: %w: seek target %d", ErrOutOfRange, target)
	}
	if len(r.runs) == 0 {
		return target, nil
	}

	r.state = r.stateFor(uint64(target))
	if _, err := r.dev.Seek(int64(r.physicalPosition()), io.SeekStart); err != nil {
		return 0, err
	}
	return int64(r.virtPosition()), nil
}

// Read fills p from the current position, reseeking the backing device
// whenever the cursor sits at the very start of the content or the
// current run has just been exhausted but content remains.
func (r *RunReader) Read(p []byte) (int, error) {
	if len(r.runs) == 0 {
		return 0, io.EOF
	}

	vpos := r.virtPosition()
	if vpos == 0 || (r.runRemaining() == 0 && vpos < r.size) {
		if _, err := r.Seek(int64(vpos), io.SeekStart); err != nil {
			return 0, err
		}
	}

	remaining := r.runRemaining()
	if remaining == 0 {
		return 0, io.EOF
	}

	n := len(p)
	if uint64(n) > remaining {
		n = int(remaining)
	}
	read, err := r.dev.Read(p[:n])
	r.state.pos += uint64(read)
	return read, err
}
