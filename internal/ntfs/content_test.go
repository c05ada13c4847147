package ntfs

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/shubham/squirrel/internal/blockdevice"
)

func openDeviceWithContent(t *testing.T, content []byte) *blockdevice.Device {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "vol.img")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write test volume: %v", err)
	}
	dev, err := blockdevice.Open(path)
	if err != nil {
		t.Fatalf("blockdevice.Open() error = %v", err)
	}
	t.Cleanup(func() { dev.Close() })
	return dev
}

func TestResidentReader(t *testing.T) {
	attr := Attribute{NonResident: false, Resident: []byte("hello, resident")}
	r := newContentReader(attr, nil)

	if r.Size() != int64(len(attr.Resident)) {
		t.Fatalf("Size() = %d, want %d", r.Size(), len(attr.Resident))
	}
	buf := make([]byte, len(attr.Resident))
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Fatalf("ReadFull error = %v", err)
	}
	if string(buf) != "hello, resident" {
		t.Fatalf("got %q", buf)
	}
	if _, err := r.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("read past end: err = %v, want io.EOF", err)
	}

	pos, err := r.Seek(5, io.SeekStart)
	if err != nil || pos != 5 {
		t.Fatalf("Seek() = %d, %v", pos, err)
	}
	rest := make([]byte, 10)
	if _, err := io.ReadFull(r, rest); err != nil {
		t.Fatalf("ReadFull after seek: %v", err)
	}
	if string(rest) != ", resident" {
		t.Fatalf("got %q, want %q", rest, ", resident")
	}

	if _, err := r.Seek(-1, io.SeekStart); err == nil {
		t.Fatal("expected error seeking before start")
	}
	if _, err := r.Seek(int64(len(attr.Resident)+1), io.SeekStart); err == nil {
		t.Fatal("expected error seeking past end")
	}
}

// TestRunReaderRead mirrors scenario B: reading sequentially across
// three runs reassembles the attribute's logical content in order,
// even though the runs are scattered non-contiguously on the device.
func TestRunReaderRead(t *testing.T) {
	dev := openDeviceWithContent(t, []byte("4560123XXX789"))
	runs := []DataRun{
		{ByteOffset: 3, VirtOffset: 0, ByteLen: 4},
		{ByteOffset: 0, VirtOffset: 4, ByteLen: 3},
		{ByteOffset: 10, VirtOffset: 7, ByteLen: 3},
	}
	rr := NewRunReader(dev, runs)
	if rr.Size() != 10 {
		t.Fatalf("Size() = %d, want 10", rr.Size())
	}

	buf := make([]byte, 10)
	if _, err := io.ReadFull(rr, buf); err != nil {
		t.Fatalf("ReadFull error = %v", err)
	}
	if string(buf) != "0123456789" {
		t.Fatalf("got %q, want %q", buf, "0123456789")
	}

	if _, err := rr.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("read past end: err = %v, want io.EOF", err)
	}
}

// TestRunReaderSeek mirrors scenario C: Start/Current/End seeks all
// resolve to the correct underlying device position across run
// boundaries, including negative Current deltas that cross back into
// an earlier run.
func TestRunReaderSeek(t *testing.T) {
	dev := openDeviceWithContent(t, make([]byte, 4096))
	runs := []DataRun{
		{ByteOffset: 1000, VirtOffset: 0, ByteLen: 1000},
		{ByteOffset: 3000, VirtOffset: 1000, ByteLen: 2000},
		{ByteOffset: 0, VirtOffset: 3000, ByteLen: 1000},
	}
	rr := NewRunReader(dev, runs)

	cases := []struct {
		name         string
		offset       int64
		whence       int
		wantVirt     int64
		wantPhysical int64
	}{
		{"start 500", 500, io.SeekStart, 500, 1500},
		{"current +500", 500, io.SeekCurrent, 1000, 3000},
		{"current -1", -1, io.SeekCurrent, 999, 1999},
		{"end -100", -100, io.SeekEnd, 3900, 900},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			gotVirt, err := rr.Seek(c.offset, c.whence)
			if err != nil {
				t.Fatalf("Seek() error = %v", err)
			}
			if gotVirt != c.wantVirt {
				t.Fatalf("virtual position = %d, want %d", gotVirt, c.wantVirt)
			}
			if rr.dev.Position() != c.wantPhysical {
				t.Fatalf("physical position = %d, want %d", rr.dev.Position(), c.wantPhysical)
			}
		})
	}
}

func TestRunReaderSeekOutOfRange(t *testing.T) {
	dev := openDeviceWithContent(t, make([]byte, 4096))
	runs := []DataRun{{ByteOffset: 0, VirtOffset: 0, ByteLen: 100}}
	rr := NewRunReader(dev, runs)

	if _, err := rr.Seek(200, io.SeekStart); err == nil {
		t.Fatal("expected error seeking past end")
	}
	if _, err := rr.Seek(-1, io.SeekStart); err == nil {
		t.Fatal("expected error seeking before start")
	}
}
