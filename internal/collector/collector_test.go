package collector

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

type fakeEntry struct {
	name string
	size int64
	data string
}

type fakeWriter struct {
	entries []fakeEntry
	closed  bool
}

func (f *fakeWriter) AddFile(name string, size int64, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.entries = append(f.entries, fakeEntry{name: name, size: size, data: string(data)})
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestRunCollectsMatchingFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "Windows", "Prefetch"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	pfPath := filepath.Join(root, "Windows", "Prefetch", "FOO.EXE-ABCD1234.pf")
	if err := os.WriteFile(pfPath, []byte("prefetch data"), 0o644); err != nil {
		t.Fatalf("write prefetch file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "Windows", "Prefetch", "ignored.txt"), []byte("nope"), 0o644); err != nil {
		t.Fatalf("write ignored file: %v", err)
	}

	req := Request{
		DriveLetter: "C",
		Root:        root,
		Patterns:    []string{filepath.Join("Windows", "Prefetch", "*.pf")},
	}
	w := &fakeWriter{}
	if err := Run(req, w); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(w.entries) != 1 {
		t.Fatalf("got %d entries, want 1: %+v", len(w.entries), w.entries)
	}
	if w.entries[0].data != "prefetch data" {
		t.Fatalf("entry data = %q", w.entries[0].data)
	}
	wantName := `C\Windows\Prefetch\FOO.EXE-ABCD1234.pf`
	if w.entries[0].name != wantName {
		t.Fatalf("entry name = %q, want %q", w.entries[0].name, wantName)
	}
}

func TestRunNoMatchingFiles(t *testing.T) {
	root := t.TempDir()
	req := Request{
		DriveLetter: "C",
		Root:        root,
		Patterns:    []string{"*.nonexistent"},
	}
	w := &fakeWriter{}
	if err := Run(req, w); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(w.entries) != 0 {
		t.Fatalf("got %d entries, want 0", len(w.entries))
	}
}

func TestWellKnownPathsCoverage(t *testing.T) {
	wantFlags := []string{
		"prefetch", "registry", "event-logs", "ntuser", "usrclass",
		"jump-lists", "hiberfile", "swapfile", "startup", "scheduled-tasks", "mft",
	}
	if len(WellKnownPaths) != len(wantFlags) {
		t.Fatalf("got %d well-known paths, want %d", len(WellKnownPaths), len(wantFlags))
	}
	for i, flag := range wantFlags {
		if WellKnownPaths[i].Flag != flag {
			t.Errorf("WellKnownPaths[%d].Flag = %q, want %q", i, WellKnownPaths[i].Flag, flag)
		}
	}
}
