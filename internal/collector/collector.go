// Package collector walks the configured set of glob patterns and the
// fixed table of well-known forensic artifact locations, streaming
// each matched file into an archive.Writer. The $MFT entry is special:
// instead of a glob match, it reads the raw NTFS volume through
// internal/ntfs and writes out $MFT's own content directly.
package collector

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/shubham/squirrel/internal/archive"
	"github.com/shubham/squirrel/internal/blockdevice"
	"github.com/shubham/squirrel/internal/ntfs"
)

// mftEntryMFT is the well-known MFT record number of $MFT itself.
const mftEntryMFT = 0

// ArtifactPath names one row of the well-known forensic artifact
// table: a stable flag name, a human description for the CLI, and the
// glob pattern (or the sentinel "$MFT") that locates it.
type ArtifactPath struct {
	Flag        string
	Description string
	Pattern     string
}

// WellKnownPaths mirrors the original tool's PATHS table: the fixed
// set of forensic artifact locations a collection run can opt into by
// flag, independent of any --path patterns the caller supplies.
var WellKnownPaths = []ArtifactPath{
	{"prefetch", "Prefetch files", `C:\Windows\Prefetch\*.pf`},
	{"registry", "System registry hives", `C:\Windows\System32\config\*`},
	{"event-logs", "Windows Event Logs", `C:\Windows\System32\winevt\logs\*.evtx`},
	{"ntuser", "Per-user NTUSER.DAT hives", `C:\Users\*\NTUSER.DAT*`},
	{"usrclass", "Per-user UsrClass.dat hives", `C:\Users\*\AppData\Local\Microsoft\Windows\UsrClass.dat*`},
	{"jump-lists", "Jump lists and recent LNK files", `C:\Users\*\AppData\Roaming\Microsoft\Windows\Recent\**\*`},
	{"hiberfile", "Hibernation file", `C:\hiberfil.sys`},
	{"swapfile", "Swap/page files", `C:\????file.sys`},
	{"startup", "Startup folder contents", `C:\Users\*\Start Menu\Programs\Startup\*`},
	{"scheduled-tasks", "Scheduled Tasks definitions", `C:\Windows\System32\Tasks\**\*`},
	{"mft", "NTFS Master File Table", `C:\$MFT`},
}

// Request is one drive's worth of collection work: the root to glob
// against (the live drive or a mounted snapshot) and the patterns to
// collect from it, relative to that root.
type Request struct {
	DriveLetter string // e.g. "C", used as an archive path prefix
	Root        string // filesystem root to resolve patterns against: live drive or snapshot mount
	VolumePath  string // raw volume handle, e.g. \\.\C:, used only for the $MFT pattern
	Patterns    []string

	// Progress, if set, is called with the size of each file (or $MFT
	// content) as it's added to the archive, so a caller can drive a
	// running byte count for this drive.
	Progress func(bytes int64)
}

func (req Request) reportProgress(n int64) {
	if req.Progress != nil {
		req.Progress(n)
	}
}

// Run collects every pattern in req into w, logging each file as it's
// added. A single unreadable file is logged and skipped rather than
// aborting the whole request — one locked or vanished file shouldn't
// sink an otherwise successful collection run.
func Run(req Request, w archive.Writer) error {
	for _, pattern := range req.Patterns {
		if pattern == "$MFT" {
			if err := collectMFT(req, w); err != nil {
				log.Warn().Err(err).Str("drive", req.DriveLetter).Msg("failed to collect $MFT")
			}
			continue
		}
		if err := collectGlob(req, pattern, w); err != nil {
			return err
		}
	}
	return nil
}

func collectGlob(req Request, pattern string, w archive.Writer) error {
	full := filepath.Join(req.Root, pattern)
	matches, err := filepath.Glob(full)
	if err != nil {
		return fmt.Errorf("collector: glob %s: %w", full, err)
	}

	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}

		rel, err := filepath.Rel(req.Root, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		archiveName := fmt.Sprintf(`%s\%s`, req.DriveLetter, rel)

		if err := addFile(archiveName, path, info.Size(), w); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to collect file, skipping")
			continue
		}
		req.reportProgress(info.Size())
		log.Info().Str("path", path).Msg("collected file")
	}
	return nil
}

func addFile(archiveName, path string, size int64, w archive.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("collector: open %s: %w", path, err)
	}
	defer f.Close()
	return w.AddFile(archiveName, size, f)
}

func collectMFT(req Request, w archive.Writer) error {
	mft, err := ntfs.Open(req.VolumePath)
	if err != nil {
		return fmt.Errorf("collector: open volume %s: %w", req.VolumePath, err)
	}
	defer mft.Close()

	dev, err := blockdevice.Open(req.VolumePath)
	if err != nil {
		return fmt.Errorf("collector: open volume %s: %w", req.VolumePath, err)
	}
	defer dev.Close()
	dev.SetAlignment(mft.Boot.SectorSize)

	entry, content, err := mft.OpenEntry(dev, mftEntryMFT)
	if err != nil {
		return fmt.Errorf("collector: read $MFT entry: %w", err)
	}
	if content == nil {
		return fmt.Errorf("collector: $MFT entry has no $DATA attribute (%d attributes parsed)", len(entry.Attributes))
	}

	archiveName := fmt.Sprintf(`%s\MFT`, req.DriveLetter)
	if err := w.AddFile(archiveName, content.Size(), io.Reader(content)); err != nil {
		return fmt.Errorf("collector: write $MFT to archive: %w", err)
	}
	req.reportProgress(content.Size())
	log.Info().Str("drive", req.DriveLetter).Int64("bytes", content.Size()).Msg("collected $MFT")
	return nil
}
