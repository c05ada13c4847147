// Command squirrel is a live-system forensic collector for Windows/NTFS
// hosts. It copies a configured set of files — ordinary glob matches
// plus a fixed table of well-known forensic artifacts, and optionally
// $MFT itself read directly off the raw volume — into a single
// tar+gzip archive, bypassing the filesystem driver for files the OS
// holds open by collecting through a Volume Shadow Copy snapshot.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shubham/squirrel/internal/archive"
	"github.com/shubham/squirrel/internal/collector"
	"github.com/shubham/squirrel/internal/device"
	"github.com/shubham/squirrel/internal/snapshot"
	"github.com/shubham/squirrel/internal/tui"
	"github.com/shubham/squirrel/internal/upload"
)

type options struct {
	noSnapshot  bool
	workingDir  string
	destination string
	extraPaths  []string
	logLevel    string
	noTUI       bool
	enabled     map[string]*bool // bound to cobra's BoolVar flags; read after Execute parses them
}

func main() {
	opts := &options{enabled: make(map[string]*bool)}

	root := &cobra.Command{
		Use:   "squirrel",
		Short: "Live-system forensic collector for NTFS hosts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	root.Flags().BoolVar(&opts.noSnapshot, "no-snapshot", false,
		"skip VSS snapshots and collect from the live volume (locked files will fail)")
	root.Flags().StringVarP(&opts.workingDir, "working-dir", "w", "",
		"scratch directory for the archive and snapshot mounts (default: a temp dir)")
	root.Flags().StringVarP(&opts.destination, "destination", "d", "",
		"remote collector base URL; omit to keep the local archive")
	root.Flags().StringArrayVarP(&opts.extraPaths, "path", "p", nil,
		`extra glob pattern to collect, e.g. C:\Users\*\Downloads\*`)
	root.Flags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.Flags().BoolVar(&opts.noTUI, "no-tui", false, "disable the live progress display")

	for _, p := range collector.WellKnownPaths {
		enabled := new(bool)
		root.Flags().BoolVar(enabled, p.Flag, false, "collect "+p.Description)
		opts.enabled[p.Flag] = enabled
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// findVolume looks up driveLetter (e.g. "C") among the volumes an
// enumeration pass returned, so a collection run never opens a raw
// device path for a drive that doesn't exist or isn't NTFS.
func findVolume(volumes []device.Device, driveLetter string) (device.Device, error) {
	want := strings.ToUpper(driveLetter)
	for _, v := range volumes {
		letter := strings.ToUpper(strings.TrimSuffix(v.Mountpoint, `:\`))
		if letter == want {
			return v, nil
		}
	}
	return device.Device{}, fmt.Errorf("squirrel: drive %s: not found among enumerated NTFS volumes", driveLetter)
}

// driveRequests groups path patterns by drive letter the way the
// original tool's get_paths did: each pattern starts with a drive spec
// like `C:\`, which is split off and used to key the request, leaving
// the rest as a pattern relative to that drive's root.
func driveRequests(paths []string) map[string][]string {
	byDrive := make(map[string][]string)
	for _, p := range paths {
		if len(p) < 3 {
			continue
		}
		drive := p[:3] // "C:\"
		pattern := p[3:]
		byDrive[drive] = append(byDrive[drive], pattern)
	}
	return byDrive
}

func run(opts *options) error {
	level, err := zerolog.ParseLevel(opts.logLevel)
	if err != nil {
		return fmt.Errorf("squirrel: invalid log level %q: %w", opts.logLevel, err)
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger().Level(level)

	workingDir := opts.workingDir
	if workingDir == "" {
		workingDir = filepath.Join(os.TempDir(), "squirrel_work")
	}
	if err := os.MkdirAll(workingDir, 0o755); err != nil {
		return fmt.Errorf("squirrel: create working dir: %w", err)
	}

	var paths []string
	for flag, pattern := range wellKnownPatterns() {
		if enabled := opts.enabled[flag]; enabled != nil && *enabled {
			paths = append(paths, pattern)
		}
	}
	paths = append(paths, opts.extraPaths...)
	sort.Strings(paths)

	requests := driveRequests(paths)
	if len(requests) == 0 {
		return fmt.Errorf("squirrel: no paths selected; pass --path or one of the well-known artifact flags")
	}

	volumes, err := device.Volumes()
	if err != nil {
		return fmt.Errorf("squirrel: enumerate volumes: %w", err)
	}

	archivePath := filepath.Join(workingDir, "archive.tar.gz")
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("squirrel: create archive: %w", err)
	}
	aw := archive.NewTarGzWriter(archiveFile)

	drives := make([]string, 0, len(requests))
	for d := range requests {
		drives = append(drives, d)
	}
	sort.Strings(drives)

	labels := make([]string, 0, len(drives)+1)
	for _, d := range drives {
		labels = append(labels, "collect "+d)
	}
	labels = append(labels, "finalize archive")
	if opts.destination != "" {
		labels = append(labels, "upload")
	}

	var program *tea.Program
	done := make(chan struct{})
	if !opts.noTUI {
		model := tui.New(labels)
		program = tea.NewProgram(model)
		go func() {
			program.Run()
			close(done)
		}()
	}

	send := func(msg tea.Msg) {
		if program != nil {
			program.Send(msg)
		}
	}

	var collectErr error
	for i, drive := range drives {
		driveLetter := strings.TrimSuffix(drive, `:\`)

		vol, verr := findVolume(volumes, driveLetter)
		if verr != nil {
			collectErr = verr
			send(tui.PhaseStartedMsg{Index: i})
			send(tui.PhaseFailedMsg{Index: i, Err: collectErr})
			break
		}

		send(tui.PhaseStartedMsg{Index: i})

		var driveBytes int64
		req := collector.Request{
			DriveLetter: driveLetter,
			Patterns:    requests[drive],
			Progress: func(n int64) {
				driveBytes += n
				send(tui.PhaseProgressMsg{Index: i, Bytes: driveBytes})
			},
		}

		if opts.noSnapshot {
			req.Root = drive
			req.VolumePath = vol.Path
			collectErr = collector.Run(req, aw)
		} else {
			mountPoint := filepath.Join(workingDir, "mount-"+driveLetter)
			snap, serr := snapshot.Create(drive, mountPoint)
			if serr != nil {
				collectErr = serr
			} else {
				req.Root = snap.MountPoint
				req.VolumePath = snap.DeviceObject
				collectErr = collector.Run(req, aw)
				if derr := snap.Delete(); derr != nil {
					log.Warn().Err(derr).Str("drive", drive).Msg("failed to delete snapshot")
				}
			}
		}

		if collectErr != nil {
			send(tui.PhaseFailedMsg{Index: i, Err: collectErr})
			break
		}
		send(tui.PhaseDoneMsg{Index: i})
	}

	finalizeIdx := len(drives)
	if collectErr == nil {
		send(tui.PhaseStartedMsg{Index: finalizeIdx})
		if err := aw.Close(); err != nil {
			collectErr = fmt.Errorf("squirrel: finalize archive: %w", err)
			send(tui.PhaseFailedMsg{Index: finalizeIdx, Err: err})
		} else {
			send(tui.PhaseDoneMsg{Index: finalizeIdx})
		}
	} else {
		aw.Close()
	}

	if collectErr == nil && opts.destination != "" {
		uploadIdx := finalizeIdx + 1
		send(tui.PhaseStartedMsg{Index: uploadIdx})
		if err := uploadArchive(opts.destination, archivePath); err != nil {
			collectErr = err
			send(tui.PhaseFailedMsg{Index: uploadIdx, Err: err})
		} else {
			send(tui.PhaseDoneMsg{Index: uploadIdx})
			os.Remove(archivePath)
		}
	}

	send(tui.QuitMsg{})
	if program != nil {
		<-done
	}

	return collectErr
}

func uploadArchive(destination, archivePath string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("squirrel: open archive for upload: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("squirrel: stat archive: %w", err)
	}

	client := upload.NewClient(3)
	return client.Transfer(destination, info.Size(), f)
}

// wellKnownPatterns indexes collector.WellKnownPaths by flag name.
func wellKnownPatterns() map[string]string {
	m := make(map[string]string, len(collector.WellKnownPaths))
	for _, p := range collector.WellKnownPaths {
		m[p.Flag] = p.Pattern
	}
	return m
}
