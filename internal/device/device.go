// Package device enumerates local storage so a collection run can
// resolve a --path pattern's drive letter to the raw device path
// internal/ntfs.Open expects.
package device

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Device describes one enumerated storage device or, on Windows, one
// mounted NTFS volume.
type Device struct {
	Path       string // raw handle to open, e.g. \\.\C: or /dev/sda1
	Name       string
	Size       int64
	SizeHuman  string
	Filesystem string
	Mountpoint string
	Removable  bool
}

// List returns available storage devices for the current OS.
func List() ([]Device, error) {
	switch runtime.GOOS {
	case "darwin":
		return listDarwin()
	case "linux":
		return listLinux()
	case "windows":
		return listWindows()
	default:
		return nil, fmt.Errorf("device: unsupported OS %s", runtime.GOOS)
	}
}

// Volumes returns the subset of List's devices that are mounted NTFS
// volumes — the only kind internal/ntfs.Open can make sense of. On
// Windows this also resolves each volume's drive letter to the
// \\.\<letter>: path form the volume device object expects.
func Volumes() ([]Device, error) {
	all, err := List()
	if err != nil {
		return nil, err
	}
	var volumes []Device
	for _, d := range all {
		if strings.EqualFold(d.Filesystem, "NTFS") {
			volumes = append(volumes, d)
		}
	}
	return volumes, nil
}

func listDarwin() ([]Device, error) {
	cmd := exec.Command("diskutil", "list")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("device: diskutil list: %w", err)
	}

	var devices []Device
	scanner := bufio.NewScanner(bytes.NewReader(output))

	var currentDisk string
	for scanner.Scan() {
		line := scanner.Text()

		// Main disk line: /dev/disk0 (internal):
		if strings.HasPrefix(line, "/dev/disk") {
			parts := strings.Fields(line)
			if len(parts) >= 1 {
				currentDisk = strings.TrimSuffix(parts[0], ":")
			}
			continue
		}

		line = strings.TrimSpace(line)
		if len(line) == 0 || !strings.Contains(line, ":") || strings.HasPrefix(line, "#:") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 4 {
			continue
		}

		deviceID := ""
		for _, p := range parts {
			if strings.HasPrefix(p, "disk") {
				deviceID = p
				break
			}
		}
		if deviceID == "" {
			continue
		}

		var sizeBytes int64
		for i, p := range parts {
			if i+1 < len(parts) {
				unit := parts[i+1]
				if unit == "KB" || unit == "MB" || unit == "GB" || unit == "TB" || unit == "B" {
					sizeBytes = parseSize(p, unit)
					break
				}
			}
		}

		fsType := ""
		if len(parts) >= 3 {
			fsType = parts[1]
		}

		name := deviceID
		if len(parts) >= 5 {
			var words []string
			for i := 2; i < len(parts)-2; i++ {
				words = append(words, parts[i])
			}
			if joined := strings.Join(words, " "); joined != "" {
				name = joined
			}
		}

		devices = append(devices, Device{
			Path:       "/dev/" + deviceID,
			Name:       name,
			Size:       sizeBytes,
			SizeHuman:  humanize.Bytes(uint64(sizeBytes)),
			Filesystem: fsType,
			Removable:  !strings.Contains(currentDisk, "internal"),
		})
	}

	return devices, nil
}

func listLinux() ([]Device, error) {
	cmd := exec.Command("lsblk", "-b", "-o", "NAME,SIZE,FSTYPE,MOUNTPOINT,RM", "-n", "-l")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("device: lsblk: %w", err)
	}

	var devices []Device
	scanner := bufio.NewScanner(bytes.NewReader(output))

	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}

		name := parts[0]
		sizeBytes, _ := strconv.ParseInt(parts[1], 10, 64)

		fsType := ""
		if len(parts) >= 3 {
			fsType = parts[2]
		}
		mountpoint := ""
		if len(parts) >= 4 {
			mountpoint = parts[3]
		}
		removable := len(parts) >= 5 && parts[4] == "1"

		devices = append(devices, Device{
			Path:       "/dev/" + name,
			Name:       name,
			Size:       sizeBytes,
			SizeHuman:  humanize.Bytes(uint64(sizeBytes)),
			Filesystem: fsType,
			Mountpoint: mountpoint,
			Removable:  removable,
		})
	}

	return devices, nil
}

// listWindows enumerates mounted volumes via Get-Volume, the object
// that actually carries a filesystem type and drive letter — Get-Disk
// only describes whole physical disks, which is the wrong granularity
// for opening an NTFS volume handle.
func listWindows() ([]Device, error) {
	cmd := exec.Command("powershell", "-NoProfile", "-Command",
		"Get-Volume | Select-Object DriveLetter,FileSystemType,FileSystemLabel,Size | "+
			"ForEach-Object { \"$($_.DriveLetter)|$($_.FileSystemType)|$($_.FileSystemLabel)|$($_.Size)\" }")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("device: Get-Volume: %w", err)
	}

	var devices []Device
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "|")
		if len(fields) != 4 {
			continue
		}
		letter := strings.TrimSpace(fields[0])
		fsType := strings.TrimSpace(fields[1])
		label := strings.TrimSpace(fields[2])
		size, _ := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
		if letter == "" {
			continue
		}

		name := label
		if name == "" {
			name = letter + ":"
		}

		devices = append(devices, Device{
			Path:       fmt.Sprintf(`\\.\%s:`, letter),
			Name:       name,
			Size:       size,
			SizeHuman:  humanize.Bytes(uint64(size)),
			Filesystem: fsType,
			Mountpoint: letter + `:\`,
		})
	}

	return devices, nil
}

func parseSize(value, unit string) int64 {
	v, _ := strconv.ParseFloat(value, 64)
	switch unit {
	case "B":
		return int64(v)
	case "KB":
		return int64(v * 1024)
	case "MB":
		return int64(v * 1024 * 1024)
	case "GB":
		return int64(v * 1024 * 1024 * 1024)
	case "TB":
		return int64(v * 1024 * 1024 * 1024 * 1024)
	}
	return 0
}
