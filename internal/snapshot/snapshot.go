// Package snapshot drives the Windows Volume Shadow Copy Service so a
// collection run can read files the live filesystem holds open.
// Everything here shells out to powershell/vssadmin — there is no
// library in the dependency pack that wraps VSS, so this is the one
// place os/exec is used directly rather than a library.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// Snapshot is a live VSS shadow copy of one volume, mounted at a
// filesystem path so ordinary file I/O can reach it.
type Snapshot struct {
	ShadowID     string
	DeviceObject string
	MountPoint   string
}

type shadowCopyResult struct {
	ReturnValue float64 `json:"ReturnValue"`
	ShadowID    string  `json:"ShadowID"`
}

// Create snapshots volume (a drive spec like `C:\`) and mounts the
// resulting shadow copy at mountPoint, returning a handle that Delete
// later tears down.
func Create(volume, mountPoint string) (*Snapshot, error) {
	shadowID, err := createShadowCopy(volume)
	if err != nil {
		return nil, err
	}
	log.Info().Str("volume", volume).Str("shadow_id", shadowID).Msg("vss snapshot created")

	deviceObject, err := getDeviceObject(shadowID)
	if err != nil {
		deleteShadowCopy(shadowID)
		return nil, err
	}

	if err := mount(deviceObject, mountPoint); err != nil {
		deleteShadowCopy(shadowID)
		return nil, err
	}
	log.Info().Str("device_object", deviceObject).Str("mount_point", mountPoint).Msg("vss snapshot mounted")

	return &Snapshot{ShadowID: shadowID, DeviceObject: deviceObject, MountPoint: mountPoint}, nil
}

// Delete unmounts and removes the shadow copy.
func (s *Snapshot) Delete() error {
	if err := os.Remove(s.MountPoint); err != nil {
		log.Warn().Err(err).Str("mount_point", s.MountPoint).Msg("failed to remove snapshot mount point")
	}
	if err := deleteShadowCopy(s.ShadowID); err != nil {
		return err
	}
	log.Info().Str("shadow_id", s.ShadowID).Msg("vss snapshot deleted")
	return nil
}

func createShadowCopy(volume string) (string, error) {
	command := fmt.Sprintf(
		`ConvertTo-Json (Invoke-CimMethod -ClassName Win32_ShadowCopy -MethodName Create -Arguments @{Volume = "%s"})`,
		volume,
	)
	out, err := exec.Command("powershell", "-NoProfile", "-Command", command).Output()
	if err != nil {
		return "", fmt.Errorf("snapshot: create shadow copy: %w", err)
	}

	var result shadowCopyResult
	if err := json.Unmarshal(out, &result); err != nil {
		return "", fmt.Errorf("snapshot: parse shadow copy result: %w", err)
	}
	if result.ReturnValue != 0 {
		return "", fmt.Errorf("snapshot: shadow copy creation returned code %v", result.ReturnValue)
	}
	return result.ShadowID, nil
}

func deleteShadowCopy(shadowID string) error {
	args := []string{"delete", "shadows", "/quiet", fmt.Sprintf("/shadow=%s", shadowID)}
	if err := exec.Command("vssadmin", args...).Run(); err != nil {
		return fmt.Errorf("snapshot: vssadmin delete shadows: %w", err)
	}
	return nil
}

func getDeviceObject(shadowID string) (string, error) {
	command := fmt.Sprintf(
		`(Get-CimInstance Win32_ShadowCopy | Where-Object { $_.ID -eq "%s" }).DeviceObject`,
		shadowID,
	)
	out, err := exec.Command("powershell", "-NoProfile", "-Command", command).Output()
	if err != nil {
		return "", fmt.Errorf("snapshot: get device object: %w", err)
	}
	deviceObject := strings.TrimSpace(string(out))
	if deviceObject == "" {
		return "", fmt.Errorf("snapshot: no device object for shadow id %s", shadowID)
	}
	return deviceObject, nil
}

func mount(deviceObject, mountPoint string) error {
	target := deviceObject + `\`
	if err := os.Symlink(target, mountPoint); err != nil {
		return fmt.Errorf("snapshot: mount %s at %s: %w", target, mountPoint, err)
	}
	return nil
}
