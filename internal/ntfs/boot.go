package ntfs

import (
	"encoding/binary"
	"fmt"
	"io"
)

// bootSectorSize is the fixed number of leading bytes parsed out of an
// NTFS boot sector; the rest (bootstrap code, signature) isn't needed
// here.
const bootSectorSize = 56

// Boot holds the handful of boot-sector fields needed to address the
// volume: sector geometry and the cluster at which $MFT begins.
type Boot struct {
	SectorSize        uint16
	SectorsPerCluster uint16
	ClusterSize       uint64
	MFTStart          uint64 // absolute byte offset of $MFT's first cluster
}

// parseBoot reads and validates the leading fields of an NTFS boot
// sector from r, which must be positioned at the start of the volume.
func parseBoot(r io.Reader) (Boot, error) {
	buf := make([]byte, bootSectorSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Boot{}, fmt.Errorf("ntfs: boot sector: %w", err)
	}

	sectorSize := binary.LittleEndian.Uint16(buf[11:13])
	sectorsPerCluster := binary.LittleEndian.Uint16(buf[13:15])
	if sectorSize == 0 || sectorsPerCluster == 0 {
		return Boot{}, fmt.Errorf("ntfs: boot sector: %w: zero sector or cluster size", ErrFormatInvalid)
	}

	mftStartCluster := binary.LittleEndian.Uint64(buf[48:56])
	clusterSize := uint64(sectorSize) * uint64(sectorsPerCluster)

	return Boot{
		SectorSize:        sectorSize,
		SectorsPerCluster: sectorsPerCluster,
		ClusterSize:       clusterSize,
		MFTStart:          mftStartCluster * clusterSize,
	}, nil
}
