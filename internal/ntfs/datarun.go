package ntfs

import "fmt"

// DataRun is one contiguous extent of a non-resident attribute's
// content, already translated from on-disk cluster deltas into
// absolute byte addresses.
type DataRun struct {
	ByteOffset uint64 // absolute byte offset on the volume
	VirtOffset uint64 // offset of this run within the attribute's content
	ByteLen    uint64
}

// decodeDataRuns decodes a run list (the on-disk encoding described in
// spec.md §4.5) into absolute-byte DataRuns, trimming the slack off the
// last run so the runs' total length equals realSize exactly — real
// attribute sizes are rarely an exact multiple of the cluster size, and
// the final run is always padded out to a full cluster on disk.
func decodeDataRuns(data []byte, clusterSize uint64, realSize uint64) ([]DataRun, error) {
	type rawRun struct {
		byteOffset uint64
		byteLen    uint64
	}

	var raw []rawRun
	var clusterAccum int64
	i := 0
	for i < len(data) {
		header := data[i]
		if header == 0 {
			break
		}
		lenBytes := int(header & 0x0F)
		offBytes := int(header >> 4)
		i++
		if i+lenBytes+offBytes > len(data) {
			return nil, fmt.Errorf("ntfs: data run: %w: truncated run record", ErrFormatInvalid)
		}

		length, err := decodeRunUint(data[i : i+lenBytes])
		if err != nil {
			return nil, err
		}
		i += lenBytes

		delta := decodeRunInt(data[i : i+offBytes])
		i += offBytes

		clusterAccum += delta

		raw = append(raw, rawRun{
			byteOffset: uint64(clusterAccum) * clusterSize,
			byteLen:    length * clusterSize,
		})
	}

	if len(raw) == 0 {
		return nil, nil
	}

	runs := make([]DataRun, len(raw))
	var virt uint64
	for idx, r := range raw {
		runs[idx] = DataRun{ByteOffset: r.byteOffset, VirtOffset: virt, ByteLen: r.byteLen}
		virt += r.byteLen
	}

	if virt < realSize {
		return nil, fmt.Errorf("ntfs: data run: %w: run list total %d shorter than real size %d", ErrFormatInvalid, virt, realSize)
	}
	slack := virt - realSize
	last := len(runs) - 1
	if slack > runs[last].ByteLen {
		return nil, fmt.Errorf("ntfs: data run: %w: slack %d exceeds last run length %d", ErrFormatInvalid, slack, runs[last].ByteLen)
	}
	runs[last].ByteLen -= slack

	return runs, nil
}

// decodeRunUint reads an unsigned little-endian integer of up to 8
// bytes, as used for a run's cluster length.
func decodeRunUint(b []byte) (uint64, error) {
	if len(b) > 8 {
		return 0, fmt.Errorf("ntfs: data run: %w: length field wider than 8 bytes", ErrFormatInvalid)
	}
	var v uint64
	for i, c := range b {
		v |= uint64(c) << (8 * i)
	}
	return v, nil
}

// decodeRunInt reads a signed, sign-extended little-endian integer of
// up to 8 bytes, as used for a run's cluster offset delta. The
// accumulator this feeds must stay signed the whole way through: a run
// list walking backwards over already-allocated clusters produces
// negative deltas that are only valid before the final byte-address
// cast.
func decodeRunInt(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	var v uint64
	for i, c := range b {
		v |= uint64(c) << (8 * i)
	}
	if b[len(b)-1]&0x80 != 0 {
		for i := len(b); i < 8; i++ {
			v |= uint64(0xFF) << (8 * i)
		}
	}
	return int64(v)
}
