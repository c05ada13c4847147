package ntfs

import (
	"encoding/binary"
	"fmt"
)

// mftSignature is the magic every in-use MFT record starts with.
const mftSignature = "FILE"

// MFTRecordSize is the fixed on-disk size of one MFT record.
const MFTRecordSize = 1024

// mftHeader is the leading fixed part of an MFT record, before its
// attribute list.
type mftHeader struct {
	fixupOffset  uint16
	fixupEntries uint16
	attrOffset   uint16
	flags        uint16
	usedSize     uint32
	allocSize    uint32
}

// inUse reports whether the FILE_RECORD_SEGMENT_IN_USE bit is set.
func (h mftHeader) inUse() bool {
	return h.flags&0x0001 != 0
}

func parseMFTHeader(buf []byte) (mftHeader, error) {
	if len(buf) < 32 {
		return mftHeader{}, fmt.Errorf("ntfs: mft header: %w: record shorter than header", ErrFormatInvalid)
	}
	if string(buf[0:4]) != mftSignature {
		return mftHeader{}, fmt.Errorf("ntfs: mft header: %w: bad signature %q", ErrFormatInvalid, buf[0:4])
	}

	h := mftHeader{
		fixupOffset:  binary.LittleEndian.Uint16(buf[4:6]),
		fixupEntries: binary.LittleEndian.Uint16(buf[6:8]),
		attrOffset:   binary.LittleEndian.Uint16(buf[20:22]),
		flags:        binary.LittleEndian.Uint16(buf[22:24]),
		usedSize:     binary.LittleEndian.Uint32(buf[24:28]),
		allocSize:    binary.LittleEndian.Uint32(buf[28:32]),
	}

	if h.allocSize != MFTRecordSize {
		return mftHeader{}, fmt.Errorf("ntfs: mft header: %w: alloc size %d, want %d", ErrFormatInvalid, h.allocSize, MFTRecordSize)
	}
	if uint32(h.attrOffset) > h.usedSize || h.usedSize > h.allocSize {
		return mftHeader{}, fmt.Errorf("ntfs: mft header: %w: attr_offset=%d used_size=%d alloc_size=%d out of order", ErrFormatInvalid, h.attrOffset, h.usedSize, h.allocSize)
	}

	return h, nil
}

// applyFixup restores the two bytes at the end of every sector in buf
// that the on-disk fixup scheme temporarily overwrote with a shared
// signature, validating the signature at each sector boundary first.
//
// Applying fixup twice on the same buffer fails: the first application
// overwrites the checked bytes with their original values, which only
// coincidentally match the signature again.
func applyFixup(buf []byte, h mftHeader, sectorSize uint16) error {
	n := int(h.fixupEntries)
	if n < 1 {
		return nil
	}
	sigOff := int(h.fixupOffset)
	if sigOff+2 > len(buf) {
		return fmt.Errorf("ntfs: fixup: %w: signature offset %d out of range", ErrFormatInvalid, sigOff)
	}
	sig := [2]byte{buf[sigOff], buf[sigOff+1]}

	for i := 1; i < n; i++ {
		sectorEnd := i * int(sectorSize)
		if sectorEnd < 2 || sectorEnd > len(buf) {
			return fmt.Errorf("ntfs: fixup: %w: sector %d end %d out of range", ErrFormatInvalid, i, sectorEnd)
		}
		checkOff := sectorEnd - 2
		if buf[checkOff] != sig[0] || buf[checkOff+1] != sig[1] {
			return fmt.Errorf("ntfs: fixup: %w: sector %d signature mismatch", ErrFormatInvalid, i)
		}

		origOff := sigOff + i*2
		if origOff+2 > len(buf) {
			return fmt.Errorf("ntfs: fixup: %w: original value %d out of range", ErrFormatInvalid, i)
		}
		buf[checkOff] = buf[origOff]
		buf[checkOff+1] = buf[origOff+1]
	}
	return nil
}
