package ntfs

import (
	"encoding/binary"
	"fmt"
)

// Attribute type codes relevant to this reader. Others are parsed
// generically (header + opaque payload) but never specially handled.
const (
	AttrStandardInformation = 0x10
	AttrFileName            = 0x30
	AttrData                = 0x80
)

// attrListEnd is the sentinel type marking the end of an attribute list.
const attrListEnd = 0xFFFFFFFF

// commonAttrHeaderSize is the size of the attribute header fields
// shared by resident and non-resident attributes.
const commonAttrHeaderSize = 16

// Attribute is one parsed attribute record from an MFT entry. Resident
// and non-resident attributes are folded into one struct rather than
// modeled as an interface: NonResident tells the caller which set of
// fields is meaningful, and nothing here ever needs to treat the two
// uniformly except through ContentReader.
type Attribute struct {
	Type        uint32
	Length      uint32
	NonResident bool
	NameLength  uint8
	Flags       uint16
	AttrID      uint16

	// Resident holds the attribute's value when NonResident is false.
	Resident []byte

	// The following are only meaningful when NonResident is true.
	FirstVCN  uint64
	LastVCN   uint64
	AllocSize uint64
	RealSize  uint64
	Runs      []DataRun
}

// parseAttributes walks the attribute list in buf starting at
// attrOffset until the end-of-list marker, decoding each attribute's
// header and payload (resident value, or data-run list for
// non-resident attributes).
func parseAttributes(buf []byte, attrOffset uint16, clusterSize uint64) ([]Attribute, error) {
	var attrs []Attribute
	offset := int(attrOffset)

	for {
		if offset+4 > len(buf) {
			return nil, fmt.Errorf("ntfs: attribute: %w: truncated attribute list at offset %d", ErrFormatInvalid, offset)
		}
		attrType := binary.LittleEndian.Uint32(buf[offset : offset+4])
		if attrType == attrListEnd {
			break
		}
		if offset+commonAttrHeaderSize > len(buf) {
			return nil, fmt.Errorf("ntfs: attribute: %w: truncated attribute header at offset %d", ErrFormatInvalid, offset)
		}

		length := binary.LittleEndian.Uint32(buf[offset+4 : offset+8])
		if length == 0 || offset+int(length) > len(buf) {
			return nil, fmt.Errorf("ntfs: attribute: %w: invalid length %d at offset %d", ErrFormatInvalid, length, offset)
		}
		nonResident := buf[offset+8] != 0
		nameLength := buf[offset+9]
		flags := binary.LittleEndian.Uint16(buf[offset+12 : offset+14])
		attrID := binary.LittleEndian.Uint16(buf[offset+14 : offset+16])

		attr := Attribute{
			Type:        attrType,
			Length:      length,
			NonResident: nonResident,
			NameLength:  nameLength,
			Flags:       flags,
			AttrID:      attrID,
		}

		if !nonResident {
			if offset+22 > len(buf) {
				return nil, fmt.Errorf("ntfs: attribute: %w: truncated resident header at offset %d", ErrFormatInvalid, offset)
			}
			size := binary.LittleEndian.Uint32(buf[offset+16 : offset+20])
			contentOffset := binary.LittleEndian.Uint16(buf[offset+20 : offset+22])
			start := offset + int(contentOffset)
			end := start + int(size)
			if start < offset || end > offset+int(length) || end > len(buf) {
				return nil, fmt.Errorf("ntfs: attribute: %w: resident value out of bounds at offset %d", ErrFormatInvalid, offset)
			}
			data := make([]byte, size)
			copy(data, buf[start:end])
			attr.Resident = data
		} else {
			if offset+56 > len(buf) {
				return nil, fmt.Errorf("ntfs: attribute: %w: truncated non-resident header at offset %d", ErrFormatInvalid, offset)
			}
			firstVCN := binary.LittleEndian.Uint64(buf[offset+16 : offset+24])
			lastVCN := binary.LittleEndian.Uint64(buf[offset+24 : offset+32])
			runOffset := binary.LittleEndian.Uint16(buf[offset+32 : offset+34])
			allocSize := binary.LittleEndian.Uint64(buf[offset+40 : offset+48])
			realSize := binary.LittleEndian.Uint64(buf[offset+48 : offset+56])

			runStart := offset + int(runOffset)
			runEnd := offset + int(length)
			if runStart < offset || runStart > len(buf) || runEnd > len(buf) || runEnd < runStart {
				return nil, fmt.Errorf("ntfs: attribute: %w: run list out of bounds at offset %d", ErrFormatInvalid, offset)
			}
			runs, err := decodeDataRuns(buf[runStart:runEnd], clusterSize, realSize)
			if err != nil {
				return nil, err
			}

			attr.FirstVCN = firstVCN
			attr.LastVCN = lastVCN
			attr.AllocSize = allocSize
			attr.RealSize = realSize
			attr.Runs = runs
		}

		attrs = append(attrs, attr)
		offset += int(length)
	}

	return attrs, nil
}
