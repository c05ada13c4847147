// Package ntfs parses enough of the NTFS on-disk format to read
// arbitrary file content directly off a raw volume, bypassing the
// filesystem driver: the boot sector, MFT records (with fixup), their
// attribute lists, and the data-run encoding of non-resident
// attributes.
//
// It deliberately does not interpret directory structures, indexes, or
// filenames — callers locate the MFT record they want by index (e.g.
// from a prior parse of $MFT itself, or a well-known record number)
// and OpenEntry hands back its attributes and a reader over its
// $DATA.
package ntfs

import (
	"fmt"
	"io"

	"github.com/shubham/squirrel/internal/blockdevice"
)

// Entry is one parsed MFT record.
type Entry struct {
	Attributes []Attribute
}

// DataAttribute returns the entry's unnamed $DATA attribute, if any.
func (e Entry) DataAttribute() (Attribute, bool) {
	for _, a := range e.Attributes {
		if a.Type == AttrData && a.NameLength == 0 {
			return a, true
		}
	}
	return Attribute{}, false
}

// MFT is a facade over a raw NTFS volume: it parses the boot sector
// once, keeps a reader over $MFT's own $DATA attribute (entry 0), and
// from there can locate and parse any other entry by index.
type MFT struct {
	Boot    Boot
	mftData ContentReader
	mftDev  *blockdevice.Device
}

// Open parses the boot sector and entry 0 ($MFT) on the volume at
// path, returning a facade ready to serve OpenEntry calls.
func Open(path string) (*MFT, error) {
	dev, err := blockdevice.Open(path)
	if err != nil {
		return nil, err
	}

	boot, err := parseBoot(dev)
	if err != nil {
		dev.Close()
		return nil, err
	}
	dev.SetAlignment(boot.SectorSize)

	if _, err := dev.Seek(int64(boot.MFTStart), io.SeekStart); err != nil {
		dev.Close()
		return nil, err
	}
	buf := make([]byte, MFTRecordSize)
	if err := dev.ReadFull(buf); err != nil {
		dev.Close()
		return nil, fmt.Errorf("ntfs: entry 0: %w", err)
	}

	entry, err := parseEntry(buf, boot)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("ntfs: entry 0: %w", err)
	}
	dataAttr, ok := entry.DataAttribute()
	if !ok {
		dev.Close()
		return nil, fmt.Errorf("ntfs: entry 0: %w: no $DATA attribute", ErrFormatInvalid)
	}

	return &MFT{
		Boot:    boot,
		mftData: newContentReader(dataAttr, dev),
		mftDev:  dev,
	}, nil
}

// Close releases the device backing $MFT's own reader. It does not
// touch any device handle passed to OpenEntry — those are owned by
// the caller.
func (m *MFT) Close() error {
	return m.mftDev.Close()
}

// OpenEntry reads and parses MFT entry idx, returning its attributes
// and, when it has an unnamed $DATA attribute, a reader over that
// attribute's content. The returned reader streams through
// devForEntry, a device handle distinct from the one MFT uses
// internally for $MFT itself — two readers must never share a device's
// cursor.
func (m *MFT) OpenEntry(devForEntry *blockdevice.Device, idx int64) (Entry, ContentReader, error) {
	if _, err := m.mftData.Seek(idx*MFTRecordSize, io.SeekStart); err != nil {
		return Entry{}, nil, fmt.Errorf("ntfs: entry %d: %w", idx, err)
	}
	buf := make([]byte, MFTRecordSize)
	if _, err := io.ReadFull(m.mftData, buf); err != nil {
		return Entry{}, nil, fmt.Errorf("ntfs: entry %d: %w", idx, err)
	}

	entry, err := parseEntry(buf, m.Boot)
	if err != nil {
		return Entry{}, nil, fmt.Errorf("ntfs: entry %d: %w", idx, err)
	}

	dataAttr, ok := entry.DataAttribute()
	if !ok {
		return entry, nil, nil
	}
	return entry, newContentReader(dataAttr, devForEntry), nil
}

func parseEntry(buf []byte, boot Boot) (Entry, error) {
	header, err := parseMFTHeader(buf)
	if err != nil {
		return Entry{}, err
	}
	if err := applyFixup(buf, header, boot.SectorSize); err != nil {
		return Entry{}, err
	}
	attrs, err := parseAttributes(buf, header.attrOffset, boot.ClusterSize)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Attributes: attrs}, nil
}
