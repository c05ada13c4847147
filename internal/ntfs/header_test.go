package ntfs

import (
	"encoding/binary"
	"errors"
	"testing"
)

// buildMFTHeader writes a minimal valid MFT record header into a
// freshly allocated 1024-byte record, returning the buffer.
func buildMFTHeader(fixupOffset, fixupEntries, attrOffset uint16, usedSize uint32) []byte {
	buf := make([]byte, MFTRecordSize)
	copy(buf[0:4], mftSignature)
	binary.LittleEndian.PutUint16(buf[4:6], fixupOffset)
	binary.LittleEndian.PutUint16(buf[6:8], fixupEntries)
	binary.LittleEndian.PutUint16(buf[20:22], attrOffset)
	binary.LittleEndian.PutUint16(buf[22:24], 0x0001) // in use
	binary.LittleEndian.PutUint32(buf[24:28], usedSize)
	binary.LittleEndian.PutUint32(buf[28:32], MFTRecordSize)
	return buf
}

func TestParseMFTHeader(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		buf := buildMFTHeader(48, 3, 56, 200)
		h, err := parseMFTHeader(buf)
		if err != nil {
			t.Fatalf("parseMFTHeader() error = %v", err)
		}
		if !h.inUse() {
			t.Fatal("expected in-use flag set")
		}
		if h.attrOffset != 56 || h.usedSize != 200 || h.allocSize != MFTRecordSize {
			t.Fatalf("unexpected header fields: %+v", h)
		}
	})

	t.Run("bad signature", func(t *testing.T) {
		buf := buildMFTHeader(48, 3, 56, 200)
		copy(buf[0:4], "BAAD")
		_, err := parseMFTHeader(buf)
		if !errors.Is(err, ErrFormatInvalid) {
			t.Fatalf("error = %v, want ErrFormatInvalid", err)
		}
	})

	t.Run("bad alloc size", func(t *testing.T) {
		buf := buildMFTHeader(48, 3, 56, 200)
		binary.LittleEndian.PutUint32(buf[28:32], 512)
		_, err := parseMFTHeader(buf)
		if !errors.Is(err, ErrFormatInvalid) {
			t.Fatalf("error = %v, want ErrFormatInvalid", err)
		}
	})

	t.Run("attr offset past used size", func(t *testing.T) {
		buf := buildMFTHeader(48, 3, 900, 200)
		_, err := parseMFTHeader(buf)
		if !errors.Is(err, ErrFormatInvalid) {
			t.Fatalf("error = %v, want ErrFormatInvalid", err)
		}
	})
}

// installFixup writes a fixup array at fixupOffset for a record using
// the given sectorSize and sector count, stamping the signature into
// the last two bytes of every sector as the on-disk format requires,
// and returns the header describing it.
func installFixup(t *testing.T, buf []byte, sectorSize uint16, sectors int, sig [2]byte) mftHeader {
	t.Helper()
	fixupOffset := uint16(48)
	fixupEntries := uint16(sectors + 1)

	binary.LittleEndian.PutUint16(buf[4:6], fixupOffset)
	binary.LittleEndian.PutUint16(buf[6:8], fixupEntries)
	buf[fixupOffset] = sig[0]
	buf[fixupOffset+1] = sig[1]

	for i := 1; i <= sectors; i++ {
		sectorEnd := i * int(sectorSize)
		origOff := int(fixupOffset) + i*2
		orig := [2]byte{buf[sectorEnd-2], buf[sectorEnd-1]}
		buf[origOff] = orig[0]
		buf[origOff+1] = orig[1]
		buf[sectorEnd-2] = sig[0]
		buf[sectorEnd-1] = sig[1]
	}

	return mftHeader{fixupOffset: fixupOffset, fixupEntries: fixupEntries}
}

func TestApplyFixup(t *testing.T) {
	const sectorSize = 512

	t.Run("round trip", func(t *testing.T) {
		buf := buildMFTHeader(48, 3, 56, 200)
		for i := range buf {
			buf[i] = byte(i)
		}
		h := installFixup(t, buf, sectorSize, 2, [2]byte{0xAB, 0xCD})

		if err := applyFixup(buf, h, sectorSize); err != nil {
			t.Fatalf("applyFixup() error = %v", err)
		}
		for i := 1; i <= 2; i++ {
			end := i * sectorSize
			if buf[end-2] == 0xAB && buf[end-1] == 0xCD {
				t.Fatalf("sector %d still carries signature after fixup", i)
			}
		}
	})

	t.Run("applying twice fails", func(t *testing.T) {
		buf := buildMFTHeader(48, 3, 56, 200)
		for i := range buf {
			buf[i] = byte(i)
		}
		h := installFixup(t, buf, sectorSize, 2, [2]byte{0xAB, 0xCD})

		if err := applyFixup(buf, h, sectorSize); err != nil {
			t.Fatalf("first applyFixup() error = %v", err)
		}
		if err := applyFixup(buf, h, sectorSize); !errors.Is(err, ErrFormatInvalid) {
			t.Fatalf("second applyFixup() error = %v, want ErrFormatInvalid", err)
		}
	})

	t.Run("signature mismatch", func(t *testing.T) {
		buf := buildMFTHeader(48, 3, 56, 200)
		h := installFixup(t, buf, sectorSize, 2, [2]byte{0xAB, 0xCD})
		buf[sectorSize-2] = 0x00 // corrupt sector 1's stamped signature

		if err := applyFixup(buf, h, sectorSize); !errors.Is(err, ErrFormatInvalid) {
			t.Fatalf("error = %v, want ErrFormatInvalid", err)
		}
	})
}
