package ntfs

import "errors"

// Error taxonomy. IO errors from the underlying device are never
// wrapped here — they propagate verbatim, as returned by the reader
// they came from. These three sentinels cover everything else: a
// structurally broken on-disk record, a feature this reader
// deliberately does not implement, and a caller-supplied position that
// doesn't fit the addressed content.
var (
	ErrFormatInvalid = errors.New("ntfs: invalid on-disk format")
	ErrUnsupported   = errors.New("ntfs: unsupported")
	ErrOutOfRange    = errors.New("ntfs: out of range")
)
