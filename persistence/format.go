package persistence

import "errors"

const (
	// MagicNumber identifies facevault snapshot files (ASCII: "FACE")
	MagicNumber = 0x46414345
	// Version is the current snapshot format version (v1.0.0)
	Version = 0x00010000

	// maxIdentityLen bounds a single identity token on disk.
	maxIdentityLen = 1 << 10
)

var (
	ErrInvalidMagic    = errors.New("invalid magic number")
	ErrInvalidVersion  = errors.New("unsupported version")
	ErrTruncated       = errors.New("snapshot truncated")
	ErrIdentityTooLong = errors.New("identity token too long")
)

// FileHeader is the fixed-size header at the start of every snapshot file.
type FileHeader struct {
	Magic     uint32
	Version   uint32
	Count     uint32 // number of identity records
	Dimension uint32 // embedding dimensionality
}
