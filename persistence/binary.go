// Package persistence provides the binary snapshot format of the face model
// store and the atomic file replacement discipline around it.
//
// A snapshot file carries a fixed header, the raw little-endian embedding
// vectors, the length-prefixed identity tokens and a trailing CRC32 of
// everything before it. A reader either sees a complete, checksummed snapshot
// or an error; there is no partially-valid state.
package persistence

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mindwatch/facevault/internal/fs"
	"github.com/mindwatch/facevault/model"
)

var byteOrder = binary.LittleEndian

// EncodeSnapshot writes the snapshot to w in the binary format, including
// the trailing checksum. The dimension is taken from the snapshot itself;
// callers validate it beforehand.
func EncodeSnapshot(w io.Writer, s *model.Snapshot) error {
	dim := 0
	if s.Len() > 0 {
		dim = len(s.Encodings[0])
	}

	cw := NewChecksumWriter(w)

	header := FileHeader{
		Magic:     MagicNumber,
		Version:   Version,
		Count:     uint32(s.Len()),
		Dimension: uint32(dim),
	}
	if err := binary.Write(cw, byteOrder, &header); err != nil {
		return fmt.Errorf("persistence: write header: %w", err)
	}

	for _, enc := range s.Encodings {
		if err := binary.Write(cw, byteOrder, enc); err != nil {
			return fmt.Errorf("persistence: write encodings: %w", err)
		}
	}

	for _, id := range s.Identities {
		if len(id) > maxIdentityLen {
			return fmt.Errorf("persistence: %w: %d bytes", ErrIdentityTooLong, len(id))
		}
		if err := binary.Write(cw, byteOrder, uint16(len(id))); err != nil {
			return fmt.Errorf("persistence: write identity length: %w", err)
		}
		if _, err := cw.Write([]byte(id)); err != nil {
			return fmt.Errorf("persistence: write identity: %w", err)
		}
	}

	// Checksum covers everything written so far.
	if err := binary.Write(w, byteOrder, cw.Sum()); err != nil {
		return fmt.Errorf("persistence: write checksum: %w", err)
	}
	return nil
}

// DecodeSnapshot reads a snapshot from r, verifying magic, version and
// checksum. Truncated input surfaces as ErrTruncated.
func DecodeSnapshot(r io.Reader) (*model.Snapshot, error) {
	cr := NewChecksumReader(r)

	var header FileHeader
	if err := binary.Read(cr, byteOrder, &header); err != nil {
		return nil, fmt.Errorf("persistence: read header: %w", truncated(err))
	}
	if header.Magic != MagicNumber {
		return nil, fmt.Errorf("persistence: %w: got 0x%08x", ErrInvalidMagic, header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("persistence: %w: got 0x%08x", ErrInvalidVersion, header.Version)
	}

	count := int(header.Count)
	dim := int(header.Dimension)

	snap := &model.Snapshot{
		Encodings:  make([][]float32, count),
		Identities: make([]string, count),
	}

	for i := 0; i < count; i++ {
		vec := make([]float32, dim)
		if err := binary.Read(cr, byteOrder, vec); err != nil {
			return nil, fmt.Errorf("persistence: read encodings: %w", truncated(err))
		}
		snap.Encodings[i] = vec
	}

	for i := 0; i < count; i++ {
		var n uint16
		if err := binary.Read(cr, byteOrder, &n); err != nil {
			return nil, fmt.Errorf("persistence: read identity length: %w", truncated(err))
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(cr, buf); err != nil {
			return nil, fmt.Errorf("persistence: read identity: %w", truncated(err))
		}
		snap.Identities[i] = string(buf)
	}

	// The checksum itself is read outside the checksumming reader.
	sum := cr.Sum()
	var expected uint32
	if err := binary.Read(r, byteOrder, &expected); err != nil {
		return nil, fmt.Errorf("persistence: read checksum: %w", truncated(err))
	}
	if sum != expected {
		return nil, &ChecksumMismatchError{Expected: expected, Actual: sum}
	}

	return snap, nil
}

func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTruncated
	}
	return err
}

// SaveToFile writes data to filename atomically: the content is written to a
// temp file in the same directory, synced, closed and renamed over the
// target. A concurrent reader sees either the old complete content or the
// new complete content, never a truncated file.
func SaveToFile(fsys fs.FileSystem, filename string, writeFunc func(io.Writer) error) error {
	if fsys == nil {
		fsys = fs.Default
	}

	tmpName := filename + ".tmp"
	tmp, err := fsys.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	cleanup := func() {
		_ = tmp.Close()
		_ = fsys.Remove(tmpName)
	}

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		cleanup()
		return err
	}
	if err := buf.Flush(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = fsys.Remove(tmpName)
		return err
	}

	if err := fsys.Rename(tmpName, filename); err != nil {
		_ = fsys.Remove(tmpName)
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	syncDir(filename)
	return nil
}

// WriteTo writes data to filename directly, without the atomic rename. The
// store uses it for the temp halves of a multi-file commit unit, where the
// renames happen together only after every temp write validated.
func WriteTo(fsys fs.FileSystem, filename string, writeFunc func(io.Writer) error) error {
	if fsys == nil {
		fsys = fs.Default
	}
	f, err := fsys.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	buf := bufio.NewWriterSize(f, 256*1024)
	if err := writeFunc(buf); err != nil {
		_ = f.Close()
		return err
	}
	if err := buf.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LoadFromFile opens filename and passes a buffered reader to readFunc.
func LoadFromFile(fsys fs.FileSystem, filename string, readFunc func(io.Reader) error) error {
	if fsys == nil {
		fsys = fs.Default
	}
	f, err := fsys.OpenFile(filename, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	return readFunc(bufio.NewReaderSize(f, 256*1024))
}

func syncDir(filename string) {
	if d, err := os.Open(filepath.Dir(filename)); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
}

