package persistence

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindwatch/facevault/internal/fs"
	"github.com/mindwatch/facevault/model"
	"github.com/mindwatch/facevault/testutil"
)

func encodeToBytes(t *testing.T, snap *model.Snapshot) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, EncodeSnapshot(&buf, snap))
	return buf.Bytes()
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rng := testutil.NewRNG(1)
	snap := testutil.SnapshotFor(rng, 16, map[string]int{"S-1": 2, "S-2": 1})

	data := encodeToBytes(t, snap)
	decoded, err := DecodeSnapshot(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, snap.Encodings, decoded.Encodings)
	assert.Equal(t, snap.Identities, decoded.Identities)
}

func TestEncodeDecodeEmptySnapshot(t *testing.T) {
	data := encodeToBytes(t, &model.Snapshot{})

	decoded, err := DecodeSnapshot(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Zero(t, decoded.Len())
}

func TestDecodeRejectsCorruptedPayload(t *testing.T) {
	rng := testutil.NewRNG(2)
	data := encodeToBytes(t, testutil.SnapshotFor(rng, 16, map[string]int{"S-1": 2}))

	// Flip one payload byte past the header; the checksum must catch it.
	data[20] ^= 0xFF

	_, err := DecodeSnapshot(bytes.NewReader(data))
	require.Error(t, err)
	assert.True(t, IsChecksumMismatch(err))
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	rng := testutil.NewRNG(3)
	data := encodeToBytes(t, testutil.SnapshotFor(rng, 16, map[string]int{"S-1": 2}))

	for _, n := range []int{0, 4, len(data) / 2, len(data) - 1} {
		_, err := DecodeSnapshot(bytes.NewReader(data[:n]))
		require.Error(t, err, "prefix length %d", n)
		assert.ErrorIs(t, err, ErrTruncated, "prefix length %d", n)
	}
}

func TestDecodeRejectsWrongMagic(t *testing.T) {
	rng := testutil.NewRNG(4)
	data := encodeToBytes(t, testutil.SnapshotFor(rng, 16, map[string]int{"S-1": 1}))
	data[0] ^= 0xFF

	_, err := DecodeSnapshot(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestSaveToFileIsAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "artifact.bin")

	require.NoError(t, SaveToFile(nil, target, func(w io.Writer) error {
		_, err := w.Write([]byte("generation-1"))
		return err
	}))

	// The second write fails on sync; the first generation must survive.
	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule("artifact.bin.tmp", fs.Fault{FailAfterBytes: -1, FailOnSync: true})

	err := SaveToFile(faulty, target, func(w io.Writer) error {
		_, err := w.Write([]byte("generation-2"))
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrInjected)

	var content []byte
	require.NoError(t, LoadFromFile(nil, target, func(r io.Reader) error {
		var err error
		content, err = io.ReadAll(r)
		return err
	}))
	assert.Equal(t, "generation-1", string(content))

	// The failed temp file was cleaned up.
	_, err = fs.Default.Stat(target + ".tmp")
	require.Error(t, err)
}

func TestSaveToFilePropagatesWriteFuncError(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "artifact.bin")
	boom := errors.New("boom")

	err := SaveToFile(nil, target, func(io.Writer) error { return boom })
	assert.ErrorIs(t, err, boom)

	_, statErr := fs.Default.Stat(target)
	assert.Error(t, statErr)
}
