package store

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindwatch/facevault/internal/fs"
	"github.com/mindwatch/facevault/model"
	"github.com/mindwatch/facevault/persistence"
	"github.com/mindwatch/facevault/testutil"
)

const testDim = 8

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{
		WithLogger(quietLogger()),
		WithDimension(testDim),
	}, opts...)
	s, err := New(t.TempDir(), opts...)
	require.NoError(t, err)
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	rng := testutil.NewRNG(42)
	snap := testutil.SnapshotFor(rng, testDim, map[string]int{"S-1": 2, "S-2": 3})

	require.NoError(t, s.Save(snap, "test_v1"))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, snap.Encodings, loaded.Encodings)
	assert.Equal(t, snap.Identities, loaded.Identities)
}

func TestLoadWithoutModel(t *testing.T) {
	s := newTestStore(t)

	snap, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.False(t, s.Exists())
}

func TestSaveRejectsInvalidSnapshot(t *testing.T) {
	s := newTestStore(t)

	err := s.Save(&model.Snapshot{
		Encodings:  [][]float32{make([]float32, testDim)},
		Identities: []string{"S-1", "S-2"},
	}, "")
	require.Error(t, err)
}

func TestSaveWritesMetadata(t *testing.T) {
	s := newTestStore(t)
	rng := testutil.NewRNG(1)
	snap := testutil.SnapshotFor(rng, testDim, map[string]int{"S-1": 2, "S-2": 1})

	require.NoError(t, s.Save(snap, "v_meta"))

	meta := s.Metadata()
	require.NotNil(t, meta)
	assert.Equal(t, "v_meta", meta.Version)
	assert.Equal(t, 3, meta.TotalEncodings)
	assert.Equal(t, 2, meta.IdentityCount)
	assert.Equal(t, map[string]int{"S-1": 2, "S-2": 1}, meta.PerIdentityCounts)
	assert.Equal(t, Digest(snap), meta.IntegrityDigest)
	assert.Equal(t, testDim, meta.EmbeddingDimension)
}

func TestSaveFailureKeepsCommittedSnapshot(t *testing.T) {
	faulty := fs.NewFaultyFS(nil)
	s := newTestStore(t, WithFileSystem(faulty))
	rng := testutil.NewRNG(7)

	v1 := testutil.SnapshotFor(rng, testDim, map[string]int{"S-1": 2})
	require.NoError(t, s.Save(v1, "v1"))
	digestBefore := Digest(v1)

	// Commit rename of the snapshot artifact fails.
	faulty.AddRule(SnapshotFileName, fs.Fault{FailAfterBytes: -1, FailOnRename: true})

	v2 := testutil.SnapshotFor(rng, testDim, map[string]int{"S-1": 2, "S-2": 2})
	require.Error(t, s.Save(v2, "v2"))

	faulty.ClearRules()
	loaded, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, digestBefore, Digest(loaded))
	assert.Equal(t, []string{"S-1", "S-1"}, loaded.Identities)
}

func TestDigestIsPureFunctionOfContent(t *testing.T) {
	rng := testutil.NewRNG(13)
	snap := testutil.SnapshotFor(rng, testDim, map[string]int{"S-1": 2})

	assert.Equal(t, Digest(snap), Digest(snap.Clone()))

	other := snap.Clone()
	other.Identities[0] = "S-X"
	assert.NotEqual(t, Digest(snap), Digest(other))
}

func TestBackupRetentionKeepsAtMostOne(t *testing.T) {
	s := newTestStore(t)
	rng := testutil.NewRNG(3)

	snap := testutil.SnapshotFor(rng, testDim, map[string]int{"S-0": 1})
	require.NoError(t, s.Save(snap, "seed"))

	// Every mutation lands inside the backup window, so each takes a
	// backup; retention must still leave at most one behind.
	for i := 1; i <= 4; i++ {
		add := testutil.SnapshotFor(rng, testDim, map[string]int{
			"S-" + string(rune('0'+i)): 1,
		})
		require.NoError(t, s.AddIncremental(add))
	}

	backups, err := persistence.ListBackups(s.fsys, s.snapshotPath, persistence.BackupKindIncremental)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(backups), 1)
}

func TestModTimeZeroWithoutSnapshot(t *testing.T) {
	s := newTestStore(t)
	assert.True(t, s.ModTime().IsZero())

	rng := testutil.NewRNG(5)
	require.NoError(t, s.Save(testutil.SnapshotFor(rng, testDim, map[string]int{"S-1": 1}), ""))
	assert.False(t, s.ModTime().IsZero())
}
