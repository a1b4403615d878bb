package persistence

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/mindwatch/facevault/internal/fs"
)

// Backup artifacts are zstd-compressed copies of the snapshot file, named
// <snapshot>.<kind>_<timestamp>. In steady state retention keeps a single
// backup per kind to bound disk usage.

const (
	// BackupKindIncremental marks backups taken before incremental mutations.
	BackupKindIncremental = "backup"
	// BackupKindBatch marks the single backup taken before a batch mutation.
	BackupKindBatch = "batch_backup"

	// backupTimeFormat matches the version token format of the store.
	backupTimeFormat = "20060102_150405"
)

// BackupName returns the backup path for the given snapshot path and kind.
func BackupName(snapshotPath, kind string, at time.Time) string {
	return fmt.Sprintf("%s.%s_%s", snapshotPath, kind, at.Format(backupTimeFormat))
}

// CreateBackup copies the snapshot file to a compressed, timestamped backup
// next to it and returns the backup path. It is a no-op returning "" when
// the snapshot does not exist.
func CreateBackup(fsys fs.FileSystem, snapshotPath, kind string, at time.Time) (string, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	if _, err := fsys.Stat(snapshotPath); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	backupPath := BackupName(snapshotPath, kind, at)
	err := SaveToFile(fsys, backupPath, func(w io.Writer) error {
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if err := LoadFromFile(fsys, snapshotPath, func(r io.Reader) error {
			_, err := io.Copy(enc, r)
			return err
		}); err != nil {
			_ = enc.Close()
			return err
		}
		return enc.Close()
	})
	if err != nil {
		return "", fmt.Errorf("persistence: create backup: %w", err)
	}
	return backupPath, nil
}

// RestoreBackup decompresses the backup over the snapshot path, atomically.
func RestoreBackup(fsys fs.FileSystem, backupPath, snapshotPath string) error {
	if fsys == nil {
		fsys = fs.Default
	}
	err := SaveToFile(fsys, snapshotPath, func(w io.Writer) error {
		return LoadFromFile(fsys, backupPath, func(r io.Reader) error {
			dec, err := zstd.NewReader(r)
			if err != nil {
				return err
			}
			defer dec.Close()
			_, err = io.Copy(w, dec)
			return err
		})
	})
	if err != nil {
		return fmt.Errorf("persistence: restore backup: %w", err)
	}
	return nil
}

// ListBackups returns the backup paths of the given kind for the snapshot,
// newest first.
func ListBackups(fsys fs.FileSystem, snapshotPath, kind string) ([]string, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	dir := filepath.Dir(snapshotPath)
	base := filepath.Base(snapshotPath)

	entries, err := fsys.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(name, base+"."+kind+"_") {
			backups = append(backups, filepath.Join(dir, name))
		}
	}

	// Timestamps in the names sort lexicographically; newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

// CleanupBackups removes all but the keep newest backup artifacts of the
// given kind. Removal errors are collected but do not abort the sweep.
func CleanupBackups(fsys fs.FileSystem, snapshotPath, kind string, keep int) error {
	if fsys == nil {
		fsys = fs.Default
	}
	backups, err := ListBackups(fsys, snapshotPath, kind)
	if err != nil {
		return err
	}
	if len(backups) <= keep {
		return nil
	}

	var firstErr error
	for _, b := range backups[keep:] {
		if err := fsys.Remove(b); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NeedsBackup reports whether the snapshot was modified within the window.
// Incremental mutations only back up recently-touched snapshots; this keeps
// backup churn low during rapid successive small mutations without weakening
// the atomicity of the save itself.
func NeedsBackup(fsys fs.FileSystem, snapshotPath string, window time.Duration, now time.Time) bool {
	if fsys == nil {
		fsys = fs.Default
	}
	info, err := fsys.Stat(snapshotPath)
	if err != nil {
		return false
	}
	return now.Sub(info.ModTime()) < window
}
