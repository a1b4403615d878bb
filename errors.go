package facevault

import (
	"errors"
	"fmt"

	"github.com/mindwatch/facevault/model"
	"github.com/mindwatch/facevault/persistence"
)

var (
	// ErrNoModel is returned when an operation needs a committed model and
	// none exists yet.
	ErrNoModel = errors.New("no face model committed")

	// ErrNotReady is returned when recognition is requested before the
	// model cache has been populated.
	ErrNotReady = errors.New("model cache not ready")
)

// ErrDimensionMismatch indicates an embedding dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrCorruptModel indicates the snapshot on disk failed its integrity
// checks.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrCorruptModel struct {
	cause error
}

func (e *ErrCorruptModel) Error() string {
	return fmt.Sprintf("corrupt model: %v", e.cause)
}

func (e *ErrCorruptModel) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dm *model.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	// Corruption unification: checksum, framing and header failures all
	// surface as one category to callers.
	if persistence.IsChecksumMismatch(err) ||
		errors.Is(err, persistence.ErrTruncated) ||
		errors.Is(err, persistence.ErrInvalidMagic) ||
		errors.Is(err, persistence.ErrInvalidVersion) {
		return &ErrCorruptModel{cause: err}
	}

	return err
}
