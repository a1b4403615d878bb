// Package enroll turns captured face images into committed model records:
// bounded parallel embedding extraction, quality scoring, deterministic
// best-shot selection, and store commits with per-identity reporting.
package enroll

import "context"

// Rect is a face bounding box in frame pixel coordinates.
type Rect struct {
	X, Y, W, H int
}

// Observation is one extracted face: the embedding plus the measurements the
// quality score needs. Exactly zero or one observation comes out of an image;
// multi-face frames are rejected upstream by the extractor.
type Observation struct {
	Encoding    []float32
	Face        Rect
	FrameWidth  int
	FrameHeight int
	Brightness  float64 // mean gray level, 0..255
	Sharpness   float64 // Laplacian variance
}

// Extractor produces at most one observation from raw image bytes. A nil
// observation with a nil error means no usable face was found; that is an
// expected per-image outcome, not a pipeline failure.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (*Observation, error)
}
