// Package facevault manages the face recognition model for a soldiers'
// wellbeing monitoring deployment.
//
// # Quick Start
//
//	ctx := context.Background()
//	svc, _ := facevault.New("./model",
//	    facevault.WithExtractor(extractor),
//	    facevault.WithLogLevel(slog.LevelInfo),
//	)
//	defer svc.Close()
//
//	svc.Warmup(ctx)                            // background preload + auto-refresh
//	svc.Enroll(ctx, "S-1042", "./captures")    // train one identity
//	match, _ := svc.Recognize(probeEmbedding)  // match against the cached model
//
// # Durability Model
//
// The model is a single binary snapshot of (embedding, identity) records
// plus a JSON metadata artifact. Every save writes both to temp files,
// validates the snapshot by reloading it, then renames into place; a crash
// at any point leaves the previously committed pair intact. Batch
// enrollments additionally take a pre-batch backup and roll back to it on
// failure.
//
// # Key Features
//
//   - Atomic snapshot persistence with CRC32-framed binary encoding
//   - Incremental and transactional batch enrollment with duplicate filtering
//   - Quality-ranked best-shot selection during enrollment
//   - mtime-gated in-memory refresh cache with background auto-refresh
//   - Integrity validation with severity-tagged findings
//   - Optional blob-store mirroring of committed artifacts
package facevault
