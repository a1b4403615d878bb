// Package testutil provides testing utilities for facevault.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating deterministic random embeddings and
// prebuilt model snapshots.
//
// # Random Embedding Generation
//
//	rng := testutil.NewRNG(seed)
//	vec := make([]float32, 128)
//	rng.FillUniform(vec)      // uniform [0, 1)
//	rng.FillGaussian(vec)     // standard normal
//
// # Snapshot Construction
//
//	snap := testutil.SnapshotFor(rng, 128, map[string]int{"S-1": 2, "S-2": 3})
package testutil
