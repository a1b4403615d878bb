package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/mindwatch/facevault"
	"github.com/mindwatch/facevault/model"
	"github.com/mindwatch/facevault/testutil"
)

func main() {
	dir, err := os.MkdirTemp("", "facevault-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	svc, err := facevault.New(dir,
		facevault.WithLogLevel(slog.LevelInfo),
		facevault.WithDimension(model.Dimension),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer svc.Close()

	// Commit synthetic encodings for three soldiers. In production these come
	// from the enrollment pipeline; see facevault.WithExtractor.
	rng := testutil.NewRNG(4711)
	snap := testutil.SnapshotFor(rng, model.Dimension, map[string]int{
		"S-1001": 12,
		"S-1002": 12,
		"S-1003": 12,
	})
	if err := svc.Store().AddIncremental(snap); err != nil {
		log.Fatal(err)
	}

	svc.Warmup(context.Background())

	fmt.Println("--- Recognize ---")

	probe := rng.Nearby(snap.Encodings[0], 0.05)
	match, err := svc.Recognize(probe)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Identity: %s, Distance: %.4f, Confidence: %.4f\n",
		match.Identity, match.Distance, match.Confidence)

	stranger := testutil.DistantEmbedding(model.Dimension)
	match, err = svc.Recognize(stranger)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Identity: %s, Known: %v\n", match.Identity, match.Known)

	fmt.Println("\n--- Status ---")

	status, err := svc.Status(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Operational: %v, Encodings: %d, Identities: %d\n",
		status.Operational, status.Model.TotalEncodings, status.Model.UniqueIdentities)

	report := svc.ValidateIntegrity()
	fmt.Printf("Integrity valid: %v, Issues: %d\n", report.Valid, len(report.Issues))
}
