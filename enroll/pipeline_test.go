package enroll

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExtractor derives its observation from the image content: a number is
// used as the sharpness value, "noface" yields no observation and "error"
// fails the extraction. Geometry and exposure are fixed so the sharpness
// bands fully determine the quality ranking.
type stubExtractor struct{}

func (stubExtractor) Extract(_ context.Context, img []byte) (*Observation, error) {
	content := strings.TrimSpace(string(img))
	switch content {
	case "noface":
		return nil, nil
	case "error":
		return nil, errors.New("unreadable image")
	}
	sharpness, err := strconv.ParseFloat(content, 64)
	if err != nil {
		return nil, err
	}
	return &Observation{
		Encoding:    []float32{float32(sharpness)},
		Face:        Rect{X: 100, Y: 60, W: 120, H: 120},
		FrameWidth:  320,
		FrameHeight: 240,
		Brightness:  120,
		Sharpness:   sharpness,
	}, nil
}

func writeImages(t *testing.T, dir string, files map[string]string) []string {
	t.Helper()
	var paths []string
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		paths = append(paths, path)
	}
	return paths
}

func TestCollectRanksByQualityThenPath(t *testing.T) {
	dir := t.TempDir()
	paths := writeImages(t, dir, map[string]string{
		"a.jpg": "75",  // soft
		"b.jpg": "800", // very sharp
		"c.jpg": "300", // sharp
		"d.jpg": "800", // very sharp, ties with b on quality
	})
	p := NewPipeline(stubExtractor{}, WithWorkers(4))

	candidates, err := p.Collect(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, candidates, 4)

	var names []string
	for _, c := range candidates {
		names = append(names, filepath.Base(c.Path))
	}
	// Quality descending, path ascending on ties.
	assert.Equal(t, []string{"b.jpg", "d.jpg", "c.jpg", "a.jpg"}, names)
}

func TestCollectDropsFacelessAndFailedImages(t *testing.T) {
	dir := t.TempDir()
	paths := writeImages(t, dir, map[string]string{
		"good.jpg":  "600",
		"empty.jpg": "noface",
		"bad.jpg":   "error",
	})
	p := NewPipeline(stubExtractor{}, WithPipelineLogger(quietTestLogger()))

	candidates, err := p.Collect(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "good.jpg", filepath.Base(candidates[0].Path))
}

func TestCollectFailsOnMissingFile(t *testing.T) {
	p := NewPipeline(stubExtractor{})

	_, err := p.Collect(context.Background(), []string{filepath.Join(t.TempDir(), "absent.jpg")})
	require.Error(t, err)
}

func TestSelectKeepsTopK(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.jpg": "800",
		"b.jpg": "600",
		"c.jpg": "300",
		"d.jpg": "150",
		"e.jpg": "75",
	}
	paths := writeImages(t, dir, files)
	p := NewPipeline(stubExtractor{}, WithTopK(2))

	candidates, err := p.Collect(context.Background(), paths)
	require.NoError(t, err)

	selected := p.Select(candidates)
	require.Len(t, selected, 2)
	assert.GreaterOrEqual(t, selected[0].Quality, selected[1].Quality)
	assert.ElementsMatch(t,
		[]string{"a.jpg", "b.jpg"},
		[]string{filepath.Base(selected[0].Path), filepath.Base(selected[1].Path)},
	)
}
