package enroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// centeredObs is a large centered face; size and centering score near full
// marks so the brightness and sharpness bands are isolated.
func centeredObs(brightness, sharpness float64) *Observation {
	return &Observation{
		Encoding:    make([]float32, 4),
		Face:        Rect{X: 100, Y: 60, W: 120, H: 120},
		FrameWidth:  320,
		FrameHeight: 240,
		Brightness:  brightness,
		Sharpness:   sharpness,
	}
}

func TestScoreNilAndDegenerate(t *testing.T) {
	assert.Zero(t, Score(nil))
	assert.Zero(t, Score(&Observation{}))
}

func TestScoreRewardsLargeCenteredFace(t *testing.T) {
	good := Score(centeredObs(120, 600))
	assert.Greater(t, good, 95.0)
	assert.LessOrEqual(t, good, 100.0)
}

func TestScoreTinyFaceGetsNoSizePoints(t *testing.T) {
	tiny := &Observation{
		Face:        Rect{X: 155, Y: 115, W: 10, H: 10},
		FrameWidth:  320,
		FrameHeight: 240,
		Brightness:  120,
		Sharpness:   600,
	}
	large := centeredObs(120, 600)
	assert.InDelta(t, Score(large)-Score(tiny), sizePoints, 1.0)
}

func TestScoreBrightnessBands(t *testing.T) {
	tests := []struct {
		name       string
		brightness float64
		points     float64
	}{
		{"well exposed", 120, 25},
		{"slightly dark", 70, 15},
		{"slightly bright", 190, 15},
		{"very dark", 50, 5},
		{"very bright", 210, 5},
		{"black", 10, 0},
		{"blown out", 250, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.points, brightnessScore(tt.brightness))
		})
	}
}

func TestScoreSharpnessBands(t *testing.T) {
	tests := []struct {
		name      string
		sharpness float64
		points    float64
	}{
		{"very sharp", 800, 20},
		{"sharp", 300, 15},
		{"acceptable", 150, 10},
		{"soft", 75, 5},
		{"blurry", 20, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.points, sharpnessScore(tt.sharpness))
		})
	}
}

func TestScoreOffCenterPenalty(t *testing.T) {
	centered := centeredObs(120, 600)
	corner := &Observation{
		Face:        Rect{X: 0, Y: 0, W: 120, H: 120},
		FrameWidth:  320,
		FrameHeight: 240,
		Brightness:  120,
		Sharpness:   600,
	}
	assert.Greater(t, Score(centered), Score(corner))
}
