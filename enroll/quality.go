package enroll

import "math"

// Quality component budgets. Size and centering reward large, centered
// faces; brightness and sharpness reward well-exposed, in-focus captures.
const (
	sizePoints       = 30.0
	centerPoints     = 25.0
	brightnessPoints = 25.0
	sharpnessPoints  = 20.0

	minFaceAreaRatio = 0.05
)

// Score rates an observation 0..100. It is a pure function of the
// observation, so ranking is reproducible regardless of extraction order.
func Score(obs *Observation) float64 {
	if obs == nil || obs.FrameWidth <= 0 || obs.FrameHeight <= 0 {
		return 0
	}

	var score float64

	// Face size relative to the frame. Tiny faces score zero outright.
	frameArea := float64(obs.FrameWidth) * float64(obs.FrameHeight)
	ratio := float64(obs.Face.W) * float64(obs.Face.H) / frameArea
	if ratio > minFaceAreaRatio {
		score += math.Min(sizePoints, ratio*600)
	}

	// Distance of the face center from the frame center, normalized per
	// axis. Full marks at dead center, zero at half a frame away.
	cx := float64(obs.Face.X) + float64(obs.Face.W)/2
	cy := float64(obs.Face.Y) + float64(obs.Face.H)/2
	dx := (cx - float64(obs.FrameWidth)/2) / float64(obs.FrameWidth)
	dy := (cy - float64(obs.FrameHeight)/2) / float64(obs.FrameHeight)
	centerDistance := math.Sqrt(dx*dx + dy*dy)
	score += math.Max(0, centerPoints*(1-2*centerDistance))

	score += brightnessScore(obs.Brightness)
	score += sharpnessScore(obs.Sharpness)

	return score
}

func brightnessScore(b float64) float64 {
	switch {
	case b >= 80 && b <= 180:
		return brightnessPoints
	case (b >= 60 && b < 80) || (b > 180 && b <= 200):
		return 15
	case (b >= 40 && b < 60) || (b > 200 && b <= 220):
		return 5
	default:
		return 0
	}
}

func sharpnessScore(v float64) float64 {
	switch {
	case v > 500:
		return sharpnessPoints
	case v > 200:
		return 15
	case v > 100:
		return 10
	case v > 50:
		return 5
	default:
		return 0
	}
}
