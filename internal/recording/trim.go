package recording

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// TrimOptions controls silence trimming.
type TrimOptions struct {
	// Threshold is the normalized amplitude a sample must exceed to count as signal.
	Threshold float64
	// BufferSeconds of audio are kept on both sides of the detected signal.
	BufferSeconds float64
}

// Peak returns the largest absolute sample value.
func Peak(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return floats.Norm(samples, math.Inf(1))
}

// Normalize scales samples so the peak absolute amplitude is exactly 1.0. It
// returns nil for empty or all-zero input, which has no defined scale.
func Normalize(samples []float64) []float64 {
	peak := Peak(samples)
	if peak == 0 {
		return nil
	}
	out := make([]float64, len(samples))
	copy(out, samples)
	floats.Scale(1/peak, out)
	return out
}

// Trim normalizes samples and cuts leading and trailing silence, keeping
// opts.BufferSeconds of context on each side. The result is a contiguous
// window of the normalized signal. When no sample exceeds the threshold the
// whole normalized signal is returned. Silent input yields nil; callers must
// reject silence before trimming.
func Trim(samples []float64, rate int, opts TrimOptions) []float64 {
	normalized := Normalize(samples)
	if normalized == nil {
		return nil
	}

	start, end := 0, len(normalized)
	if first := firstAbove(normalized, opts.Threshold); first >= 0 {
		start = first
		end = lastAbove(normalized, opts.Threshold) + 1
	}

	buffer := int(float64(rate) * opts.BufferSeconds)
	start = max(0, start-buffer)
	end = min(len(normalized), end+buffer)
	return normalized[start:end]
}

func firstAbove(samples []float64, threshold float64) int {
	for i, s := range samples {
		if math.Abs(s) > threshold {
			return i
		}
	}
	return -1
}

func lastAbove(samples []float64, threshold float64) int {
	for i := len(samples) - 1; i >= 0; i-- {
		if math.Abs(samples[i]) > threshold {
			return i
		}
	}
	return -1
}
