package recording

import (
	"time"

	"voicecohort/internal/config"
)

// Recording is a mono buffer of full-scale samples in [-1, 1].
type Recording struct {
	Samples    []float64
	SampleRate int
}

// Duration reports the playback length of the recording.
func (r Recording) Duration() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	seconds := float64(len(r.Samples)) / float64(r.SampleRate)
	return time.Duration(seconds * float64(time.Second))
}

// Options holds the quality thresholds applied by the Validator.
type Options struct {
	SilenceThreshold             float64
	TrimBufferSeconds            float64
	NormalizationFactorThreshold float64
	MinTrimmedSeconds            float64
	ClipLevel                    float64
	ClippedRatioThreshold        float64
	ClippingMode                 string
}

// DefaultOptions mirrors the repository defaults in the config package.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default().Validation)
}

// OptionsFromConfig maps the [validation] config section onto validator options.
func OptionsFromConfig(v config.Validation) Options {
	return Options{
		SilenceThreshold:             v.SilenceThreshold,
		TrimBufferSeconds:            v.TrimBufferSeconds,
		NormalizationFactorThreshold: v.NormalizationFactorThreshold,
		MinTrimmedSeconds:            v.MinTrimmedSeconds,
		ClipLevel:                    v.ClipLevel,
		ClippedRatioThreshold:        v.ClippedRatioThreshold,
		ClippingMode:                 v.ClippingMode,
	}
}

// TrimOptions returns the subset of options used by Trim.
func (o Options) TrimOptions() TrimOptions {
	return TrimOptions{Threshold: o.SilenceThreshold, BufferSeconds: o.TrimBufferSeconds}
}

func isSilent(samples []float64) bool {
	for _, s := range samples {
		if s != 0 {
			return false
		}
	}
	return true
}
