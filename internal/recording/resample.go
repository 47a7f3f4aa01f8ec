package recording

import (
	"math"

	resampling "github.com/tphakala/go-audio-resampling"

	"voicecohort/internal/services"
)

// Resample converts rec to targetRate. Recordings already at the target rate
// are returned unchanged.
func Resample(rec Recording, targetRate int) (Recording, error) {
	if targetRate <= 0 || rec.SampleRate == targetRate || len(rec.Samples) == 0 {
		return rec, nil
	}
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(rec.SampleRate),
		OutputRate: float64(targetRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return Recording{}, services.Wrap(services.ErrConfiguration, "recording", "resample", "create resampler", err)
	}
	out, err := rs.Process(rec.Samples)
	if err != nil {
		return Recording{}, services.Wrap(services.ErrExternal, "recording", "resample", "process samples", err)
	}
	tail, err := rs.Flush()
	if err != nil {
		return Recording{}, services.Wrap(services.ErrExternal, "recording", "resample", "flush resampler", err)
	}
	out = append(out, tail...)
	// Flushing pads the filter with zeros; keep only the input's duration.
	if want := int(math.Round(float64(len(rec.Samples)) * float64(targetRate) / float64(rec.SampleRate))); len(out) > want {
		out = out[:want]
	}
	return Recording{Samples: out, SampleRate: targetRate}, nil
}

// PrepareForExport resamples rec to targetRate and trims silence using opts.
// Silent recordings are resampled but left untrimmed.
func PrepareForExport(rec Recording, targetRate int, opts TrimOptions) (Recording, error) {
	resampled, err := Resample(rec, targetRate)
	if err != nil {
		return Recording{}, err
	}
	if trimmed := Trim(resampled.Samples, resampled.SampleRate, opts); trimmed != nil {
		resampled.Samples = trimmed
	}
	return resampled, nil
}
