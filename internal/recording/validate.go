package recording

import (
	"fmt"
	"io"
	"os"
	"strings"

	"voicecohort/internal/config"
	"voicecohort/internal/services"
)

// Rejection reasons. Too-clipped results carry the measured ratio as a suffix
// and unreadable results carry the underlying error.
const (
	ReasonCorrupted    = "corrupted file"
	ReasonSilence      = "silence file"
	ReasonVolumeTooLow = "volume too low"
	ReasonTooShort     = "too short"
	ReasonTooClipped   = "too clipped"
	ReasonNoRecordings = "has no recordings"
	ReasonUnreadable   = "unreadable recordings"
)

// Result describes the outcome of validating one recording (or one person).
type Result struct {
	Valid               bool
	Reason              string
	Peak                float64
	NormalizationFactor float64
	TrimmedSeconds      float64
	ClippedRatio        float64
	SampleRate          int
	// Trimmed holds the normalized, silence-trimmed samples of a valid recording.
	Trimmed []float64
}

// Invalid builds a rejected result with the given reason.
func Invalid(reason string) Result {
	return Result{Reason: reason}
}

// Code returns the reason without measured values, suitable as a metric label.
func (r Result) Code() string {
	if r.Valid {
		return "valid"
	}
	reason := r.Reason
	if idx := strings.Index(reason, " ("); idx >= 0 {
		reason = reason[:idx]
	}
	return strings.ReplaceAll(reason, " ", "_")
}

func (r Result) String() string {
	if r.Valid {
		return "valid"
	}
	return "invalid: " + r.Reason
}

// Err converts a rejected result into a classified error; valid results return nil.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	marker := services.ErrQuality
	switch {
	case r.Reason == ReasonCorrupted:
		marker = services.ErrDecode
	case strings.HasPrefix(r.Reason, ReasonUnreadable):
		marker = services.ErrExternal
	}
	return services.Wrap(marker, "recording", "validate", r.Reason, nil)
}

// Validator applies the quality checks to decoded recordings.
type Validator struct {
	opts Options
}

// NewValidator returns a Validator using opts.
func NewValidator(opts Options) *Validator {
	return &Validator{opts: opts}
}

// Validate runs the checks in order and reports the first failure.
func (v *Validator) Validate(samples []float64, rate int) Result {
	if isSilent(samples) {
		return Invalid(ReasonSilence)
	}

	peak := Peak(samples)
	factor := 1 / peak
	result := Result{Peak: peak, NormalizationFactor: factor, SampleRate: rate}
	if factor > v.opts.NormalizationFactorThreshold {
		result.Reason = ReasonVolumeTooLow
		return result
	}
	if rate <= 0 {
		result.Reason = ReasonCorrupted
		return result
	}

	trimmed := Trim(samples, rate, v.opts.TrimOptions())
	result.TrimmedSeconds = float64(len(trimmed)) / float64(rate)
	if result.TrimmedSeconds <= v.opts.MinTrimmedSeconds {
		result.Reason = ReasonTooShort
		return result
	}

	result.ClippedRatio = v.clippedRatio(trimmed)
	if result.ClippedRatio > v.opts.ClippedRatioThreshold {
		result.Reason = fmt.Sprintf("%s (%g)", ReasonTooClipped, result.ClippedRatio)
		return result
	}

	result.Valid = true
	result.Trimmed = trimmed
	return result
}

func (v *Validator) clippedRatio(trimmed []float64) float64 {
	if len(trimmed) == 0 {
		return 0
	}
	if v.opts.ClippingMode == config.ClippingModeLegacy {
		return 1 / float64(len(trimmed))
	}
	clipped := 0
	for _, s := range trimmed {
		if s > v.opts.ClipLevel || s < -v.opts.ClipLevel {
			clipped++
		}
	}
	return float64(clipped) / float64(len(trimmed))
}

// ValidateRecording validates an already decoded recording.
func (v *Validator) ValidateRecording(rec Recording) Result {
	return v.Validate(rec.Samples, rec.SampleRate)
}

// ValidateSource decodes the stream returned by open and validates it. Any
// failure to open or decode yields a corrupted-file result.
func (v *Validator) ValidateSource(open func() (io.ReadSeekCloser, error)) Result {
	src, err := open()
	if err != nil {
		return Invalid(ReasonCorrupted)
	}
	defer src.Close()
	rec, err := Decode(src)
	if err != nil {
		return Invalid(ReasonCorrupted)
	}
	return v.ValidateRecording(rec)
}

// ValidateFile validates the WAV file at path.
func (v *Validator) ValidateFile(path string) Result {
	return v.ValidateSource(func() (io.ReadSeekCloser, error) {
		return os.Open(path)
	})
}
