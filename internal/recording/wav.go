package recording

import (
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"voicecohort/internal/services"
)

const exportBitDepth = 16

// Decode reads a PCM WAV stream and returns it as a mono recording. Multiple
// channels are averaged. Integer samples are scaled to full scale by their
// source bit depth.
func Decode(r io.ReadSeeker) (Recording, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Recording{}, services.Wrap(services.ErrDecode, "recording", "decode", "not a valid wav stream", nil)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Recording{}, services.Wrap(services.ErrDecode, "recording", "decode", "read pcm data", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.SampleRate <= 0 || buf.Format.NumChannels <= 0 {
		return Recording{}, services.Wrap(services.ErrDecode, "recording", "decode", "missing format chunk", nil)
	}

	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = int(dec.BitDepth)
	}
	if depth <= 0 || depth > 32 {
		return Recording{}, services.Wrap(services.ErrDecode, "recording", "decode", fmt.Sprintf("unsupported bit depth %d", depth), nil)
	}
	scale := math.Pow(2, float64(depth-1))

	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := range frames {
		sum := 0.0
		for c := range channels {
			sum += float64(buf.Data[i*channels+c])
		}
		samples[i] = sum / float64(channels) / scale
	}
	return Recording{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

// Encode writes rec as a mono 16-bit PCM WAV stream.
func Encode(w io.WriteSeeker, rec Recording) error {
	if rec.SampleRate <= 0 {
		return services.Wrap(services.ErrDecode, "recording", "encode", "sample rate must be positive", nil)
	}
	limit := math.Pow(2, exportBitDepth-1) - 1
	data := make([]int, len(rec.Samples))
	for i, s := range rec.Samples {
		data[i] = int(math.Round(math.Max(-1, math.Min(1, s)) * limit))
	}

	enc := wav.NewEncoder(w, rec.SampleRate, exportBitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rec.SampleRate},
		Data:           data,
		SourceBitDepth: exportBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return services.Wrap(services.ErrExternal, "recording", "encode", "write pcm data", err)
	}
	if err := enc.Close(); err != nil {
		return services.Wrap(services.ErrExternal, "recording", "encode", "finalize wav header", err)
	}
	return nil
}
