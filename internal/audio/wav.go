// Package audio inspects and produces the WAV files written by synthesis.
package audio

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

// DefaultSilenceThreshold is the RMS level (on a -1..1 scale) below which
// synthesized output is considered silent.
const DefaultSilenceThreshold = 0.001

// Info describes a decoded WAV file
type Info struct {
	SampleRate int
	Channels   int
	Frames     int
	Duration   time.Duration
	RMS        float64
}

// Silent reports whether the file carries no audible signal
func (i Info) Silent() bool {
	return DetectSilence(i.RMS, DefaultSilenceThreshold)
}

// Inspect decodes the WAV file at path and measures its length and energy
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	// Closing the streamer closes f.
	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return Info{}, fmt.Errorf("decode %s: %w", path, err)
	}
	defer streamer.Close()

	buf := make([][2]float64, 2048)
	var sumSquares float64
	frames := 0
	for {
		n, ok := streamer.Stream(buf)
		for _, s := range buf[:n] {
			sumSquares += s[0]*s[0] + s[1]*s[1]
		}
		frames += n
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return Info{}, fmt.Errorf("read %s: %w", path, err)
	}

	return Info{
		SampleRate: int(format.SampleRate),
		Channels:   format.NumChannels,
		Frames:     frames,
		Duration:   format.SampleRate.D(frames),
		RMS:        CalculateRMS(sumSquares, frames),
	}, nil
}

// WriteSilence writes a mono 16-bit WAV file of the given length
func WriteSilence(path string, sampleRate int, d time.Duration) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	sr := beep.SampleRate(sampleRate)
	format := beep.Format{SampleRate: sr, NumChannels: 1, Precision: 2}
	if err := wav.Encode(f, beep.Silence(sr.N(d)), format); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// CalculateRMS calculates the RMS level from a sum of squared stereo frames
func CalculateRMS(sumSquares float64, frames int) float64 {
	if frames == 0 {
		return 0
	}
	return math.Sqrt(sumSquares / float64(2*frames))
}

// DetectSilence reports whether an RMS level is below threshold
func DetectSilence(rms, threshold float64) bool {
	return rms < threshold
}
