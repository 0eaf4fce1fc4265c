// Package stub provides an in-process engine that writes silent audio.
// It performs the same resource checks as a real engine, so provisioning
// and load failures behave identically.
package stub

import (
	"fmt"
	"os"
	"time"

	"github.com/lexiqai/synth-session/internal/audio"
	"github.com/lexiqai/synth-session/internal/engine"
)

// PerCharacter is the audio length produced for each input rune.
const PerCharacter = 80 * time.Millisecond

func init() {
	engine.Backends.Register("stub", func(_ map[string]string) (engine.Constructor, error) {
		return func() engine.Native { return New() }, nil
	})
}

// Engine is a synthesizer that never produces sound.
type Engine struct {
	loaded bool

	samplingFrequency int
	alpha, beta       float64
	speed             float64
	halfTone          float64
	msdThreshold      map[int]float64
	gvWeight          map[int]float64
	volume            float64
	audioBufferSize   int
}

func New() *Engine {
	return &Engine{
		samplingFrequency: 48000,
		alpha:             0.55,
		speed:             1.0,
		msdThreshold:      map[int]float64{},
		gvWeight:          map[int]float64{},
	}
}

func (e *Engine) SamplingFrequency() int { return e.samplingFrequency }
func (e *Engine) SetSamplingFrequency(hz int) { e.samplingFrequency = hz }
func (e *Engine) Alpha() float64 { return e.alpha }
func (e *Engine) SetAlpha(v float64) { e.alpha = v }
func (e *Engine) Beta() float64 { return e.beta }
func (e *Engine) SetBeta(v float64) { e.beta = v }
func (e *Engine) SetSpeed(v float64) { e.speed = v }
func (e *Engine) AddHalfTone(v float64) { e.halfTone += v }
func (e *Engine) MsdThreshold(i int) float64 { return e.msdThreshold[i] }
func (e *Engine) SetMsdThreshold(i int, v float64) { e.msdThreshold[i] = v }
func (e *Engine) GvWeight(i int) float64 { return e.gvWeight[i] }
func (e *Engine) SetGvWeight(i int, v float64) { e.gvWeight[i] = v }
func (e *Engine) Volume() float64 { return e.volume }
func (e *Engine) SetVolume(v float64) { e.volume = v }
func (e *Engine) AudioBufferSize() int { return e.audioBufferSize }
func (e *Engine) SetAudioBufferSize(n int) { e.audioBufferSize = n }

func (e *Engine) Load(_, dictionaryDir, voicePath string) bool {
	e.loaded = engine.CheckResources(dictionaryDir, voicePath) == nil
	return e.loaded
}

// Synthesize writes silence sized to the text and speed, plus a one-line
// trace when logPath is set.
func (e *Engine) Synthesize(text, audioPath, logPath string) bool {
	if !e.loaded || text == "" {
		return false
	}
	speed := e.speed
	if speed <= 0 {
		speed = 1
	}
	length := time.Duration(float64(PerCharacter) * float64(len([]rune(text))) / speed)

	if audioPath != "" {
		if err := audio.WriteSilence(audioPath, e.samplingFrequency, length); err != nil {
			return false
		}
	}
	if logPath != "" {
		trace := fmt.Sprintf("text: %s\nduration: %s\n", text, length)
		if err := os.WriteFile(logPath, []byte(trace), 0o644); err != nil {
			return false
		}
	}
	return true
}

func (e *Engine) Destroy() {
	e.loaded = false
}
