// Package openjtalk drives the open_jtalk command line synthesizer.
package openjtalk

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/synth-session/internal/engine"
	"github.com/lexiqai/synth-session/internal/observability"
)

func init() {
	engine.Backends.Register("openjtalk", func(options map[string]string) (engine.Constructor, error) {
		binaryPath := options["binary_path"]
		if binaryPath == "" {
			binaryPath = "open_jtalk"
		}
		englishBinary := options["english_binary_path"]
		if englishBinary == "" {
			englishBinary = "flite_hts_engine"
		}
		timeout := 60 * time.Second
		if raw := options["timeout_seconds"]; raw != "" {
			secs, err := strconv.Atoi(raw)
			if err != nil {
				return nil, err
			}
			timeout = time.Duration(secs) * time.Second
		}
		return func() engine.Native {
			return New(binaryPath, englishBinary, timeout)
		}, nil
	})
}

// Engine is one open_jtalk instance. Settings are held in memory and
// passed as flags on every synthesis run.
type Engine struct {
	binaryPath    string
	englishBinary string
	timeout       time.Duration
	logger        zerolog.Logger

	language      string
	dictionaryDir string
	voicePath     string

	samplingFrequency int
	alpha             float64
	beta              float64
	speed             float64
	halfTone          float64
	msdThreshold      map[int]float64
	gvWeight          map[int]float64
	volume            float64
	audioBufferSize   int
}

// New creates an engine with open_jtalk's documented defaults.
func New(binaryPath, englishBinary string, timeout time.Duration) *Engine {
	return &Engine{
		binaryPath:    binaryPath,
		englishBinary: englishBinary,
		timeout:       timeout,
		logger:        observability.WithComponent(observability.GetLogger(), "openjtalk"),
		alpha:         0.55,
		beta:          0.0,
		speed:         1.0,
		msdThreshold:  map[int]float64{0: 0.5},
		gvWeight:      map[int]float64{0: 1.0, 1: 1.0},
	}
}

func (e *Engine) SamplingFrequency() int { return e.samplingFrequency }
func (e *Engine) SetSamplingFrequency(hz int) { e.samplingFrequency = hz }
func (e *Engine) Alpha() float64 { return e.alpha }
func (e *Engine) SetAlpha(v float64) { e.alpha = v }
func (e *Engine) Beta() float64 { return e.beta }
func (e *Engine) SetBeta(v float64) { e.beta = v }
func (e *Engine) SetSpeed(v float64) { e.speed = v }
func (e *Engine) AddHalfTone(v float64) { e.halfTone = v }
func (e *Engine) MsdThreshold(i int) float64 { return e.msdThreshold[i] }
func (e *Engine) SetMsdThreshold(i int, v float64) { e.msdThreshold[i] = v }
func (e *Engine) GvWeight(i int) float64 { return e.gvWeight[i] }
func (e *Engine) SetGvWeight(i int, v float64) { e.gvWeight[i] = v }
func (e *Engine) Volume() float64 { return e.volume }
func (e *Engine) SetVolume(v float64) { e.volume = v }
func (e *Engine) AudioBufferSize() int { return e.audioBufferSize }
func (e *Engine) SetAudioBufferSize(n int) { e.audioBufferSize = n }

// Load checks the resources and the synthesizer binary. Nothing is kept
// open between runs.
func (e *Engine) Load(language, dictionaryDir, voicePath string) bool {
	if language == "ja" && dictionaryDir == "" {
		e.logger.Error().Str("language", language).Msg("Dictionary required")
		return false
	}
	if err := engine.CheckResources(dictionaryDir, voicePath); err != nil {
		e.logger.Error().Err(err).Str("voice", voicePath).Msg("Resource check failed")
		return false
	}

	e.language = language
	e.dictionaryDir = dictionaryDir
	e.voicePath = voicePath
	if _, err := exec.LookPath(e.binary()); err != nil {
		e.logger.Error().Err(err).Str("binary", e.binary()).Msg("Synthesizer not found")
		return false
	}
	return true
}

func (e *Engine) binary() string {
	if e.dictionaryDir == "" {
		return e.englishBinary
	}
	return e.binaryPath
}

// Synthesize runs the synthesizer once with text on stdin.
func (e *Engine) Synthesize(text, audioPath, logPath string) bool {
	if e.voicePath == "" {
		return false
	}

	// The synthesizer always needs a wave target.
	if audioPath == "" {
		tmp, err := os.CreateTemp("", "synth-*.wav")
		if err != nil {
			e.logger.Error().Err(err).Msg("Failed to create temporary output")
			return false
		}
		tmp.Close()
		audioPath = tmp.Name()
		defer os.Remove(audioPath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	args := e.args(audioPath, logPath)
	cmd := exec.CommandContext(ctx, e.binary(), args...)
	cmd.Stdin = bytes.NewBufferString(text)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		e.logger.Error().
			Err(err).
			Str("language", e.language).
			Str("stderr", stderr.String()).
			Dur("took", time.Since(start)).
			Msg("Synthesis run failed")
		return false
	}
	return true
}

// Destroy forgets the loaded resources. No process outlives a run.
func (e *Engine) Destroy() {
	e.voicePath = ""
}

func (e *Engine) args(audioPath, logPath string) []string {
	return buildArgs(flags{
		dictionaryDir:     e.dictionaryDir,
		voicePath:         e.voicePath,
		audioPath:         audioPath,
		logPath:           logPath,
		samplingFrequency: e.samplingFrequency,
		alpha:             e.alpha,
		beta:              e.beta,
		speed:             e.speed,
		halfTone:          e.halfTone,
		msdThreshold:      e.msdThreshold,
		gvWeight:          e.gvWeight,
		volume:            e.volume,
		audioBufferSize:   e.audioBufferSize,
	})
}

type flags struct {
	dictionaryDir     string
	voicePath         string
	audioPath         string
	logPath           string
	samplingFrequency int
	alpha             float64
	beta              float64
	speed             float64
	halfTone          float64
	msdThreshold      map[int]float64
	gvWeight          map[int]float64
	volume            float64
	audioBufferSize   int
}

func buildArgs(f flags) []string {
	var args []string
	if f.dictionaryDir != "" {
		args = append(args, "-x", filepath.Clean(f.dictionaryDir))
	}
	args = append(args, "-m", f.voicePath, "-ow", f.audioPath)
	if f.logPath != "" {
		args = append(args, "-ot", f.logPath)
	}
	if f.samplingFrequency > 0 {
		args = append(args, "-s", strconv.Itoa(f.samplingFrequency))
	}
	args = append(args,
		"-a", formatFloat(f.alpha),
		"-b", formatFloat(f.beta),
		"-r", formatFloat(f.speed),
	)
	if f.halfTone != 0 {
		args = append(args, "-fm", formatFloat(f.halfTone))
	}
	if v, ok := f.msdThreshold[0]; ok {
		args = append(args, "-u", formatFloat(v))
	}
	if v, ok := f.gvWeight[0]; ok {
		args = append(args, "-jm", formatFloat(v))
	}
	if v, ok := f.gvWeight[1]; ok {
		args = append(args, "-jf", formatFloat(v))
	}
	if f.volume != 0 {
		args = append(args, "-g", formatFloat(f.volume))
	}
	if f.audioBufferSize > 0 {
		args = append(args, "-z", strconv.Itoa(f.audioBufferSize))
	}
	return args
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
