package session

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/synth-session/internal/assets"
	"github.com/lexiqai/synth-session/internal/audio"
	"github.com/lexiqai/synth-session/internal/engine"
	"github.com/lexiqai/synth-session/internal/observability"
)

// worker is the only goroutine that touches the engine handle.
type worker struct {
	queue *fifo[Command]
	post  func(any)

	ctor        engine.Constructor
	provisioner *assets.Provisioner
	fingerprint assets.Fingerprint
	defaults    engine.Configuration
	debugDir    string
	logger      zerolog.Logger

	handle *engine.Handle
	done   chan struct{}
}

func (w *worker) run() {
	defer close(w.done)

	for {
		cmd, ok := w.queue.pop()
		if !ok {
			break
		}
		observability.SetQueueDepth(w.queue.len())
		w.dispatch(cmd)
	}

	if discarded := w.queue.drain(); len(discarded) > 0 {
		observability.RecordDiscarded(len(discarded))
		w.logger.Info().Int("discarded", len(discarded)).Msg("Dropped pending commands at close")
	}
	observability.SetQueueDepth(0)
	w.release()
	w.logger.Debug().Msg("Worker stopped")
}

func (w *worker) dispatch(cmd Command) {
	switch c := cmd.(type) {
	case InitializeCommand:
		w.post(w.initialize(c))
	case SynthesizeCommand:
		w.post(w.synthesize(c))
	case releaseCommand:
		w.release()
	default:
		w.logger.Error().Interface("command", cmd).Msg("Unknown command")
	}
}

func (w *worker) initialize(c InitializeCommand) Initialized {
	start := time.Now()
	profile := c.Profile
	logger := w.logger.With().Str("profile", profile.Name).Logger()
	res := Initialized{Profile: profile.Name}

	defer func() {
		observability.RecordInitialize(res.Success, time.Since(start))
	}()

	// At most one engine exists at a time.
	w.release()

	if _, err := w.provisioner.Ensure(context.Background(), profile.AssetSet(), w.fingerprint); err != nil {
		observability.RecordError("provisioning", "worker")
		res.Err = err
		return res
	}

	root := w.provisioner.Root()
	h := engine.Create(w.ctor)
	if !h.Load(profile.Language, profile.DictionaryDir(root), profile.VoicePath(root)) {
		h.Release()
		observability.RecordError("load", "worker")
		logger.Error().Str("voice", profile.VoicePath(root)).Msg("Engine load failed")
		res.Err = ErrEngineLoad
		return res
	}

	cfg := w.defaults.Overlay(profile.Engine)
	if err := h.Apply(cfg); err != nil {
		h.Release()
		observability.RecordError("configure", "worker")
		res.Err = err
		return res
	}

	w.handle = h
	res.Success = true
	logger.Info().
		Str("language", profile.Language).
		Int("sampling_frequency", cfg.SamplingFrequency).
		Dur("took", time.Since(start)).
		Msg("Engine ready")
	return res
}

func (w *worker) synthesize(c SynthesizeCommand) SynthesisFinished {
	res := SynthesisFinished{ID: c.ID}
	logger := w.logger.With().Str("request_id", c.ID).Logger()

	if w.handle == nil || !w.handle.Loaded() {
		observability.RecordError("no_engine", "worker")
		logger.Error().Err(ErrNoEngine).Msg("Synthesis requested without an engine")
		return res
	}

	audioPath, logPath := c.AudioPath, c.LogPath
	if w.debugDir != "" && audioPath == "" && logPath == "" {
		if err := os.MkdirAll(w.debugDir, 0o755); err != nil {
			logger.Warn().Err(err).Msg("Debug output unavailable")
		} else {
			audioPath = filepath.Join(w.debugDir, "wave.riff")
			logPath = filepath.Join(w.debugDir, "log.txt")
		}
	}

	start := time.Now()
	res.Success = w.handle.Synthesize(c.Text, audioPath, logPath)
	took := time.Since(start)
	observability.RecordSynthesis(res.Success, took)

	if !res.Success {
		logger.Warn().Dur("took", took).Msg("Synthesis failed")
		return res
	}

	if audioPath != "" {
		res.AudioPath = audioPath
		info, err := audio.Inspect(audioPath)
		if err != nil {
			logger.Debug().Err(err).Str("path", audioPath).Msg("Could not inspect output")
		} else {
			res.Duration = info.Duration
			observability.RecordAudioDuration(info.Duration)
			if info.Silent() {
				logger.Debug().Str("path", audioPath).Msg("Output is silent")
			}
		}
	}

	logger.Debug().
		Int("chars", len([]rune(c.Text))).
		Dur("took", took).
		Dur("audio", res.Duration).
		Msg("Synthesis finished")
	return res
}

func (w *worker) release() {
	if w.handle == nil {
		return
	}
	w.handle.Release()
	w.handle = nil
}
