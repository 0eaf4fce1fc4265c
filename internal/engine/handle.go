package engine

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/lexiqai/synth-session/internal/observability"
)

var (
	// ErrReleased is returned when a released handle is used.
	ErrReleased = errors.New("engine: handle released")

	// ErrUnknownParam is returned for a Setting outside the Param range.
	ErrUnknownParam = errors.New("engine: unknown parameter")
)

// Handle is the exclusive owner of one Native instance.
//
// A Handle must be used from one goroutine at a time; overlapping calls are
// a programming error and panic. Release is idempotent, and a finalizer
// releases handles that become unreachable without an explicit Release.
type Handle struct {
	native   Native
	loaded   bool
	attempts int

	inUse    atomic.Bool
	released atomic.Bool
}

// Create allocates a new native instance and wraps it.
func Create(ctor Constructor) *Handle {
	h := &Handle{native: ctor()}
	observability.RecordHandleCreated()
	runtime.SetFinalizer(h, (*Handle).finalize)
	return h
}

func (h *Handle) enter() {
	if !h.inUse.CompareAndSwap(false, true) {
		panic("engine: concurrent use of handle")
	}
}

func (h *Handle) exit() {
	h.inUse.Store(false)
}

// Loaded reports whether Load succeeded.
func (h *Handle) Loaded() bool {
	return h.loaded && !h.released.Load()
}

// Released reports whether the native instance has been destroyed.
func (h *Handle) Released() bool {
	return h.released.Load()
}

// Load loads linguistic and acoustic resources. It may be attempted once;
// later calls return false without reaching the engine.
func (h *Handle) Load(language, dictionaryDir, voicePath string) bool {
	if h.released.Load() {
		return false
	}
	h.enter()
	defer h.exit()

	h.attempts++
	if h.attempts > 1 {
		return false
	}
	h.loaded = h.native.Load(language, dictionaryDir, voicePath)
	return h.loaded
}

// Synthesize renders text with the loaded resources.
func (h *Handle) Synthesize(text, audioPath, logPath string) bool {
	if h.released.Load() || !h.loaded {
		return false
	}
	h.enter()
	defer h.exit()

	return h.native.Synthesize(text, audioPath, logPath)
}

// Configure applies one setting. Values are not range checked.
func (h *Handle) Configure(s Setting) error {
	if h.released.Load() {
		return ErrReleased
	}
	h.enter()
	defer h.exit()

	n := h.native
	switch s.Param {
	case ParamSamplingFrequency:
		n.SetSamplingFrequency(int(s.Value))
	case ParamAlpha:
		n.SetAlpha(s.Value)
	case ParamBeta:
		n.SetBeta(s.Value)
	case ParamSpeed:
		n.SetSpeed(s.Value)
	case ParamHalfTone:
		n.AddHalfTone(s.Value)
	case ParamMsdThreshold:
		n.SetMsdThreshold(s.Index, s.Value)
	case ParamGvWeight:
		n.SetGvWeight(s.Index, s.Value)
	case ParamVolume:
		n.SetVolume(s.Value)
	case ParamAudioBufferSize:
		n.SetAudioBufferSize(int(s.Value))
	default:
		return fmt.Errorf("%w: %d", ErrUnknownParam, int(s.Param))
	}
	return nil
}

// Apply configures every setting of c in order.
func (h *Handle) Apply(c Configuration) error {
	for _, s := range c.Settings() {
		if err := h.Configure(s); err != nil {
			return fmt.Errorf("configure %s: %w", s, err)
		}
	}
	return nil
}

func (h *Handle) SamplingFrequency() int {
	if h.released.Load() {
		return 0
	}
	h.enter()
	defer h.exit()
	return h.native.SamplingFrequency()
}

func (h *Handle) SetSamplingFrequency(hz int) error {
	return h.Configure(Setting{Param: ParamSamplingFrequency, Value: float64(hz)})
}

func (h *Handle) Alpha() float64 {
	if h.released.Load() {
		return 0
	}
	h.enter()
	defer h.exit()
	return h.native.Alpha()
}

func (h *Handle) SetAlpha(v float64) error {
	return h.Configure(Setting{Param: ParamAlpha, Value: v})
}

func (h *Handle) Beta() float64 {
	if h.released.Load() {
		return 0
	}
	h.enter()
	defer h.exit()
	return h.native.Beta()
}

func (h *Handle) SetBeta(v float64) error {
	return h.Configure(Setting{Param: ParamBeta, Value: v})
}

func (h *Handle) SetSpeed(v float64) error {
	return h.Configure(Setting{Param: ParamSpeed, Value: v})
}

func (h *Handle) AddHalfTone(v float64) error {
	return h.Configure(Setting{Param: ParamHalfTone, Value: v})
}

func (h *Handle) MsdThreshold(index int) float64 {
	if h.released.Load() {
		return 0
	}
	h.enter()
	defer h.exit()
	return h.native.MsdThreshold(index)
}

func (h *Handle) SetMsdThreshold(index int, v float64) error {
	return h.Configure(Setting{Param: ParamMsdThreshold, Index: index, Value: v})
}

func (h *Handle) GvWeight(index int) float64 {
	if h.released.Load() {
		return 0
	}
	h.enter()
	defer h.exit()
	return h.native.GvWeight(index)
}

func (h *Handle) SetGvWeight(index int, v float64) error {
	return h.Configure(Setting{Param: ParamGvWeight, Index: index, Value: v})
}

func (h *Handle) Volume() float64 {
	if h.released.Load() {
		return 0
	}
	h.enter()
	defer h.exit()
	return h.native.Volume()
}

func (h *Handle) SetVolume(v float64) error {
	return h.Configure(Setting{Param: ParamVolume, Value: v})
}

func (h *Handle) AudioBufferSize() int {
	if h.released.Load() {
		return 0
	}
	h.enter()
	defer h.exit()
	return h.native.AudioBufferSize()
}

func (h *Handle) SetAudioBufferSize(n int) error {
	return h.Configure(Setting{Param: ParamAudioBufferSize, Value: float64(n)})
}

// Release destroys the native instance. Calls after the first are no-ops.
func (h *Handle) Release() {
	runtime.SetFinalizer(h, nil)
	h.release("explicit")
}

func (h *Handle) finalize() {
	h.release("finalizer")
}

func (h *Handle) release(path string) {
	if !h.released.CompareAndSwap(false, true) {
		return
	}
	h.enter()
	defer h.exit()
	h.native.Destroy()
	h.native = nil
	observability.RecordHandleReleased(path)
}
