// Package engine owns the native synthesis engine instance and the
// backends that provide one.
package engine

// Native is one instance of a synthesis engine. Implementations are not
// safe for concurrent use; Handle guarantees a single caller at a time.
type Native interface {
	SamplingFrequency() int
	SetSamplingFrequency(hz int)
	Alpha() float64
	SetAlpha(v float64)
	Beta() float64
	SetBeta(v float64)
	SetSpeed(v float64)
	AddHalfTone(v float64)
	MsdThreshold(index int) float64
	SetMsdThreshold(index int, v float64)
	GvWeight(index int) float64
	SetGvWeight(index int, v float64)
	Volume() float64
	SetVolume(v float64)
	AudioBufferSize() int
	SetAudioBufferSize(n int)

	// Load reads linguistic and acoustic resources. dictionaryDir is empty
	// for languages that need no morphological dictionary.
	Load(language, dictionaryDir, voicePath string) bool

	// Synthesize renders text. Empty paths mean no file output.
	Synthesize(text, audioPath, logPath string) bool

	// Destroy frees the instance. Called exactly once by Handle.
	Destroy()
}

// Constructor allocates a fresh Native instance.
type Constructor func() Native
