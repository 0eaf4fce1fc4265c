package stub

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexiqai/synth-session/internal/audio"
	"github.com/lexiqai/synth-session/internal/engine"
)

func writeVoice(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cmu_us_arctic_slt.htsvoice")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEngine_SynthesizeWritesSilence(t *testing.T) {
	e := New()
	require.True(t, e.Load("en", "", writeVoice(t, "[GLOBAL]\nFULLCONTEXT_FORMAT:HTS_TTS_ENG\n")))

	dir := t.TempDir()
	wave := filepath.Join(dir, "wave.riff")
	trace := filepath.Join(dir, "log.txt")
	require.True(t, e.Synthesize("hello", wave, trace))

	info, err := audio.Inspect(wave)
	require.NoError(t, err)
	assert.Equal(t, 48000, info.SampleRate)
	assert.Equal(t, 5*PerCharacter, info.Duration)
	assert.True(t, info.Silent())

	data, err := os.ReadFile(trace)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestEngine_SpeedShortensOutput(t *testing.T) {
	e := New()
	require.True(t, e.Load("en", "", writeVoice(t, "[GLOBAL]\n")))
	e.SetSpeed(2)

	wave := filepath.Join(t.TempDir(), "out.wav")
	require.True(t, e.Synthesize("abcd", wave, ""))

	info, err := audio.Inspect(wave)
	require.NoError(t, err)
	assert.Equal(t, 2*PerCharacter, info.Duration)
}

func TestEngine_CorruptVoiceFailsLoad(t *testing.T) {
	e := New()
	assert.False(t, e.Load("en", "", writeVoice(t, "not a voice")))
	assert.False(t, e.Synthesize("hello", "", ""))
}

func TestEngine_MissingDictionaryFailsLoad(t *testing.T) {
	e := New()
	assert.False(t, e.Load("ja", t.TempDir(), writeVoice(t, "[GLOBAL]\n")))
}

func TestEngine_DestroyUnloads(t *testing.T) {
	e := New()
	require.True(t, e.Load("en", "", writeVoice(t, "[GLOBAL]\n")))
	e.Destroy()
	assert.False(t, e.Synthesize("hello", "", ""))
}

func TestHandleOverStub(t *testing.T) {
	ctor, err := engine.Backends.Create("stub", nil)
	require.NoError(t, err)

	h := engine.Create(ctor)
	defer h.Release()

	require.True(t, h.Load("en", "", writeVoice(t, "[GLOBAL]\n")))
	require.NoError(t, h.Apply(engine.Configuration{SamplingFrequency: 16000}))
	assert.Equal(t, 16000, h.SamplingFrequency())
	assert.True(t, h.Synthesize("hi", "", ""))
}
