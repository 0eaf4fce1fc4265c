package openjtalk

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexiqai/synth-session/internal/engine"
)

func TestBuildArgs_Japanese(t *testing.T) {
	args := buildArgs(flags{
		dictionaryDir:     "/data/dict/mecab/",
		voicePath:         "/data/dict/voice/nitech_jp_atr503_m001.htsvoice",
		audioPath:         "/tmp/out.wav",
		logPath:           "/tmp/log.txt",
		samplingFrequency: 48000,
		alpha:             0.55,
		beta:              0,
		speed:             1.2,
		halfTone:          -2,
		msdThreshold:      map[int]float64{0: 0.5},
		gvWeight:          map[int]float64{0: 1.0, 1: 0.8},
		volume:            3,
		audioBufferSize:   6000,
	})

	assert.Equal(t, []string{
		"-x", "/data/dict/mecab",
		"-m", "/data/dict/voice/nitech_jp_atr503_m001.htsvoice",
		"-ow", "/tmp/out.wav",
		"-ot", "/tmp/log.txt",
		"-s", "48000",
		"-a", "0.55",
		"-b", "0",
		"-r", "1.2",
		"-fm", "-2",
		"-u", "0.5",
		"-jm", "1",
		"-jf", "0.8",
		"-g", "3",
		"-z", "6000",
	}, args)
}

func TestBuildArgs_NoDictionaryNoLog(t *testing.T) {
	args := buildArgs(flags{
		voicePath: "voice.htsvoice",
		audioPath: "out.wav",
		alpha:     0.42,
		speed:     1,
	})

	assert.NotContains(t, args, "-x")
	assert.NotContains(t, args, "-ot")
	assert.NotContains(t, args, "-s")
	assert.NotContains(t, args, "-z")
	assert.Equal(t, []string{"-m", "voice.htsvoice", "-ow", "out.wav"}, args[:4])
}

func TestEngine_SettingsRoundTrip(t *testing.T) {
	e := New("open_jtalk", "flite_hts_engine", time.Second)

	e.SetSamplingFrequency(48000)
	e.SetAlpha(0.6)
	e.SetGvWeight(1, 0.7)
	e.SetMsdThreshold(0, 0.4)
	e.SetAudioBufferSize(6000)

	assert.Equal(t, 48000, e.SamplingFrequency())
	assert.Equal(t, 0.6, e.Alpha())
	assert.Equal(t, 0.7, e.GvWeight(1))
	assert.Equal(t, 0.4, e.MsdThreshold(0))
	assert.Equal(t, 6000, e.AudioBufferSize())
}

func TestEngine_LoadRejectsCorruptVoice(t *testing.T) {
	dir := t.TempDir()
	dict := filepath.Join(dir, "mecab")
	require.NoError(t, os.MkdirAll(dict, 0o755))
	for _, name := range engine.DictionaryFiles {
		require.NoError(t, os.WriteFile(filepath.Join(dict, name), []byte("x"), 0o644))
	}
	voice := filepath.Join(dir, "voice.htsvoice")
	require.NoError(t, os.WriteFile(voice, []byte("garbage"), 0o644))

	e := New("open_jtalk", "flite_hts_engine", time.Second)
	assert.False(t, e.Load("ja", dict, voice))
}

func TestEngine_LoadRequiresDictionaryForJapanese(t *testing.T) {
	voice := filepath.Join(t.TempDir(), "voice.htsvoice")
	require.NoError(t, os.WriteFile(voice, []byte("[GLOBAL]\n"), 0o644))

	e := New("open_jtalk", "flite_hts_engine", time.Second)
	assert.False(t, e.Load("ja", "", voice))
}

func TestEngine_SynthesizeBeforeLoad(t *testing.T) {
	e := New("open_jtalk", "flite_hts_engine", time.Second)
	assert.False(t, e.Synthesize("こんにちは", "", ""))
}

func TestRegistered(t *testing.T) {
	require.True(t, engine.Backends.Has("openjtalk"))

	_, err := engine.Backends.Create("openjtalk", map[string]string{"timeout_seconds": "soon"})
	assert.Error(t, err)

	ctor, err := engine.Backends.Create("openjtalk", map[string]string{"binary_path": "/opt/open_jtalk"})
	require.NoError(t, err)
	e, ok := ctor().(*Engine)
	require.True(t, ok)
	assert.Equal(t, "/opt/open_jtalk", e.binaryPath)
	assert.Equal(t, 60*time.Second, e.timeout)
}
