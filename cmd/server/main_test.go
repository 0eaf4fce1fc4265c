package main

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexiqai/synth-session/internal/assets"
	"github.com/lexiqai/synth-session/internal/config"
	"github.com/lexiqai/synth-session/internal/engine"
	"github.com/lexiqai/synth-session/internal/session"
)

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)

	assert.Equal(t, "synth-session", cmd.Use)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))

	uses := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		uses = append(uses, sub.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "speak", "provision", "profiles"}, uses)
}

func TestSpeakCommandFlags(t *testing.T) {
	var level string
	cmd := newSpeakCommand(&level)

	assert.NotNil(t, cmd.RunE)
	for _, name := range []string{"profile", "output", "log", "set", "timeout"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "ja", cmd.Flags().Lookup("profile").DefValue)
}

func TestParseSettings(t *testing.T) {
	settings, err := parseSettings([]string{"speed=1.5", "gv_weight[1]=0.8"})
	require.NoError(t, err)
	require.Len(t, settings, 2)
	assert.Equal(t, engine.ParamSpeed, settings[0].Param)
	assert.Equal(t, 1, settings[1].Index)

	_, err = parseSettings([]string{"pitch"})
	assert.Error(t, err)
}

func testRuntime(t *testing.T, bundle fstest.MapFS) *runtime {
	t.Helper()
	dir := t.TempDir()

	ctor, err := engine.Backends.Create("stub", nil)
	require.NoError(t, err)

	store := assets.NewFileStore(filepath.Join(dir, "prefs.json"))
	return &runtime{
		cfg:         &config.Config{DataDir: dir, SamplingFrequency: 48000, AudioBufferSize: 6000},
		logger:      zerolog.Nop(),
		catalog:     assets.DefaultCatalog(),
		store:       store,
		provisioner: assets.NewProvisioner(bundle, filepath.Join(dir, "dict"), store, 0, zerolog.Nop()),
		fingerprint: "1",
		engine:      ctor,
	}
}

func fullBundle() fstest.MapFS {
	return fstest.MapFS{
		"mecab/char.bin":                       {Data: []byte("char")},
		"mecab/matrix.bin":                     {Data: []byte("matrix")},
		"mecab/sys.dic":                        {Data: []byte("sys")},
		"mecab/unk.dic":                        {Data: []byte("unk")},
		"voice/nitech_jp_atr503_m001.htsvoice": {Data: []byte("[GLOBAL]\nja")},
		"voice/cmu_us_arctic_slt.htsvoice":     {Data: []byte("[GLOBAL]\nen")},
	}
}

func TestSpeak(t *testing.T) {
	rt := testRuntime(t, fullBundle())
	out := filepath.Join(t.TempDir(), "hello.wav")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	defaults := rt.defaults().With(engine.Setting{Param: engine.ParamSpeed, Value: 2})
	res, err := speak(ctx, rt, defaults, "en", "hello", session.Output{AudioPath: out})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, out, res.AudioPath)
	assert.InDelta(t, float64(200*time.Millisecond), float64(res.Duration), float64(10*time.Millisecond))
}

func TestSpeak_InitializeFailure(t *testing.T) {
	bundle := fullBundle()
	delete(bundle, "mecab/sys.dic")
	rt := testRuntime(t, bundle)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := speak(ctx, rt, rt.defaults(), "ja", "こんにちは", session.Output{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), session.InitializeFailedMessage)
}

func TestSpeak_UnknownProfile(t *testing.T) {
	rt := testRuntime(t, fullBundle())

	_, err := speak(context.Background(), rt, rt.defaults(), "fr", "bonjour", session.Output{})
	assert.ErrorIs(t, err, session.ErrUnknownProfile)
}
