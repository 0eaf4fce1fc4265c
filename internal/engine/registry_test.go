package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry[string]()
	r.Register("b", func(opts map[string]string) (string, error) { return "b:" + opts["x"], nil })
	r.Register("a", func(map[string]string) (string, error) { return "", errors.New("boom") })

	assert.True(t, r.Has("a"))
	assert.False(t, r.Has("c"))
	assert.Equal(t, []string{"a", "b"}, r.List())

	got, err := r.Create("b", map[string]string{"x": "1"})
	require.NoError(t, err)
	assert.Equal(t, "b:1", got)

	_, err = r.Create("a", nil)
	assert.EqualError(t, err, "boom")

	_, err = r.Create("c", nil)
	assert.EqualError(t, err, `unknown engine backend "c"`)
}

func TestCheckResources(t *testing.T) {
	dir := t.TempDir()
	voice := filepath.Join(dir, "voice.htsvoice")
	require.NoError(t, os.WriteFile(voice, []byte("[GLOBAL]\nHTS_VOICE_VERSION:1.0\n"), 0o644))

	assert.NoError(t, CheckResources("", voice))

	dict := filepath.Join(dir, "mecab")
	require.NoError(t, os.MkdirAll(dict, 0o755))
	assert.ErrorIs(t, CheckResources(dict, voice), ErrBadDictionary)

	for _, name := range DictionaryFiles {
		require.NoError(t, os.WriteFile(filepath.Join(dict, name), []byte{0}, 0o644))
	}
	assert.NoError(t, CheckResources(dict, voice))

	require.NoError(t, os.WriteFile(voice, []byte("[GLO"), 0o644))
	assert.ErrorIs(t, CheckVoice(voice), ErrBadVoice)

	require.NoError(t, os.WriteFile(voice, []byte("RIFF....WAVE"), 0o644))
	assert.ErrorIs(t, CheckVoice(voice), ErrBadVoice)

	assert.Error(t, CheckVoice(filepath.Join(dir, "missing.htsvoice")))
}
