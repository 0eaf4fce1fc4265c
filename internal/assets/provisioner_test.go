package assets

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bundle() fstest.MapFS {
	return fstest.MapFS{
		"mecab/char.bin":                       {Data: []byte("char")},
		"mecab/matrix.bin":                     {Data: []byte(strings.Repeat("m", 5000))},
		"mecab/sys.dic":                        {Data: []byte("sys")},
		"mecab/unk.dic":                        {Data: []byte("unk")},
		"voice/nitech_jp_atr503_m001.htsvoice": {Data: []byte("[GLOBAL]\nja")},
		"voice/cmu_us_arctic_slt.htsvoice":     {Data: []byte("[GLOBAL]\nen")},
	}
}

func jaSet() AssetSet {
	return DefaultProfiles()[0].AssetSet()
}

// countingStore wraps a store and counts writes.
type countingStore struct {
	Store
	reads, writes int
	failRead      error
}

func (s *countingStore) Fingerprint(ctx context.Context, key string) (Fingerprint, bool, error) {
	s.reads++
	if s.failRead != nil {
		return "", false, s.failRead
	}
	return s.Store.Fingerprint(ctx, key)
}

func (s *countingStore) SetFingerprint(ctx context.Context, key string, fp Fingerprint) error {
	s.writes++
	return s.Store.SetFingerprint(ctx, key, fp)
}

func newTestProvisioner(t *testing.T, b fs.FS) (*Provisioner, *countingStore, string) {
	t.Helper()
	dir := t.TempDir()
	store := &countingStore{Store: NewFileStore(filepath.Join(dir, "prefs.json"))}
	root := filepath.Join(dir, "dict")
	return NewProvisioner(b, root, store, 0, zerolog.Nop()), store, root
}

func TestEnsure_FreshInstallCopiesDeclaredFiles(t *testing.T) {
	p, store, root := newTestProvisioner(t, bundle())
	ctx := context.Background()

	report, err := p.Ensure(ctx, jaSet(), "100")
	require.NoError(t, err)

	assert.False(t, report.Skipped)
	assert.Equal(t, 5, report.Files)
	assert.Equal(t, int64(4+5000+3+3+len("[GLOBAL]\nja")), report.Bytes)

	for _, name := range []string{"char.bin", "matrix.bin", "sys.dic", "unk.dic"} {
		assert.FileExists(t, filepath.Join(root, "mecab", name))
	}
	data, err := os.ReadFile(filepath.Join(root, "voice", "nitech_jp_atr503_m001.htsvoice"))
	require.NoError(t, err)
	assert.Equal(t, "[GLOBAL]\nja", string(data))

	// The other profile's voice is not part of the set
	assert.NoFileExists(t, filepath.Join(root, "voice", "cmu_us_arctic_slt.htsvoice"))

	fp, ok, err := store.Fingerprint(ctx, "assetFingerprint/ja")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Fingerprint("100"), fp)
	assert.Equal(t, 1, store.writes)
}

func TestEnsure_LargeFileCopiedThroughSmallBuffer(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "prefs.json"))
	p := NewProvisioner(bundle(), dir, store, 7, zerolog.Nop())

	_, err := p.Ensure(context.Background(), jaSet(), "1")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "mecab", "matrix.bin"))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("m", 5000), string(data))
}

func TestEnsure_SecondRunIsNoop(t *testing.T) {
	p, store, root := newTestProvisioner(t, bundle())
	ctx := context.Background()

	_, err := p.Ensure(ctx, jaSet(), "100")
	require.NoError(t, err)

	// Remove a file: a skipped run must not notice or restore it
	require.NoError(t, os.Remove(filepath.Join(root, "mecab", "sys.dic")))

	report, err := p.Ensure(ctx, jaSet(), "100")
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Zero(t, report.Files)
	assert.Equal(t, 1, store.writes)
	assert.NoFileExists(t, filepath.Join(root, "mecab", "sys.dic"))
}

func TestEnsure_ChangedFingerprintRecopies(t *testing.T) {
	p, store, _ := newTestProvisioner(t, bundle())
	ctx := context.Background()

	_, err := p.Ensure(ctx, jaSet(), "100")
	require.NoError(t, err)

	report, err := p.Ensure(ctx, jaSet(), "200")
	require.NoError(t, err)
	assert.Equal(t, 5, report.Files)

	fp, _, err := store.Fingerprint(ctx, jaSet().Key())
	require.NoError(t, err)
	assert.Equal(t, Fingerprint("200"), fp)
}

func TestEnsure_MissingFileLeavesFingerprint(t *testing.T) {
	b := bundle()
	delete(b, "mecab/sys.dic")
	p, store, root := newTestProvisioner(t, b)
	ctx := context.Background()

	report, err := p.Ensure(ctx, jaSet(), "100")
	require.Error(t, err)

	var perr *ProvisioningError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "mecab/sys.dic", perr.File)
	assert.Equal(t, "ja", perr.Set)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	// Stopped at the first failure, earlier copies stay
	assert.Equal(t, 2, report.Files)
	assert.FileExists(t, filepath.Join(root, "mecab", "matrix.bin"))
	assert.NoFileExists(t, filepath.Join(root, "mecab", "unk.dic"))

	_, ok, err := store.Fingerprint(ctx, jaSet().Key())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, store.writes)

	// Fixing the bundle and retrying copies the whole set
	p.bundle = bundle()
	report, err = p.Ensure(ctx, jaSet(), "100")
	require.NoError(t, err)
	assert.Equal(t, 5, report.Files)
	assert.Equal(t, 1, store.writes)
}

func TestEnsure_StoreReadFailure(t *testing.T) {
	p, store, root := newTestProvisioner(t, bundle())
	store.failRead = errors.New("disk on fire")

	_, err := p.Ensure(context.Background(), jaSet(), "100")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read fingerprint")
	assert.NoDirExists(t, filepath.Join(root, "mecab"))
}

func TestEnsure_CancelledContext(t *testing.T) {
	p, store, _ := newTestProvisioner(t, bundle())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Ensure(ctx, jaSet(), "100")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.writes)
}

func TestEnsure_SetsAreIndependent(t *testing.T) {
	p, store, _ := newTestProvisioner(t, bundle())
	ctx := context.Background()
	en := DefaultProfiles()[1].AssetSet()

	_, err := p.Ensure(ctx, jaSet(), "100")
	require.NoError(t, err)

	report, err := p.Ensure(ctx, en, "100")
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, 1, report.Files)
	assert.Equal(t, 2, store.writes)
}

func TestCurrentFingerprint(t *testing.T) {
	fp, err := CurrentFingerprint("build-42")
	require.NoError(t, err)
	assert.Equal(t, Fingerprint("build-42"), fp)

	fp, err = CurrentFingerprint("")
	require.NoError(t, err)
	assert.NotEmpty(t, fp)

	again, err := CurrentFingerprint("")
	require.NoError(t, err)
	assert.Equal(t, fp, again)
}
