package assets

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/synth-session/internal/observability"
)

// DefaultCopyBufferSize bounds the memory used per file copy.
const DefaultCopyBufferSize = 2048

// Report summarizes one Ensure call.
type Report struct {
	Set     string
	Skipped bool
	Files   int
	Bytes   int64
	Took    time.Duration
}

// Provisioner copies asset sets from bundle to root.
type Provisioner struct {
	bundle  fs.FS
	root    string
	store   Store
	bufSize int
	logger  zerolog.Logger
}

// NewProvisioner creates a provisioner. A bufSize of zero or less uses
// DefaultCopyBufferSize.
func NewProvisioner(bundle fs.FS, root string, store Store, bufSize int, logger zerolog.Logger) *Provisioner {
	if bufSize <= 0 {
		bufSize = DefaultCopyBufferSize
	}
	return &Provisioner{
		bundle:  bundle,
		root:    root,
		store:   store,
		bufSize: bufSize,
		logger:  observability.WithComponent(logger, "provisioner"),
	}
}

// Root is the directory files are provisioned into.
func (p *Provisioner) Root() string {
	return p.root
}

// Ensure makes the files of set current for fp. When the persisted
// fingerprint already equals fp nothing is touched. Otherwise every file is
// copied, stopping at the first failure, and fp is persisted only after the
// last copy succeeded. A failed run leaves whatever was copied in place.
func (p *Provisioner) Ensure(ctx context.Context, set AssetSet, fp Fingerprint) (Report, error) {
	start := time.Now()
	report := Report{Set: set.Name}
	logger := p.logger.With().Str("asset_set", set.Name).Logger()

	stored, ok, err := p.store.Fingerprint(ctx, set.Key())
	if err != nil {
		observability.RecordProvisioning("failed", 0, 0)
		return report, &ProvisioningError{Set: set.Name, Op: "read fingerprint", Err: err}
	}
	if ok && stored == fp {
		report.Skipped = true
		report.Took = time.Since(start)
		observability.RecordProvisioning("skipped", 0, 0)
		logger.Debug().Str("fingerprint", string(fp)).Msg("Assets current, skipping copy")
		return report, nil
	}

	logger.Info().
		Str("stored", string(stored)).
		Str("current", string(fp)).
		Int("files", len(set.Files)).
		Msg("Provisioning assets")

	fail := func(err error) (Report, error) {
		report.Took = time.Since(start)
		observability.RecordProvisioning("failed", report.Files, report.Bytes)
		logger.Error().Err(err).Int("copied", report.Files).Msg("Provisioning failed")
		return report, err
	}

	for _, category := range set.Categories() {
		dir := File{Category: category}.Dest(p.root)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fail(&ProvisioningError{Set: set.Name, File: dir, Op: "mkdir", Err: err})
		}
	}

	buf := make([]byte, p.bufSize)
	for _, f := range set.Files {
		if err := ctx.Err(); err != nil {
			return fail(&ProvisioningError{Set: set.Name, File: f.BundlePath(), Op: "copy", Err: err})
		}
		n, err := p.copyFile(f, buf)
		report.Bytes += n
		if err != nil {
			return fail(&ProvisioningError{Set: set.Name, File: f.BundlePath(), Op: "copy", Err: err})
		}
		report.Files++
	}

	if err := p.store.SetFingerprint(ctx, set.Key(), fp); err != nil {
		return fail(&ProvisioningError{Set: set.Name, Op: "write fingerprint", Err: err})
	}

	report.Took = time.Since(start)
	observability.RecordProvisioning("copied", report.Files, report.Bytes)
	logger.Info().
		Int("files", report.Files).
		Int64("bytes", report.Bytes).
		Dur("took", report.Took).
		Msg("Assets provisioned")
	return report, nil
}

func (p *Provisioner) copyFile(f File, buf []byte) (int64, error) {
	src, err := p.bundle.Open(f.BundlePath())
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := os.Create(f.Dest(p.root))
	if err != nil {
		return 0, err
	}

	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			m, werr := dst.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				dst.Close()
				return written, werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			dst.Close()
			return written, rerr
		}
	}

	if err := dst.Sync(); err != nil {
		dst.Close()
		return written, fmt.Errorf("sync: %w", err)
	}
	return written, dst.Close()
}
