package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/lexiqai/synth-session/internal/assets"
	"github.com/lexiqai/synth-session/internal/config"
	"github.com/lexiqai/synth-session/internal/engine"
	_ "github.com/lexiqai/synth-session/internal/engine/openjtalk"
	_ "github.com/lexiqai/synth-session/internal/engine/stub"
	"github.com/lexiqai/synth-session/internal/observability"
	"github.com/lexiqai/synth-session/internal/session"
)

// runtime is the wiring shared by every command.
type runtime struct {
	cfg    *config.Config
	logger zerolog.Logger

	catalog     *assets.Catalog
	store       assets.Store
	provisioner *assets.Provisioner
	fingerprint assets.Fingerprint
	engine      engine.Constructor
}

func setup(logLevel string) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	catalog := assets.DefaultCatalog()
	if cfg.ProfilesFile != "" {
		if catalog, err = assets.LoadCatalog(cfg.ProfilesFile); err != nil {
			return nil, err
		}
	}

	fp, err := assets.CurrentFingerprint(cfg.AssetFingerprint)
	if err != nil {
		return nil, err
	}

	ctor, err := engine.Backends.Create(cfg.EngineBackend, cfg.EngineOptions())
	if err != nil {
		return nil, fmt.Errorf("engine backend: %w", err)
	}

	store, err := assets.OpenStore(cfg.PrefsBackend, cfg.PreferencesPath())
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:         cfg,
		logger:      logger,
		catalog:     catalog,
		store:       store,
		provisioner: assets.NewProvisioner(os.DirFS(cfg.BundleDir), cfg.DictDir(), store, cfg.CopyBufferSize, logger),
		fingerprint: fp,
		engine:      ctor,
	}, nil
}

// defaults is the configuration every engine starts from.
func (r *runtime) defaults() engine.Configuration {
	return engine.Configuration{
		SamplingFrequency: r.cfg.SamplingFrequency,
		AudioBufferSize:   r.cfg.AudioBufferSize,
	}
}

func (r *runtime) newSession(defaults engine.Configuration, l session.Listener) (*session.Session, error) {
	opts := session.Options{
		Engine:      r.engine,
		Provisioner: r.provisioner,
		Catalog:     r.catalog,
		Fingerprint: r.fingerprint,
		Defaults:    defaults,
		Listener:    l,
		Logger:      r.logger,
	}
	if r.cfg.DebugSynthesis {
		opts.DebugDir = r.cfg.LogDir()
	}
	return session.New(opts)
}

func (r *runtime) Close() error {
	return r.store.Close()
}
