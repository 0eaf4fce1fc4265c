package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/lexiqai/synth-session/internal/engine"
	"github.com/lexiqai/synth-session/internal/observability"
)

// Profile is a selectable voice: the files it needs and how the engine is
// loaded and configured for it.
type Profile struct {
	Name     string `yaml:"name" json:"name"`
	Language string `yaml:"language" json:"language"`
	// Dictionary is the category holding the morphological dictionary.
	// Empty for languages that need none.
	Dictionary string               `yaml:"dictionary,omitempty" json:"dictionary,omitempty"`
	Voice      File                 `yaml:"voice" json:"voice"`
	Engine     engine.Configuration `yaml:"engine,omitempty" json:"engine,omitempty"`
}

// AssetSet lists the dictionary files followed by the voice.
func (p Profile) AssetSet() AssetSet {
	set := AssetSet{Name: p.Name}
	if p.Dictionary != "" {
		for _, name := range engine.DictionaryFiles {
			set.Files = append(set.Files, File{Category: p.Dictionary, Name: name})
		}
	}
	set.Files = append(set.Files, p.Voice)
	return set
}

// DictionaryDir is the provisioned dictionary directory, or "" if none.
func (p Profile) DictionaryDir(root string) string {
	if p.Dictionary == "" {
		return ""
	}
	return filepath.Join(root, p.Dictionary)
}

func (p Profile) VoicePath(root string) string {
	return p.Voice.Dest(root)
}

func (p Profile) validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile without name")
	}
	if p.Language == "" {
		return fmt.Errorf("profile %q: language is required", p.Name)
	}
	if p.Voice.Category == "" || p.Voice.Name == "" {
		return fmt.Errorf("profile %q: voice category and name are required", p.Name)
	}
	return nil
}

// DefaultProfiles are the two voices shipped in the bundle.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name:       "ja",
			Language:   "ja",
			Dictionary: "mecab",
			Voice:      File{Category: "voice", Name: "nitech_jp_atr503_m001.htsvoice"},
		},
		{
			Name:     "en",
			Language: "en",
			Voice:    File{Category: "voice", Name: "cmu_us_arctic_slt.htsvoice"},
		},
	}
}

type catalogFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// Catalog holds the selectable profiles, optionally backed by a YAML file.
type Catalog struct {
	path   string
	logger zerolog.Logger

	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewCatalog creates a catalog holding profiles.
func NewCatalog(profiles ...Profile) (*Catalog, error) {
	c := &Catalog{logger: observability.WithComponent(observability.GetLogger(), "catalog")}
	if err := c.set(profiles); err != nil {
		return nil, err
	}
	return c, nil
}

// DefaultCatalog returns a catalog of DefaultProfiles.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultProfiles()...)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog reads profiles from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	c := &Catalog{
		path:   filepath.Clean(path),
		logger: observability.WithComponent(observability.GetLogger(), "catalog"),
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the backing file. On error the current profiles stay.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("read profiles %q: %w", c.path, err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse YAML: %w", err)
	}
	return c.set(f.Profiles)
}

func (c *Catalog) set(profiles []Profile) error {
	if len(profiles) == 0 {
		return fmt.Errorf("no profiles defined")
	}
	next := make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		if err := p.validate(); err != nil {
			return err
		}
		if _, dup := next[p.Name]; dup {
			return fmt.Errorf("duplicate profile %q", p.Name)
		}
		next[p.Name] = p
	}

	c.mu.Lock()
	c.profiles = next
	c.mu.Unlock()
	return nil
}

// Get returns a profile by name.
func (c *Catalog) Get(name string) (Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.profiles[name]
	return p, ok
}

// Names returns the profile names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.profiles))
	for name := range c.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Watch reloads the backing file whenever it changes, until ctx is done.
// The parent directory is watched so editors that replace the file are
// noticed.
func (c *Catalog) Watch(ctx context.Context) error {
	if c.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(c.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch dir %q: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != c.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if err := c.Reload(); err != nil {
					c.logger.Warn().Err(err).Str("path", c.path).Msg("Profile reload failed, keeping previous profiles")
					continue
				}
				c.logger.Info().Strs("profiles", c.Names()).Msg("Profiles reloaded")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
