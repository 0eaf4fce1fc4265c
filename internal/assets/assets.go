// Package assets provisions engine data files from a read-only bundle onto
// durable storage, once per fingerprint.
package assets

import (
	"fmt"
	"path"
	"path/filepath"
)

// FingerprintKey prefixes the persisted key of every asset set.
const FingerprintKey = "assetFingerprint"

// Fingerprint identifies the expected version of a bundle. Equal values mean
// the provisioned files are current.
type Fingerprint string

// File is one bundled file. It is read from <category>/<name> in the bundle
// and written to <root>/<category>/<name>.
type File struct {
	Category string `yaml:"category" json:"category"`
	Name     string `yaml:"name" json:"name"`
}

// BundlePath is the slash-separated path of f inside the bundle.
func (f File) BundlePath() string {
	return path.Join(f.Category, f.Name)
}

// Dest is where f lives under root.
func (f File) Dest(root string) string {
	return filepath.Join(root, f.Category, f.Name)
}

// AssetSet is a named group of files provisioned together.
type AssetSet struct {
	Name  string
	Files []File
}

// Key is the persisted fingerprint key of the set.
func (s AssetSet) Key() string {
	return FingerprintKey + "/" + s.Name
}

// Categories returns the distinct categories in declaration order.
func (s AssetSet) Categories() []string {
	seen := make(map[string]bool, len(s.Files))
	var out []string
	for _, f := range s.Files {
		if !seen[f.Category] {
			seen[f.Category] = true
			out = append(out, f.Category)
		}
	}
	return out
}

// ProvisioningError reports the file and operation that stopped a copy.
type ProvisioningError struct {
	Set  string
	File string
	Op   string
	Err  error
}

func (e *ProvisioningError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("provision %s: %s: %v", e.Set, e.Op, e.Err)
	}
	return fmt.Sprintf("provision %s: %s %s: %v", e.Set, e.Op, e.File, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}
