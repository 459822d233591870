package configloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Loader reads YAML configuration in two layers: built-in defaults from an fs.FS,
// then an optional override file of the same name under baseDir.
// Fields present in the override replace the defaults; absent fields keep them.
type Loader struct {
	baseDir  string
	defaults fs.FS
	cache    sync.Map
}

// NewLoader creates a loader. Either argument may be empty/nil.
func NewLoader(baseDir string, defaults fs.FS) *Loader {
	return &Loader{baseDir: baseDir, defaults: defaults}
}

// Load unmarshals subPath into target, defaults first, override second.
// It fails only when neither layer exists or a layer is malformed.
func (l *Loader) Load(subPath string, target any) error {
	found := false

	if l.defaults != nil {
		data, err := fs.ReadFile(l.defaults, subPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, target); err != nil {
				return fmt.Errorf("unmarshal default YAML %s: %w", subPath, err)
			}
			found = true
		case !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("read default %s: %w", subPath, err)
		}
	}

	if l.baseDir != "" {
		data, err := os.ReadFile(filepath.Join(l.baseDir, subPath))
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, target); err != nil {
				return fmt.Errorf("unmarshal YAML %s: %w", subPath, err)
			}
			found = true
		case !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("read file %s: %w", subPath, err)
		}
	}

	if !found {
		return fmt.Errorf("config %s: %w", subPath, fs.ErrNotExist)
	}
	return nil
}

// LoadCached loads a configuration once per subPath.
// factory creates the target; later calls return the cached value.
func (l *Loader) LoadCached(subPath string, factory func() any) (any, error) {
	if cached, ok := l.cache.Load(subPath); ok {
		return cached, nil
	}
	target := factory()
	if err := l.Load(subPath, target); err != nil {
		return nil, err
	}
	actual, _ := l.cache.LoadOrStore(subPath, target)
	return actual, nil
}

// ClearCache drops every cached configuration.
func (l *Loader) ClearCache() {
	l.cache.Range(func(key, _ any) bool {
		l.cache.Delete(key)
		return true
	})
}
