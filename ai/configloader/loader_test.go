package configloader

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type judgeConfig struct {
	System string  `yaml:"system"`
	User   string  `yaml:"user"`
	Margin float64 `yaml:"margin"`
}

var defaults = fstest.MapFS{
	"judge.yaml": {Data: []byte("system: pick one\nuser: \"{{.Question}}\"\nmargin: 1.5\n")},
}

func TestLoader_DefaultsOnly(t *testing.T) {
	var cfg judgeConfig
	require.NoError(t, NewLoader("", defaults).Load("judge.yaml", &cfg))
	assert.Equal(t, "pick one", cfg.System)
	assert.Equal(t, 1.5, cfg.Margin)
}

func TestLoader_OverrideMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "judge.yaml"), []byte("margin: 2.5\n"), 0o600))

	var cfg judgeConfig
	require.NoError(t, NewLoader(dir, defaults).Load("judge.yaml", &cfg))
	assert.Equal(t, "pick one", cfg.System, "unset fields keep defaults")
	assert.Equal(t, 2.5, cfg.Margin)
}

func TestLoader_Missing(t *testing.T) {
	var cfg judgeConfig
	err := NewLoader(t.TempDir(), defaults).Load("nope.yaml", &cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestLoader_Malformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "judge.yaml"), []byte("margin: [unclosed\n"), 0o600))

	var cfg judgeConfig
	assert.Error(t, NewLoader(dir, defaults).Load("judge.yaml", &cfg))
}

func TestLoader_LoadCached(t *testing.T) {
	l := NewLoader("", defaults)
	calls := 0
	factory := func() any { calls++; return &judgeConfig{} }

	first, err := l.LoadCached("judge.yaml", factory)
	require.NoError(t, err)
	second, err := l.LoadCached("judge.yaml", factory)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)

	l.ClearCache()
	_, err = l.LoadCached("judge.yaml", factory)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
