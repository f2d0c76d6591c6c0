package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/graft/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "manual", cfg.Requirements)
	assert.Equal(t, "root", cfg.RootScope)
	assert.False(t, cfg.Metrics.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
requirements: contract
root_scope: app
logging:
  level: debug
  format: console
metrics:
  enabled: true
  namespace: demo
`))
	require.NoError(t, err)

	assert.Equal(t, "contract", cfg.Requirements)
	assert.Equal(t, "app", cfg.RootScope)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "demo", cfg.Metrics.Namespace)
}

func TestParse_EmptyKeepsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown mode", "requirements: lenient"},
		{"unknown level", "logging:\n  level: loud"},
		{"unknown format", "logging:\n  format: xml"},
		{"missing namespace", "metrics:\n  enabled: true\n  namespace: \"\""},
		{"unknown field", "scopes: 3"},
		{"malformed", "requirements: [manual"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.IsInvalidConfig(err), "got %v", err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graft.yaml")
	require.NoError(t, os.WriteFile(path, []byte("requirements: contract\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "contract", cfg.Requirements)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.IsInvalidConfig(err))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "graft.yaml"),
		[]byte("requirements: contract\nlogging:\n  level: warn\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "graft.local.yaml"),
		[]byte("logging:\n  level: debug\n"), 0o600))

	dc := DefaultDiscoveryConfig()
	dc.Start = nested

	cfg, path, err := Discover(dc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "graft.yaml"), path)
	assert.Equal(t, "contract", cfg.Requirements)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestDiscover_NotFound(t *testing.T) {
	dc := DefaultDiscoveryConfig()
	dc.Start = t.TempDir()
	dc.MaxDepth = 0

	cfg, path, err := Discover(dc)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, Default(), cfg)
}

func TestDiscover_DepthLimit(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "graft.yml"), []byte("requirements: contract\n"), 0o600))

	dc := DefaultDiscoveryConfig()
	dc.Start = nested
	dc.MaxDepth = 1

	_, path, err := Discover(dc)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestDiscover_LocalOnly(t *testing.T) {
	root := t.TempDir()
	local := filepath.Join(root, "graft.local.yaml")
	require.NoError(t, os.WriteFile(local, []byte("logging:\n  level: warn\n"), 0o600))

	dc := DefaultDiscoveryConfig()
	dc.Start = root

	cfg, path, err := Discover(dc)
	require.NoError(t, err)
	assert.Equal(t, local, path)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "manual", cfg.Requirements)
}

func TestDiscover_StrictDecoding(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "graft.yaml"), []byte("requirments: contract\n"), 0o600))

	dc := DefaultDiscoveryConfig()
	dc.Start = root

	_, _, err := Discover(dc)
	require.Error(t, err)
}
