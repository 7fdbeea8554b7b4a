package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/liftcab/pkg/rename"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	l := NewLoader()
	cfg, err := l.Load("")
	require.NoError(t, err)
	assert.Empty(t, l.ConfigFileUsed())

	assert.Equal(t, "reports", cfg.ReportsDir)
	assert.Equal(t, "export", cfg.ExportDir)
	assert.Equal(t, 500*time.Millisecond, cfg.Ready.Interval)
	assert.Equal(t, 60*time.Second, cfg.Ready.Timeout)
	assert.True(t, cfg.Ledger.Enabled)
	assert.Equal(t, DefaultLedgerPath, cfg.Ledger.Path)
	assert.Equal(t, rename.DefaultConventions(), cfg.Conventions())
}

func TestLoadFileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, DefaultConfigFile, `
export_dir: /srv/out
ready:
  interval: 100ms
  timeout: 5s
naming:
  assembly_suffix: ASM
  length_keys: [Lx]
  rework_color: 0xFF0000
ledger:
  enabled: false
`)

	l := NewLoader()
	cfg, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigFile, filepath.Base(l.ConfigFileUsed()))

	assert.Equal(t, "/srv/out", cfg.ExportDir)
	assert.Equal(t, "reports", cfg.ReportsDir)
	assert.Equal(t, 100*time.Millisecond, cfg.ReadyPolicy().Interval)
	assert.Equal(t, 5*time.Second, cfg.ReadyPolicy().Timeout)
	assert.False(t, cfg.Ledger.Enabled)

	conv := cfg.Conventions()
	assert.Equal(t, "ASM", conv.AssemblySuffix)
	assert.Equal(t, []string{"Lx"}, conv.LengthKeys)
	assert.Equal(t, 0xFF0000, conv.ReworkColor)
	assert.Equal(t, "Smm", conv.SheetMetalMarker)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yaml", "export_dir: from-file\n")
	t.Setenv("LIFTCAB_EXPORT_DIR", "from-env")
	t.Setenv("LIFTCAB_READY_TIMEOUT", "2m")

	cfg, err := NewLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.ExportDir)
	assert.Equal(t, 2*time.Minute, cfg.Ready.Timeout)
}

func TestExplicitFileMustExist(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"interval", "ready:\n  interval: 0s\n"},
		{"timeout", "ready:\n  interval: 2s\n  timeout: 1s\n"},
		{"ledger", "ledger:\n  path: \"\"\n"},
		{"extension", "naming:\n  flat_pattern_ext: dxf\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "c.yaml", tt.yaml)
			_, err := NewLoader().Load(path)
			assert.ErrorContains(t, err, "invalid configuration")
		})
	}
}
