package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Empty(t, cfg.ReportDir)
	assert.False(t, cfg.AllowNonHubble)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hubblescan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
key: cd15a5abc060b67288a61e44e995ba77
timeout: 2500ms
allow_non_hubble: true
metrics_addr: ":9090"
record: session.pcap
report_dir: reports
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "cd15a5abc060b67288a61e44e995ba77", cfg.Key)
	assert.Equal(t, 2500*time.Millisecond, cfg.Timeout)
	assert.True(t, cfg.AllowNonHubble)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, "session.pcap", cfg.Record)
	assert.Equal(t, "reports", cfg.ReportDir)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("timeout: [1, 2"))
	assert.Error(t, err)
}
