package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
	"github.com/pelletier/go-toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execRoot runs the root command with args and returns stdout and stderr.
func execRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rc := NewRootCommand(strings.NewReader(""), &stdout, &stderr)
	rc.SetArgs(args)
	err := rc.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	out, _, err := execRoot(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "bench")
	assert.Contains(t, out, "generate-config")
}

func TestGenerateConfig(t *testing.T) {
	out, _, err := execRoot(t, "generate-config")
	require.NoError(t, err)

	var got util.Options
	require.NoError(t, toml.Unmarshal([]byte(out), &got))
	assert.Equal(t, util.DefaultOptions(), got)
}

func TestBench(t *testing.T) {
	t.Run("Flags", func(t *testing.T) {
		out, _, err := execRoot(t, "bench",
			"--requests", "300",
			"--buffer-pool-size", "8",
			"--page-size", "128",
			"--max-page-id", "40",
			"--device", "memory",
			"--verify",
			"--policies", "lru,CFLRU,lruwsr,frame,trivial",
			"--log-level", "error",
		)
		require.NoError(t, err)
		for _, p := range []string{"lru", "cflru", "lruwsr", "frame", "trivial"} {
			assert.Contains(t, out, p)
		}
		assert.Contains(t, out, "yes", "verify column")
	})

	t.Run("ConfigFile", func(t *testing.T) {
		dir := t.TempDir()
		metricsPath := filepath.Join(dir, "metrics.txt")
		conf := filepath.Join(dir, "flashbuf.toml")
		require.NoError(t, os.WriteFile(conf, []byte(`
requests = 200
buffer-pool-size = 4
page-size = 64
max-page-id = 20
policies = ["lru", "cflru"]
distribution = "zipf"
device = "file"
data-dir = "`+filepath.ToSlash(filepath.Join(dir, "data"))+`"
write-cost = 10.0
log-level = "error"
metrics-out = "`+filepath.ToSlash(metricsPath)+`"
`), 0o644))

		out, _, err := execRoot(t, "bench", "--config", conf, "--buffer-pool-size", "6")
		require.NoError(t, err)
		assert.Contains(t, out, "cflru")
		assert.Contains(t, out, "384 B", "flag overrides the config file pool size")

		files, err := filepath.Glob(filepath.Join(dir, "data", "*.dat"))
		require.NoError(t, err)
		assert.Len(t, files, 2)

		m, err := os.ReadFile(metricsPath)
		require.NoError(t, err)
		assert.Contains(t, string(m), "flashbuf_buffer_misses_total")
	})

	t.Run("Environment", func(t *testing.T) {
		t.Setenv("FLASHBUF_POLICIES", "lruwsr")
		t.Setenv("FLASHBUF_REQUESTS", "50")
		t.Setenv("FLASHBUF_LOG_LEVEL", "error")
		t.Setenv("FLASHBUF_BUFFER_POOL_SIZE", "4")
		out, _, err := execRoot(t, "bench", "--metrics-out", "-")
		require.NoError(t, err)
		assert.Contains(t, out, "lruwsr")
		assert.NotContains(t, out, "cflru")
		assert.Contains(t, out, `flashbuf_buffer_flushes_total{policy="lruwsr"} 1`)
	})

	t.Run("InvalidOptionInConfig", func(t *testing.T) {
		conf := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(conf, []byte("pool = 3\n"), 0o644))
		_, _, err := execRoot(t, "bench", "--config", conf)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown option "pool"`)
	})

	t.Run("LargestPageID", func(t *testing.T) {
		out, _, err := execRoot(t, "bench",
			"--requests", "50",
			"--max-page-id", "18446744073709551615",
			"--device", "memory",
			"--verify",
			"--policies", "lru",
			"--log-level", "error",
		)
		require.NoError(t, err)
		assert.Contains(t, out, "yes")
	})

	t.Run("InvalidWindow", func(t *testing.T) {
		_, _, err := execRoot(t, "bench", "--buffer-pool-size", "4", "--cflru-window", "4", "--log-level", "error")
		assert.ErrorIs(t, err, util.ErrInvalidConfiguration)
	})

	t.Run("VerifyNeedsMemoryDevice", func(t *testing.T) {
		_, _, err := execRoot(t, "bench", "--requests", "10", "--verify", "--log-level", "error")
		assert.ErrorIs(t, err, util.ErrInvalidConfiguration)
	})
}
