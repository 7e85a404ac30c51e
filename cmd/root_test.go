package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/motionsync-go/internal/buildinfo"
	"github.com/tphakala/motionsync-go/internal/conf"
	"github.com/tphakala/motionsync-go/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	ctx := conf.NewContext(buildinfo.NewContext("0.1.0-test", "2026-10-19", "cafe"))
	root := RootCommand(ctx)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// The root command installs the global logger, so these tests do not run in parallel.

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "motionsync-go 0.1.0-test (commit cafe, built 2026-10-19")
	assert.Contains(t, out, "cpu: ")
}

func TestReplayCommand(t *testing.T) {
	dir := t.TempDir()
	doc, err := os.ReadFile("../internal/motionsync/data/testdata/basic.motionsync3.json")
	require.NoError(t, err)
	docPath := filepath.Join(dir, "basic.motionsync3.json")
	require.NoError(t, os.WriteFile(docPath, doc, 0o600))

	wavPath := filepath.Join(dir, "a.wav")
	testutil.WriteWAV(t, afero.NewOsFs(), wavPath, 16000, 16, 1, testutil.Tones(16000, 0.5, 0.3, 800, 1200))

	cfg := writeConfig(t, dir, "logging:\n  default_level: error\n  console:\n    enabled: true\n    level: error\n")
	textfile := filepath.Join(dir, "metrics", "replay.prom")

	out, stderr, err := execute(t, "replay", "--config", cfg,
		"--output", "jsonl", "--framerate", "20",
		"--metrics", "--metrics-textfile", textfile,
		docPath, wavPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 10)
	assert.Contains(t, lines[0], `"frame":0`)
	assert.Contains(t, stderr, "10 frames, 8000 samples at 16000 Hz")

	prom, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "motionsync_operations_total")
}

func TestReplayCommandRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, "replay:\n  framerate: 0\n")

	_, _, err := execute(t, "replay", "--config", cfg, "missing.motionsync3.json", "missing.wav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frame rate")
}

func TestInspectCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, "logging:\n  default_level: error\n")

	out, _, err := execute(t, "inspect", "--config", cfg, "../internal/motionsync/data/testdata/model.model3.json")
	require.NoError(t, err)
	assert.Contains(t, out, "source: basic.motionsync3.json")
	assert.Contains(t, out, "analysis_type: CRI")
	assert.Contains(t, out, "mapping_info:")
}
