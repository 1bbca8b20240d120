package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
)

// writeConfig points a harness config at the repository testdata.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	root, err := filepath.Abs(filepath.Join("..", "..", "testng", "testdata"))
	require.NoError(t, err)
	tables := filepath.Join(root, "tables")
	dir := t.TempDir()

	content := fmt.Sprintf(`characteristics: %s
data_root: %s
algorithms:
  drf: {header_row: 2, positive: %s, negative: %s}
  gbm: {header_row: 2, positive: %s, negative: %s}
  glm: {header_row: 2, positive: %s, negative: %s}
database:
  driver: sqlite3
  dsn: %s
log:
  level: error
%s`,
		filepath.Join(root, "datasetCharacteristics.csv"), filepath.Join(root, "data"),
		filepath.Join(tables, "drf_positive.csv"), filepath.Join(tables, "drf_negative.csv"),
		filepath.Join(tables, "gbm_positive.csv"), filepath.Join(tables, "gbm_negative.csv"),
		filepath.Join(tables, "glm_positive.csv"), filepath.Join(tables, "glm_negative.csv"),
		filepath.Join(dir, "testng.db"), extra)

	path := filepath.Join(dir, "testng.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := root.Execute()
	return out.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var ce cliError
	require.True(t, errors.As(err, &ce), "got %v", err)
	return ce.code
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCommand().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "datasets", "validate"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRun_GLMDryRunWritesReports(t *testing.T) {
	cfg := writeConfig(t, "")
	dir := t.TempDir()
	md := filepath.Join(dir, "report.md")
	html := filepath.Join(dir, "report.html")
	png := filepath.Join(dir, "mse.png")

	out, err := execute(t, "run", "--config", cfg, "--algorithm", "glm", "--dry-run",
		"--report", md, "--html", html, "--plot", png)
	require.NoError(t, err, out)
	assert.Contains(t, out, "glm_1")
	assert.Contains(t, out, "5 testcases, 0 not passed")
	assert.NotContains(t, out, "drf_1")

	for _, path := range []string{md, html, png} {
		info, err := os.Stat(path)
		require.NoError(t, err, path)
		assert.Greater(t, info.Size(), int64(0), path)
	}
	_, err = os.Stat(filepath.Join(filepath.Dir(cfg), "testng.db"))
	assert.True(t, os.IsNotExist(err), "dry run must not open the database")
}

func TestRun_FailuresExitOne(t *testing.T) {
	cfg := writeConfig(t, "")
	out, err := execute(t, "run", "--config", cfg, "--algorithm", "drf")
	require.Error(t, err)
	assert.Equal(t, exitFailed, exitCode(t, err))
	assert.Contains(t, err.Error(), "5 of 9 testcases did not pass")
	assert.Contains(t, out, "NOT IMPL")
	assert.Contains(t, out, "INVALID")

	_, err = os.Stat(filepath.Join(filepath.Dir(cfg), "testng.db"))
	assert.NoError(t, err)
}

func TestRun_SizeFilter(t *testing.T) {
	cfg := writeConfig(t, "size: bigdata\n")
	out, err := execute(t, "run", "--config", cfg, "--algorithm", "drf", "--dry-run")
	require.Error(t, err)
	assert.Contains(t, out, "3 testcases, 3 not passed")
}

func TestRun_UsageErrors(t *testing.T) {
	cfg := writeConfig(t, "")

	_, err := execute(t, "run", "--config", cfg, "--algorithm", "knn", "--dry-run")
	assert.Equal(t, exitUsage, exitCode(t, err))

	_, err = execute(t, "run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, exitUsage, exitCode(t, err))

	_, err = execute(t, "run", "--config", cfg, "--log-format", "xml", "--dry-run")
	assert.Equal(t, exitUsage, exitCode(t, err))
}

func TestDatasets(t *testing.T) {
	out, err := execute(t, "datasets", "--config", writeConfig(t, ""), "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Regexp(t, `1\s+smalldata\s+prostate\.csv\s+CAPSULE\s+true`, out)
	assert.Regexp(t, `3\s+bigdata\s+airlines\.csv\s+\S+\s+false`, out)
}

func TestValidate(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := execute(t, "validate", "--config", cfg, "--algorithm", "gbm")
	require.NoError(t, err, out)
	assert.Contains(t, out, "gbm_n1")

	out, err = execute(t, "validate", "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, exitFailed, exitCode(t, err))
	assert.Contains(t, err.Error(), "5 of 18")
	assert.Contains(t, out, "Only AUTO family is implemented")
}
