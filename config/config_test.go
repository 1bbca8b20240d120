package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
	"github.com/YuminosukeSato/scigo-testng/pkg/log"
	"github.com/YuminosukeSato/scigo-testng/testng"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func noEnv(string) (string, bool) { return "", false }

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	specs := cfg.AlgorithmSpecs()
	require.Len(t, specs, 3)
	assert.Equal(t, testng.DRF, specs[0].Algorithm)
	assert.Equal(t, testng.GLM, specs[2].Algorithm)
	for _, s := range specs {
		assert.Equal(t, 2, s.HeaderRow)
		assert.Equal(t, filepath.Join(DefaultDir, "tables", s.Algorithm.String()+"_positive.csv"), s.Positive)
	}
}

func TestDefault_PathsExistFromModuleRoot(t *testing.T) {
	cfg := Default()
	paths := []string{cfg.Characteristics, cfg.DataRoot}
	for _, s := range cfg.AlgorithmSpecs() {
		paths = append(paths, s.Positive, s.Negative)
	}
	for _, p := range paths {
		// テストは config/ で実行されるのでモジュールルートから辿る
		_, err := os.Stat(filepath.Join("..", p))
		assert.NoError(t, err, p)
	}
}

func TestLoad_MergesFile(t *testing.T) {
	path := writeFile(t, "testng.yaml", `
characteristics: chars.csv
data_root: /data
size: smalldata
algorithm: GLM
algorithms:
  glm:
    header_row: 1
  gbm:
    positive: gbm.xlsx
database:
  driver: postgres
  dsn: postgres://localhost/testng
report:
  markdown: out/report.md
`)
	cfg := Default()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.merge(raw))
	cfg.ApplyEnv(noEnv)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "chars.csv", cfg.Characteristics)
	assert.Equal(t, "smalldata", cfg.Size)

	alg, err := cfg.SelectedAlgorithm()
	require.NoError(t, err)
	assert.Equal(t, testng.GLM, alg)

	want := map[string]Tables{
		"drf": defaultTables("drf"),
		"gbm": {HeaderRow: 2, Positive: "gbm.xlsx", Negative: defaultTables("gbm").Negative},
		"glm": {HeaderRow: 1, Positive: defaultTables("glm").Positive, Negative: defaultTables("glm").Negative},
	}
	if diff := cmp.Diff(want, cfg.Algorithms); diff != "" {
		t.Errorf("algorithms mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Database{Driver: "postgres", DSN: "postgres://localhost/testng"}, cfg.Database)
	assert.Equal(t, "out/report.md", cfg.Report.Markdown)
	assert.Equal(t, "info", cfg.Log.Level, "unset keys keep their default")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "algorithms: [1, 2"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvDBDriver:  "postgres",
		EnvDBDSN:     "postgres://ci/testng",
		EnvSize:      "bigdata",
		EnvAlgorithm: "DRF",
		EnvLogLevel:  "",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://ci/testng", cfg.Database.DSN)
	assert.Equal(t, "bigdata", cfg.Size)
	assert.Equal(t, "drf", cfg.Algorithm)
	assert.Equal(t, "info", cfg.Log.Level, "empty values are ignored")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv(EnvSize, "bigdata")
	t.Setenv(EnvLogLevel, "DEBUG")
	cfg, err := Load(writeFile(t, "testng.yaml", "size: smalldata\n"))
	require.NoError(t, err)
	assert.Equal(t, "bigdata", cfg.Size)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, log.LevelDebug, level)
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env")))

	t.Setenv(EnvDBDSN, "")
	require.NoError(t, os.Unsetenv(EnvDBDSN))
	require.NoError(t, LoadEnvFile(writeFile(t, ".env", EnvDBDSN+"=file:from-env.db\n")))
	assert.Equal(t, "file:from-env.db", os.Getenv(EnvDBDSN))
}

func TestValidate_ReportsAllViolations(t *testing.T) {
	cfg := Default()
	cfg.Algorithm = "knn"
	cfg.Database.Driver = "mysql"
	cfg.Log.Format = "xml"
	cfg.Algorithms["glm"] = Tables{HeaderRow: 0}

	err := cfg.Validate()
	var verr *errors.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, 4, verr.Value)
	for _, field := range []string{"algorithm", "database.driver", "log.format", "header_row"} {
		assert.Contains(t, verr.Reason, field)
	}
}
