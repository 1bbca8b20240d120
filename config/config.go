// Package config loads the harness configuration.
//
// Values are layered: built-in defaults, then the YAML file, then TESTNG_*
// environment variables (optionally read from a .env file). The result is
// checked against an embedded JSON schema.
package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
	"github.com/YuminosukeSato/scigo-testng/pkg/log"
	"github.com/YuminosukeSato/scigo-testng/testng"
)

//go:embed schema.json
var schemaJSON []byte

// Environment variables that override the file.
const (
	EnvDBDriver  = "TESTNG_DB_DRIVER"
	EnvDBDSN     = "TESTNG_DB_DSN"
	EnvSize      = "TESTNG_SIZE"
	EnvAlgorithm = "TESTNG_ALGORITHM"
	EnvLogLevel  = "TESTNG_LOG_LEVEL"
)

// DefaultDir is where the default tables and datasets live.
const DefaultDir = "testng/testdata"

// Tables locates the positive and negative tables of one algorithm.
type Tables struct {
	HeaderRow int    `yaml:"header_row" json:"header_row"`
	Positive  string `yaml:"positive" json:"positive"`
	Negative  string `yaml:"negative" json:"negative"`
}

type Database struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
}

type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Report holds output paths. Empty paths are skipped.
type Report struct {
	Markdown string `yaml:"markdown" json:"markdown"`
	HTML     string `yaml:"html" json:"html"`
	Plot     string `yaml:"plot" json:"plot"`
}

// Config is the harness configuration.
type Config struct {
	Characteristics string            `yaml:"characteristics" json:"characteristics"`
	DataRoot        string            `yaml:"data_root" json:"data_root"`
	Size            string            `yaml:"size" json:"size"`
	Algorithm       string            `yaml:"algorithm" json:"algorithm"`
	Algorithms      map[string]Tables `yaml:"algorithms" json:"algorithms"`
	Database        Database          `yaml:"database" json:"database"`
	Log             Log               `yaml:"log" json:"log"`
	Report          Report            `yaml:"report" json:"report"`
}

// Default returns the built-in configuration.
func Default() *Config {
	tables := make(map[string]Tables, 3)
	for _, alg := range testng.Algorithms() {
		tables[alg.String()] = defaultTables(alg.String())
	}
	return &Config{
		Characteristics: filepath.Join(DefaultDir, "datasetCharacteristics.csv"),
		DataRoot:        filepath.Join(DefaultDir, "data"),
		Algorithms:      tables,
		Database:        Database{Driver: "sqlite3", DSN: "testng.db"},
		Log:             Log{Level: "info", Format: "console"},
	}
}

func defaultTables(alg string) Tables {
	dir := filepath.Join(DefaultDir, "tables")
	return Tables{
		HeaderRow: 2,
		Positive:  filepath.Join(dir, alg+"_positive.csv"),
		Negative:  filepath.Join(dir, alg+"_negative.csv"),
	}
}

// Load reads path over the defaults, applies the environment and validates
// the result. An empty path means defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := cfg.merge(raw); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// merge decodes raw over c. Algorithm entries replace the default entry
// field by field, so a file may set only header_row.
func (c *Config) merge(raw []byte) error {
	defaults := c.Algorithms
	c.Algorithms = nil
	if err := yaml.Unmarshal(raw, c); err != nil {
		return err
	}
	merged := make(map[string]Tables, len(defaults))
	for name, t := range defaults {
		merged[name] = t
	}
	for name, t := range c.Algorithms {
		base, ok := merged[name]
		if !ok {
			merged[name] = t
			continue
		}
		if t.HeaderRow != 0 {
			base.HeaderRow = t.HeaderRow
		}
		if t.Positive != "" {
			base.Positive = t.Positive
		}
		if t.Negative != "" {
			base.Negative = t.Negative
		}
		merged[name] = base
	}
	c.Algorithms = merged
	return nil
}

// LoadEnvFile loads a .env file into the process environment. A missing
// file is not an error. Variables already set win.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "load %s", path)
	}
	log.GetLoggerWithName("testng.config").Debug("env file loaded", log.FilePathKey, path)
	return nil
}

// ApplyEnv overrides fields from the TESTNG_* variables. Empty values are
// ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvDBDriver, &c.Database.Driver)
	set(EnvDBDSN, &c.Database.DSN)
	set(EnvSize, &c.Size)
	set(EnvAlgorithm, &c.Algorithm)
	set(EnvLogLevel, &c.Log.Level)
	c.Algorithm = strings.ToLower(c.Algorithm)
	c.Log.Level = strings.ToLower(c.Log.Level)
}

// Validate checks c against the embedded schema and reports every
// violation at once.
func (c *Config) Validate() error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(c),
	)
	if err != nil {
		return errors.Wrap(err, "validate config")
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	sort.Strings(msgs)
	return errors.NewValidationError("config", strings.Join(msgs, "; "), len(msgs))
}

// AlgorithmSpecs returns the table locations in algorithm order.
func (c *Config) AlgorithmSpecs() []testng.AlgorithmSpec {
	specs := make([]testng.AlgorithmSpec, 0, len(c.Algorithms))
	for _, alg := range testng.Algorithms() {
		t, ok := c.Algorithms[alg.String()]
		if !ok {
			continue
		}
		specs = append(specs, testng.AlgorithmSpec{
			Algorithm: alg,
			HeaderRow: t.HeaderRow,
			Positive:  t.Positive,
			Negative:  t.Negative,
		})
	}
	return specs
}

// SelectedAlgorithm parses the algorithm filter. Empty selects all.
func (c *Config) SelectedAlgorithm() (testng.Algorithm, error) {
	return testng.ParseAlgorithm(c.Algorithm)
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (log.Level, error) {
	return log.ParseLevel(c.Log.Level)
}
