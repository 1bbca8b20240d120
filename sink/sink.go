// Package sink persists test case metrics.
//
// One Record is written per metric (MSE, and AUC for binary classification)
// of every passed positive test case.
package sink

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
)

// Metric names written to the sink.
const (
	MetricMSE = "MSE"
	MetricAUC = "AUC"
)

// Record is one persisted metric value.
type Record struct {
	RunID             uuid.UUID `db:"run_id"`
	TestcaseID        string    `db:"testcase_id"`
	Algorithm         string    `db:"algorithm"`
	TrainDatasetID    string    `db:"train_dataset_id"`
	ValidateDatasetID string    `db:"validate_dataset_id"`
	Description       string    `db:"description"`
	MetricName        string    `db:"metric_name"`
	MetricValue       float64   `db:"metric_value"`
	TunedOrDefaults   string    `db:"tuned_or_defaults"`
	CreatedAt         time.Time `db:"created_at"`
}

// Sink receives metric records.
type Sink interface {
	Save(ctx context.Context, rec Record) error
	Close() error
}

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var schemas = map[string]string{
	DriverPostgres: `
		CREATE TABLE IF NOT EXISTS testng_results (
			id BIGSERIAL PRIMARY KEY,
			run_id UUID NOT NULL,
			testcase_id TEXT NOT NULL,
			algorithm TEXT NOT NULL,
			train_dataset_id TEXT NOT NULL,
			validate_dataset_id TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			metric_name TEXT NOT NULL,
			metric_value DOUBLE PRECISION NOT NULL,
			tuned_or_defaults TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	DriverSQLite: `
		CREATE TABLE IF NOT EXISTS testng_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			testcase_id TEXT NOT NULL,
			algorithm TEXT NOT NULL,
			train_dataset_id TEXT NOT NULL,
			validate_dataset_id TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			metric_name TEXT NOT NULL,
			metric_value REAL NOT NULL,
			tuned_or_defaults TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
}

// SQLSink writes records to a testng_results table.
type SQLSink struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the database and verifies the connection.
func Open(driver, dsn string) (*SQLSink, error) {
	if _, ok := schemas[driver]; !ok {
		return nil, errors.NewValidationError("database.driver", "must be postgres or sqlite3", driver)
	}
	if dsn == "" {
		return nil, errors.NewValidationError("database.dsn", "is required", dsn)
	}
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", driver)
	}
	return &SQLSink{db: db, driver: driver}, nil
}

// NewSQLSink wraps an existing connection.
func NewSQLSink(db *sqlx.DB) *SQLSink {
	return &SQLSink{db: db, driver: db.DriverName()}
}

// Migrate creates the results table when it does not exist.
func (s *SQLSink) Migrate(ctx context.Context) error {
	ddl, ok := schemas[s.driver]
	if !ok {
		return errors.Newf("no schema for driver %s", s.driver)
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return errors.Wrap(err, "failed to create testng_results")
	}
	return nil
}

// Save inserts one record. A zero CreatedAt is set to now.
func (s *SQLSink) Save(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO testng_results (
			run_id, testcase_id, algorithm, train_dataset_id, validate_dataset_id,
			description, metric_name, metric_value, tuned_or_defaults, created_at
		) VALUES (
			:run_id, :testcase_id, :algorithm, :train_dataset_id, :validate_dataset_id,
			:description, :metric_name, :metric_value, :tuned_or_defaults, :created_at
		)
	`, rec)
	if err != nil {
		return errors.Wrapf(err, "failed to save %s of testcase %s", rec.MetricName, rec.TestcaseID)
	}
	return nil
}

// Results returns the records of a run in insertion order.
func (s *SQLSink) Results(ctx context.Context, runID uuid.UUID) ([]Record, error) {
	var out []Record
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`
		SELECT run_id, testcase_id, algorithm, train_dataset_id, validate_dataset_id,
		       description, metric_name, metric_value, tuned_or_defaults, created_at
		FROM testng_results
		WHERE run_id = ?
		ORDER BY id
	`), runID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read results")
	}
	return out, nil
}

// Close closes the database connection.
func (s *SQLSink) Close() error {
	return s.db.Close()
}

// MemorySink keeps records in memory. It is used for dry runs.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Save appends rec.
func (m *MemorySink) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Records returns a copy of the saved records.
func (m *MemorySink) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}

// Close is a no-op.
func (m *MemorySink) Close() error { return nil }

var (
	_ Sink = (*SQLSink)(nil)
	_ Sink = (*MemorySink)(nil)
)
