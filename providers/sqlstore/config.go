package sqlstore

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/oklahomer/go-kasumi/retry"
	"regexp"
	"time"
)

const (
	// SQLite selects modernc.org/sqlite.
	SQLite = "sqlite"

	// Postgres selects github.com/lib/pq.
	Postgres = "postgres"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config contains some configuration variables for the SQL Provider.
// Every addons table lives in the single SQL table named by Table, keyed by (tbl, id).
type Config struct {
	Driver       string        `json:"driver" yaml:"driver"`
	DSN          string        `json:"dsn" yaml:"dsn"`
	Table        string        `json:"table" yaml:"table"`
	ConnectRetry *retry.Policy `json:"connect_retry" yaml:"connect_retry"`
}

// NewConfig returns initialized Config struct with default settings.
// DSN points to an in-memory SQLite database at this point.
func NewConfig() *Config {
	return &Config{
		Driver: SQLite,
		DSN:    ":memory:",
		Table:  "documents",
		ConnectRetry: &retry.Policy{
			Trial:    5,
			Interval: 2 * time.Second,
		},
	}
}

// Validate checks the given values before any connection is made.
// Table is interpolated into queries, so only a plain identifier is accepted.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(SQLite, Postgres)),
		validation.Field(&c.DSN, validation.Required),
		validation.Field(&c.Table, validation.Required, validation.Match(tableNamePattern)),
	)
}
