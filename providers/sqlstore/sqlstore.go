// Package sqlstore provides addons.Provider backed by SQLite or PostgreSQL.
// Documents are serialized to JSON and stored in one SQL table with a (tbl, id) primary key.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	_ "github.com/lib/pq"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-kasumi/retry"
	"github.com/oklahomer/go-sarah-addons"
	_ "modernc.org/sqlite"
)

// Provider stores documents in a SQL database.
type Provider struct {
	db      *sql.DB
	dialect *dialect
	queries *queries
}

var _ addons.Provider = (*Provider)(nil)

// New opens a database connection with the given Config and prepares the schema.
// The connection is checked with Config.ConnectRetry before the schema is created.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sql configuration: %w", err)
	}

	db, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", config.Driver, err)
	}

	if config.Driver == SQLite {
		// A second connection to :memory: would see a different database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	policy := config.ConnectRetry
	if policy == nil {
		policy = &retry.Policy{Trial: 1}
	}
	err = retry.WithPolicy(policy, func() error {
		e := db.PingContext(ctx)
		if e != nil {
			logger.Warnf("Failed to connect to %s database: %s", config.Driver, e.Error())
		}
		return e
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", config.Driver, err)
	}

	provider, err := NewWithDB(ctx, db, config)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Infof("Connected to %s database.", config.Driver)
	return provider, nil
}

// NewWithDB creates Provider with an already opened database handle and prepares the schema.
// Config.DSN and Config.ConnectRetry are ignored.
func NewWithDB(ctx context.Context, db *sql.DB, config *Config) (*Provider, error) {
	d, ok := dialects[config.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported driver: %s", config.Driver)
	}
	if !tableNamePattern.MatchString(config.Table) {
		return nil, fmt.Errorf("invalid table name: %q", config.Table)
	}

	provider := &Provider{
		db:      db,
		dialect: d,
		queries: buildQueries(d, config.Table),
	}

	if _, err := db.ExecContext(ctx, provider.queries.schema); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", config.Table, err)
	}

	return provider, nil
}

// HasTable tells if at least one document row belongs to the table.
func (p *Provider) HasTable(ctx context.Context, table string) (bool, error) {
	return p.exists(ctx, p.queries.hasTable, table)
}

// CreateTable does nothing since every table shares the schema created by New.
func (p *Provider) CreateTable(_ context.Context, table string) error {
	logger.Debugf("Table %s is ready on %s.", table, p.dialect.name)
	return nil
}

// DeleteTable removes every document row that belongs to the table.
func (p *Provider) DeleteTable(ctx context.Context, table string) error {
	_, err := p.db.ExecContext(ctx, p.queries.dropTable, table)
	if err != nil {
		return fmt.Errorf("failed to delete table %s: %w", table, err)
	}
	return nil
}

// GetKeys returns the ids of the documents in the table.
func (p *Provider) GetKeys(ctx context.Context, table string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, p.queries.keys, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys in %s: %w", table, err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan key in %s: %w", table, err)
		}
		keys = append(keys, id)
	}
	return keys, rows.Err()
}

// Get returns the stored document with its id packed in.
func (p *Provider) Get(ctx context.Context, table string, id string) (addons.Document, error) {
	var data string
	err := p.db.QueryRowContext(ctx, p.queries.get, table, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, addons.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", table, id, err)
	}

	doc, err := addons.DecodeDocument([]byte(data))
	if err != nil {
		return nil, err
	}
	return addons.PackData(doc, id), nil
}

// Has tells if the document exists.
func (p *Provider) Has(ctx context.Context, table string, id string) (bool, error) {
	return p.exists(ctx, p.queries.has, table, id)
}

// Create inserts the document or overwrites the existing row.
func (p *Provider) Create(ctx context.Context, table string, id string, doc addons.Document) error {
	b, err := addons.EncodeDocument(doc)
	if err != nil {
		return err
	}

	_, err = p.db.ExecContext(ctx, p.queries.upsert, table, id, string(b))
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", table, id, err)
	}
	return nil
}

// Update reads, merges and writes the document in one transaction.
func (p *Provider) Update(ctx context.Context, table string, id string, doc addons.Document) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// No-op once committed.
		_ = tx.Rollback()
	}()

	var data string
	err = tx.QueryRowContext(ctx, p.queries.lock, table, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return addons.ErrDocumentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get %s/%s: %w", table, id, err)
	}

	stored, err := addons.DecodeDocument([]byte(data))
	if err != nil {
		return err
	}

	b, err := addons.EncodeDocument(addons.MergeDocument(stored, addons.NormalizeDocument(doc)))
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, p.queries.update, string(b), table, id)
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", table, id, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return addons.ErrDocumentNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit update on %s/%s: %w", table, id, err)
	}
	return nil
}

// Replace is equivalent to Create.
func (p *Provider) Replace(ctx context.Context, table string, id string, doc addons.Document) error {
	return p.Create(ctx, table, id, doc)
}

// Delete removes the document. A missing document is not an error.
func (p *Provider) Delete(ctx context.Context, table string, id string) error {
	_, err := p.db.ExecContext(ctx, p.queries.delete, table, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", table, id, err)
	}
	return nil
}

// GetAll returns the documents in the table, narrowed down by filter when it is not empty.
func (p *Provider) GetAll(ctx context.Context, table string, filter []string) ([]addons.Document, error) {
	rows, err := p.db.QueryContext(ctx, p.queries.all, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents in %s: %w", table, err)
	}
	defer rows.Close()

	docs := []addons.Document{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan document in %s: %w", table, err)
		}

		doc, err := addons.DecodeDocument([]byte(data))
		if err != nil {
			return nil, err
		}
		docs = append(docs, addons.PackData(doc, id))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return addons.FilterDocuments(docs, filter), nil
}

// Close closes the underlying database handle.
func (p *Provider) Close() error {
	return p.db.Close()
}

func (p *Provider) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var one int
	err := p.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
