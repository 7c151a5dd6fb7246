// Package valkey provides addons.Provider backed by Valkey or any Redis-compatible server.
//
// Each table is one hash stored at "<prefix>:<table>", with a document id as the hash field
// and the JSON serialized document as its value.
package valkey

import (
	"context"
	"fmt"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-kasumi/retry"
	"github.com/oklahomer/go-sarah-addons"
	valkeylib "github.com/valkey-io/valkey-go"
	"sort"
	"strings"
	"time"
)

// Config contains some configuration variables for the Valkey Provider.
type Config struct {
	Address      string        `json:"address" yaml:"address"`
	Password     string        `json:"password" yaml:"password"`
	DB           int           `json:"db" yaml:"db"`
	KeyPrefix    string        `json:"key_prefix" yaml:"key_prefix"`
	ConnectRetry *retry.Policy `json:"connect_retry" yaml:"connect_retry"`
}

// NewConfig returns initialized Config struct with default settings.
func NewConfig() *Config {
	return &Config{
		Address:   "127.0.0.1:6379",
		Password:  "",
		DB:        0,
		KeyPrefix: "sarah",
		ConnectRetry: &retry.Policy{
			Trial:    5,
			Interval: 1 * time.Second,
		},
	}
}

// Validate checks the given values before any connection is made.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Address, validation.Required),
		validation.Field(&c.DB, validation.Min(0)),
	)
}

// Provider stores documents in Valkey hashes.
type Provider struct {
	client valkeylib.Client
	prefix string
}

var _ addons.Provider = (*Provider)(nil)

// New creates a client and pings the server until Config.ConnectRetry gives up.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid valkey configuration: %w", err)
	}

	// Client side caching is not used, and it requires CLIENT TRACKING on the server.
	opts := valkeylib.ClientOption{
		InitAddress:  []string{config.Address},
		SelectDB:     config.DB,
		DisableCache: true,
	}
	if config.Password != "" {
		opts.Password = config.Password
	}

	var client valkeylib.Client
	policy := config.ConnectRetry
	if policy == nil {
		policy = &retry.Policy{Trial: 1}
	}
	err := retry.WithPolicy(policy, func() error {
		c, e := valkeylib.NewClient(opts)
		if e != nil {
			logger.Warnf("Failed to connect to valkey at %s: %s", config.Address, e.Error())
			return e
		}

		if e = c.Do(ctx, c.B().Ping().Build()).Error(); e != nil {
			c.Close()
			logger.Warnf("Failed to ping valkey at %s: %s", config.Address, e.Error())
			return e
		}

		client = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}

	logger.Infof("Connected to valkey at %s.", config.Address)
	return NewWithClient(client, config.KeyPrefix), nil
}

// NewWithClient creates Provider with an already connected client.
func NewWithClient(client valkeylib.Client, keyPrefix string) *Provider {
	return &Provider{
		client: client,
		prefix: strings.TrimSuffix(keyPrefix, ":"),
	}
}

func (p *Provider) key(table string) string {
	if p.prefix == "" {
		return table
	}
	return p.prefix + ":" + table
}

// HasTable tells if the hash for the table exists.
func (p *Provider) HasTable(ctx context.Context, table string) (bool, error) {
	count, err := p.client.Do(ctx, p.client.B().Exists().Key(p.key(table)).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return count > 0, nil
}

// CreateTable does nothing since a hash is created with its first field.
func (p *Provider) CreateTable(_ context.Context, _ string) error {
	return nil
}

// DeleteTable removes the hash for the table.
func (p *Provider) DeleteTable(ctx context.Context, table string) error {
	err := p.client.Do(ctx, p.client.B().Del().Key(p.key(table)).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to delete table %s: %w", table, err)
	}
	return nil
}

// GetKeys returns the ids of the documents in the table in ascending order.
func (p *Provider) GetKeys(ctx context.Context, table string) ([]string, error) {
	keys, err := p.client.Do(ctx, p.client.B().Hkeys().Key(p.key(table)).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys in %s: %w", table, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Get returns the stored document with its id packed in.
func (p *Provider) Get(ctx context.Context, table string, id string) (addons.Document, error) {
	value, err := p.client.Do(ctx, p.client.B().Hget().Key(p.key(table)).Field(id).Build()).ToString()
	if valkeylib.IsValkeyNil(err) {
		return nil, addons.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", table, id, err)
	}

	doc, err := addons.DecodeDocument([]byte(value))
	if err != nil {
		return nil, err
	}
	return addons.PackData(doc, id), nil
}

// Has tells if the document exists.
func (p *Provider) Has(ctx context.Context, table string, id string) (bool, error) {
	exists, err := p.client.Do(ctx, p.client.B().Hexists().Key(p.key(table)).Field(id).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to check %s/%s: %w", table, id, err)
	}
	return exists == 1, nil
}

// Create stores the document, overwriting any existing one with the same id.
func (p *Provider) Create(ctx context.Context, table string, id string, doc addons.Document) error {
	b, err := addons.EncodeDocument(doc)
	if err != nil {
		return err
	}
	return p.write(ctx, table, id, b)
}

// Update is a plain read-merge-write: a concurrent writer to the same document may be overwritten.
func (p *Provider) Update(ctx context.Context, table string, id string, doc addons.Document) error {
	stored, err := p.Get(ctx, table, id)
	if err != nil {
		return err
	}
	delete(stored, addons.IDField)

	b, err := addons.EncodeDocument(addons.MergeDocument(stored, addons.NormalizeDocument(doc)))
	if err != nil {
		return err
	}
	return p.write(ctx, table, id, b)
}

// Replace is equivalent to Create.
func (p *Provider) Replace(ctx context.Context, table string, id string, doc addons.Document) error {
	return p.Create(ctx, table, id, doc)
}

// Delete removes the document. A missing document is not an error.
func (p *Provider) Delete(ctx context.Context, table string, id string) error {
	err := p.client.Do(ctx, p.client.B().Hdel().Key(p.key(table)).Field(id).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", table, id, err)
	}
	return nil
}

// GetAll returns the documents in the table, narrowed down by filter when it is not empty.
func (p *Provider) GetAll(ctx context.Context, table string, filter []string) ([]addons.Document, error) {
	entries, err := p.client.Do(ctx, p.client.B().Hgetall().Key(p.key(table)).Build()).AsStrMap()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents in %s: %w", table, err)
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]addons.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := addons.DecodeDocument([]byte(entries[id]))
		if err != nil {
			return nil, err
		}
		docs = append(docs, addons.PackData(doc, id))
	}

	return addons.FilterDocuments(docs, filter), nil
}

// Close closes the underlying client.
func (p *Provider) Close() error {
	p.client.Close()
	return nil
}

func (p *Provider) write(ctx context.Context, table string, id string, b []byte) error {
	cmd := p.client.B().Hset().Key(p.key(table)).FieldValue().FieldValue(id, string(b)).Build()
	if err := p.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", table, id, err)
	}
	return nil
}
