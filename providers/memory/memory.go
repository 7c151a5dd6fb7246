// Package memory provides an in-process addons.Provider on top of go-cache.
// Stored documents live only as long as the process does, so this is meant for tests and single-node trials.
package memory

import (
	"context"
	"errors"
	"fmt"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah-addons"
	"github.com/patrickmn/go-cache"
	"sort"
	"strings"
	"sync"
	"time"
)

const keySeparator = "\x00"

// Config contains some configuration variables for the in-memory Provider.
// Zero ExpiresIn keeps documents until they are deleted.
type Config struct {
	ExpiresIn       time.Duration `json:"expires_in" yaml:"expires_in"`
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
}

// NewConfig creates and returns new Config instance with default settings.
// Use json.Unmarshal, yaml.Unmarshal, or manual manipulation to overload default values.
func NewConfig() *Config {
	return &Config{
		ExpiresIn:       0,
		CleanupInterval: 10 * time.Minute,
	}
}

// Provider stores documents in go-cache.
// Each document is kept in its serialized form so a caller never shares a map with the store.
type Provider struct {
	cache *cache.Cache

	// Guards read-modify-write on Update.
	mutex sync.Mutex
}

var _ addons.Provider = (*Provider)(nil)

// New creates and returns new Provider instance.
func New(config *Config) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config is not given")
	}

	expiresIn := config.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = cache.NoExpiration
	}

	return &Provider{
		cache: cache.New(expiresIn, config.CleanupInterval),
	}, nil
}

func cacheKey(table string, id string) string {
	return table + keySeparator + id
}

func tablePrefix(table string) string {
	return table + keySeparator
}

// HasTable tells if at least one document is stored under the table.
func (p *Provider) HasTable(_ context.Context, table string) (bool, error) {
	prefix := tablePrefix(table)
	for key := range p.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			return true, nil
		}
	}
	return false, nil
}

// CreateTable does nothing since a table comes into existence with its first document.
func (p *Provider) CreateTable(_ context.Context, _ string) error {
	return nil
}

// DeleteTable removes every document stored under the table.
func (p *Provider) DeleteTable(_ context.Context, table string) error {
	prefix := tablePrefix(table)
	deleted := 0
	for key := range p.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			p.cache.Delete(key)
			deleted++
		}
	}
	logger.Debugf("Deleted %d documents in table %s.", deleted, table)
	return nil
}

// GetKeys returns the ids of the documents in the table in ascending order.
func (p *Provider) GetKeys(_ context.Context, table string) ([]string, error) {
	prefix := tablePrefix(table)
	keys := []string{}
	for key := range p.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, strings.TrimPrefix(key, prefix))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Get returns the stored document with its id packed in.
func (p *Provider) Get(_ context.Context, table string, id string) (addons.Document, error) {
	doc, err := p.read(table, id)
	if err != nil {
		return nil, err
	}
	return addons.PackData(doc, id), nil
}

// Has tells if the document exists.
func (p *Provider) Has(_ context.Context, table string, id string) (bool, error) {
	_, ok := p.cache.Get(cacheKey(table, id))
	return ok, nil
}

// Create stores the document, overwriting any existing one with the same id.
func (p *Provider) Create(_ context.Context, table string, id string, doc addons.Document) error {
	return p.write(table, id, doc)
}

// Update merges the given fields into the stored document.
func (p *Provider) Update(_ context.Context, table string, id string, doc addons.Document) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	stored, err := p.read(table, id)
	if err != nil {
		return err
	}

	return p.write(table, id, addons.MergeDocument(stored, addons.NormalizeDocument(doc)))
}

// Replace is equivalent to Create.
func (p *Provider) Replace(ctx context.Context, table string, id string, doc addons.Document) error {
	return p.Create(ctx, table, id, doc)
}

// Delete removes the document. A missing document is not an error.
func (p *Provider) Delete(_ context.Context, table string, id string) error {
	p.cache.Delete(cacheKey(table, id))
	return nil
}

// GetAll returns the documents in the table, narrowed down by filter when it is not empty.
func (p *Provider) GetAll(ctx context.Context, table string, filter []string) ([]addons.Document, error) {
	keys, err := p.GetKeys(ctx, table)
	if err != nil {
		return nil, err
	}

	docs := make([]addons.Document, 0, len(keys))
	for _, id := range keys {
		doc, err := p.read(table, id)
		if errors.Is(err, addons.ErrDocumentNotFound) {
			// Expired or deleted between the key listing and this read.
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, addons.PackData(doc, id))
	}

	return addons.FilterDocuments(docs, filter), nil
}

// Close flushes all stored documents.
func (p *Provider) Close() error {
	p.cache.Flush()
	return nil
}

func (p *Provider) read(table string, id string) (addons.Document, error) {
	val, ok := p.cache.Get(cacheKey(table, id))
	if !ok || val == nil {
		return nil, fmt.Errorf("%w: %s/%s", addons.ErrDocumentNotFound, table, id)
	}

	switch v := val.(type) {
	case []byte:
		return addons.DecodeDocument(v)
	default:
		return nil, fmt.Errorf("cached value has illegal type of %T", v)
	}
}

func (p *Provider) write(table string, id string, doc addons.Document) error {
	b, err := addons.EncodeDocument(doc)
	if err != nil {
		return err
	}
	p.cache.Set(cacheKey(table, id), b, cache.DefaultExpiration)
	return nil
}
