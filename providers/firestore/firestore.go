// Package firestore provides addons.Provider backed by Cloud Firestore.
// A table is a collection and a document id is the Firestore document id.
package firestore

import (
	"cloud.google.com/go/firestore"
	"context"
	"fmt"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah-addons"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"sort"
)

// Provider stores documents in Cloud Firestore.
type Provider struct {
	client *firestore.Client
}

var _ addons.Provider = (*Provider)(nil)

// New validates the Config and creates the single Firestore client this Provider holds.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid firestore configuration: %w", err)
	}

	opts, err := config.clientOptions()
	if err != nil {
		return nil, err
	}

	client, err := firestore.NewClientWithDatabase(ctx, config.ProjectID, config.DatabaseID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	logger.Infof("Created firestore client for project %s.", config.ProjectID)
	return NewWithClient(client), nil
}

// NewWithClient creates Provider with an already created client.
func NewWithClient(client *firestore.Client) *Provider {
	return &Provider{
		client: client,
	}
}

// HasTable tells if the collection holds at least one document.
func (p *Provider) HasTable(ctx context.Context, table string) (bool, error) {
	snaps, err := p.client.Collection(table).Select().Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", table, err)
	}
	return len(snaps) > 0, nil
}

// CreateTable does nothing since a collection is created with its first document.
func (p *Provider) CreateTable(_ context.Context, _ string) error {
	return nil
}

// DeleteTable does nothing. Firestore offers no single call to drop a collection.
func (p *Provider) DeleteTable(_ context.Context, table string) error {
	logger.Warnf("Collection %s is not deleted. Delete its documents one by one.", table)
	return nil
}

// GetKeys returns the ids of the documents in the collection in ascending order.
func (p *Provider) GetKeys(ctx context.Context, table string) ([]string, error) {
	snaps, err := p.client.Collection(table).Select().Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys in %s: %w", table, err)
	}

	keys := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		keys = append(keys, snap.Ref.ID)
	}
	sort.Strings(keys)
	return keys, nil
}

// Get returns the stored document with its id packed in.
func (p *Provider) Get(ctx context.Context, table string, id string) (addons.Document, error) {
	snap, err := p.client.Collection(table).Doc(id).Get(ctx)
	if isNotFound(err) {
		return nil, addons.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", table, id, err)
	}

	return addons.PackData(snap.Data(), snap.Ref.ID), nil
}

// Has tells if the document exists.
func (p *Provider) Has(ctx context.Context, table string, id string) (bool, error) {
	snap, err := p.client.Collection(table).Doc(id).Get(ctx)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s/%s: %w", table, id, err)
	}
	return snap.Exists(), nil
}

// Create writes the document, overwriting any existing one with the same id.
func (p *Provider) Create(ctx context.Context, table string, id string, doc addons.Document) error {
	doc = addons.NormalizeDocument(doc)
	if doc == nil {
		doc = addons.Document{}
	}

	_, err := p.client.Collection(table).Doc(id).Set(ctx, map[string]interface{}(doc))
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", table, id, err)
	}
	return nil
}

// Update sends each top-level field as a single path, so a field name containing a dot is kept as-is.
func (p *Provider) Update(ctx context.Context, table string, id string, doc addons.Document) error {
	updates := fieldUpdates(addons.NormalizeDocument(doc))
	if len(updates) == 0 {
		return nil
	}

	_, err := p.client.Collection(table).Doc(id).Update(ctx, updates)
	if isNotFound(err) {
		return addons.ErrDocumentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", table, id, err)
	}
	return nil
}

// Replace is equivalent to Create.
func (p *Provider) Replace(ctx context.Context, table string, id string, doc addons.Document) error {
	return p.Create(ctx, table, id, doc)
}

// Delete removes the document. A missing document is not an error.
func (p *Provider) Delete(ctx context.Context, table string, id string) error {
	_, err := p.client.Collection(table).Doc(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", table, id, err)
	}
	return nil
}

// GetAll returns the documents in the collection, narrowed down by filter when it is not empty.
func (p *Provider) GetAll(ctx context.Context, table string, filter []string) ([]addons.Document, error) {
	snaps, err := p.client.Collection(table).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents in %s: %w", table, err)
	}

	docs := make([]addons.Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, addons.PackData(snap.Data(), snap.Ref.ID))
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].ID() < docs[j].ID()
	})

	return addons.FilterDocuments(docs, filter), nil
}

// Close closes the Firestore client.
func (p *Provider) Close() error {
	return p.client.Close()
}

func fieldUpdates(doc addons.Document) []firestore.Update {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{
			FieldPath: firestore.FieldPath{k},
			Value:     doc[k],
		})
	}
	return updates
}

func isNotFound(err error) bool {
	return err != nil && status.Code(err) == codes.NotFound
}
