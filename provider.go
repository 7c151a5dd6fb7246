package addons

import (
	"context"
	"errors"
)

var (
	// ErrDocumentNotFound is returned when a document is read or updated but does not exist in the given table.
	ErrDocumentNotFound = errors.New("document not found")
)

// Provider defines an interface that every document storage backend must satisfy.
//
// Each method is a direct pass-through to the backing store: no batching, caching or transaction is involved,
// so the consistency of each call is whatever the store offers.
// Create, Update and Replace must pass the given Document to NormalizeDocument before serialization.
type Provider interface {
	// HasTable tells if the table holds at least one document.
	HasTable(ctx context.Context, table string) (bool, error)

	// CreateTable prepares the table. Schemaless stores need nothing beyond the first write.
	CreateTable(ctx context.Context, table string) error

	// DeleteTable removes the table and all of its documents if the backend supports it.
	DeleteTable(ctx context.Context, table string) error

	// GetKeys returns the ids of all documents in the table.
	GetKeys(ctx context.Context, table string) ([]string, error)

	// Get returns the stored document with its id set to the "id" field.
	// ErrDocumentNotFound is returned when no such document exists.
	Get(ctx context.Context, table string, id string) (Document, error)

	// Has tells if the document exists.
	Has(ctx context.Context, table string, id string) (bool, error)

	// Create stores the document, overwriting any existing one with the same id.
	Create(ctx context.Context, table string, id string, doc Document) error

	// Update merges the given fields into the existing document.
	// ErrDocumentNotFound is returned when no such document exists.
	Update(ctx context.Context, table string, id string, doc Document) error

	// Replace fully overwrites the document. This is equivalent to Create.
	Replace(ctx context.Context, table string, id string, doc Document) error

	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, table string, id string) error

	// GetAll returns every document in the table in the store's order.
	// When filter is not empty, only documents whose id is listed are returned.
	GetAll(ctx context.Context, table string, filter []string) ([]Document, error)

	// Close releases the underlying database handle.
	Close() error
}

// FilterDocuments returns docs whose "id" field is contained in filter, keeping the given order.
// An empty filter returns docs as-is.
func FilterDocuments(docs []Document, filter []string) []Document {
	if len(filter) == 0 {
		return docs
	}

	wanted := make(map[string]struct{}, len(filter))
	for _, id := range filter {
		wanted[id] = struct{}{}
	}

	filtered := make([]Document, 0, len(filter))
	for _, doc := range docs {
		if _, ok := wanted[doc.ID()]; ok {
			filtered = append(filtered, doc)
		}
	}
	return filtered
}
