package addons

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// IDField is the field name that carries a document's id in the value returned by Provider.Get and Provider.GetAll.
const IDField = "id"

// Document is a schemaless record: a mapping from field names to JSON-compatible values.
type Document map[string]interface{}

// ID returns the value of the "id" field, or an empty string when it is not set.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// PackData returns a shallow copy of data with its id set to the "id" field.
// A nil data results in a document that only contains the id.
func PackData(data map[string]interface{}, id string) Document {
	doc := make(Document, len(data)+1)
	for k, v := range data {
		doc[k] = v
	}
	doc[IDField] = id
	return doc
}

// MergeDocument returns a new Document with patch applied on top of base.
// Merge happens on the top level only: a field in patch replaces the same field in base as a whole.
func MergeDocument(base Document, patch Document) Document {
	merged := make(Document, len(base)+len(patch))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// EncodeDocument serializes the document to JSON after normalizing it with NormalizeDocument.
// Backends that persist documents as JSON text share this.
func EncodeDocument(doc Document) ([]byte, error) {
	doc = NormalizeDocument(doc)
	if doc == nil {
		doc = Document{}
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return b, nil
}

// DecodeDocument deserializes JSON text stored by EncodeDocument.
// Numbers are decoded as json.Number so integers beyond float64 precision are kept as is.
func DecodeDocument(b []byte) (Document, error) {
	doc := Document{}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}
