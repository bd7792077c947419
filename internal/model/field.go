package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Field is a named slot in a target form whose value must be located in source documents
type Field struct {
	ID      string `json:"id,omitempty"`      // Optional stable identifier (e.g., PDF field key)
	Name    string `json:"name"`              // Human-readable field name, e.g. "Seller Name"
	Context string `json:"context,omitempty"` // Label or surrounding text, may be empty
}

// Identifier returns the field ID, falling back to the name
func (f Field) Identifier() string {
	if f.ID != "" {
		return f.ID
	}
	return f.Name
}

// Query builds the free-text query used by the matching strategies
func (f Field) Query() string {
	return f.Name + " " + f.Context
}

// Validate checks the field at the input boundary
func (f Field) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return eris.Wrap(ErrInvalidField, "field name is empty")
	}
	return nil
}

// Document is a unit of candidate source text plus optional metadata
type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"` // Observed keys: type, section, date
}

// Metadata keys read by the matching strategies
const (
	MetaType    = "type"
	MetaSection = "section"
	MetaDate    = "date"
)

// Meta returns a metadata value, or "" when the key is absent
func (d Document) Meta(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

// HasMeta reports whether the metadata key is present
func (d Document) HasMeta(key string) bool {
	if d.Metadata == nil {
		return false
	}
	_, ok := d.Metadata[key]
	return ok
}

// ValidateDocuments checks a document batch at the input boundary.
// Document IDs must be non-empty and unique within the batch.
func ValidateDocuments(docs []Document) error {
	seen := make(map[string]bool, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			return eris.Wrapf(ErrInvalidDocument, "document %d has no id", i)
		}
		if seen[d.ID] {
			return eris.Wrapf(ErrInvalidDocument, "duplicate document id %q", d.ID)
		}
		seen[d.ID] = true
	}
	return nil
}
