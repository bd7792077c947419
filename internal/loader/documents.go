// Package loader reads source documents and form field lists from disk or
// over HTTP.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/fieldscout/internal/extract"
	"github.com/ppiankov/fieldscout/internal/model"
)

// Document types assigned to files without explicit metadata
const (
	TypeText     = "text"
	TypeMarkdown = "markdown"
	TypeHTML     = "html"
	TypePDF      = "pdf"
)

var documentExts = map[string]string{
	".txt":  TypeText,
	".md":   TypeMarkdown,
	".html": TypeHTML,
	".htm":  TypeHTML,
	".pdf":  TypePDF,
	".json": "",
}

// documentSet is the on-disk source format: {"documents": [...]}
type documentSet struct {
	Documents []model.Document `json:"documents"`
}

// ParseDocuments decodes a JSON document list, either {"documents": [...]}
// or a bare array. Documents without an id get "doc-N" (1-based position).
func ParseDocuments(data []byte) ([]model.Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, eris.Wrap(model.ErrInvalidDocument, "empty document source")
	}

	var docs []model.Document
	if data[0] == '[' {
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, eris.Wrap(err, "decode document array")
		}
	} else {
		var set documentSet
		if err := json.Unmarshal(data, &set); err != nil {
			return nil, eris.Wrap(err, "decode document set")
		}
		if set.Documents == nil {
			return nil, eris.Wrap(model.ErrInvalidDocument, "expected an object with a \"documents\" key")
		}
		docs = set.Documents
	}

	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = fmt.Sprintf("doc-%d", i+1)
		}
		if docs[i].Metadata == nil {
			docs[i].Metadata = map[string]string{}
		}
		docs[i].Content = norm.NFKC.String(docs[i].Content)
	}
	return docs, nil
}

// LoadDocuments loads documents from files, directories and http(s) URLs.
// Directories are read non-recursively in name order; unsupported files in a
// directory are skipped, while an unsupported file named explicitly is an
// error.
func LoadDocuments(ctx context.Context, paths ...string) ([]model.Document, error) {
	var docs []model.Document

	for _, p := range paths {
		if IsURL(p) {
			fetched, err := remoteFetcher.FetchDocument(ctx, p)
			if err != nil {
				return nil, err
			}
			docs = append(docs, fetched...)
			continue
		}

		info, err := os.Stat(p)
		if err != nil {
			return nil, eris.Wrapf(err, "stat %s", p)
		}

		files := []string{p}
		if info.IsDir() {
			if files, err = listDocumentFiles(p); err != nil {
				return nil, err
			}
		}

		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, eris.Wrap(err, "load documents")
			}
			loaded, err := loadDocumentFile(ctx, f)
			if err != nil {
				return nil, err
			}
			docs = append(docs, loaded...)
		}
	}

	if err := model.ValidateDocuments(docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func listDocumentFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "read directory %s", dir)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := documentExts[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func loadDocumentFile(ctx context.Context, path string) ([]model.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	docType, ok := documentExts[ext]
	if !ok {
		return nil, eris.Wrapf(model.ErrUnsupportedFormat, "document %s", path)
	}

	if docType == TypePDF {
		doc, err := LoadPDFDocument(ctx, path)
		if err != nil {
			return nil, err
		}
		return []model.Document{*doc}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch docType {
	case "":
		docs, err := ParseDocuments(data)
		if err != nil {
			return nil, eris.Wrapf(err, "parse %s", path)
		}
		return docs, nil
	case TypeHTML:
		doc, err := htmlDocument(id, string(data))
		if err != nil {
			return nil, eris.Wrapf(err, "parse %s", path)
		}
		return []model.Document{doc}, nil
	default:
		return []model.Document{{
			ID:       id,
			Content:  norm.NFKC.String(string(data)),
			Metadata: map[string]string{model.MetaType: docType},
		}}, nil
	}
}

// htmlDocument maps page metadata onto document metadata: <meta name="type">
// and <meta name="date"> are copied, section falls back to the first heading.
func htmlDocument(id, page string) (model.Document, error) {
	parsed, err := extract.ParseHTML(page)
	if err != nil {
		return model.Document{}, err
	}

	meta := map[string]string{model.MetaType: TypeHTML}
	for _, key := range []string{model.MetaType, model.MetaSection, model.MetaDate} {
		if v := parsed.Meta[key]; v != "" {
			meta[key] = v
		}
	}
	if meta[model.MetaSection] == "" && len(parsed.Headings) > 0 {
		meta[model.MetaSection] = strings.ToLower(parsed.Headings[0])
	}
	if parsed.Title != "" {
		meta["title"] = parsed.Title
	}

	return model.Document{
		ID:       id,
		Content:  norm.NFKC.String(parsed.Text),
		Metadata: meta,
	}, nil
}
