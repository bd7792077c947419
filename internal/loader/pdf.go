package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/fieldscout/internal/model"
)

// maxPDFPages bounds text extraction for very large files
const maxPDFPages = 200

// LoadPDFDocument extracts the plain text of a PDF. Filled AcroForm values are
// appended as "name: value" lines so they can be matched like body text.
func LoadPDFDocument(ctx context.Context, path string) (*model.Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open pdf %s", path)
	}
	defer func() { _ = f.Close() }()

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	doc, err := pdfDocument(ctx, id, r)
	if err != nil {
		return nil, eris.Wrapf(err, "read pdf %s", path)
	}
	return doc, nil
}

// pdfDocument extracts page text and filled form values from an open reader
func pdfDocument(ctx context.Context, id string, r *pdf.Reader) (*model.Document, error) {
	pages := r.NumPage()
	if pages > maxPDFPages {
		pages = maxPDFPages
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// Unreadable pages are skipped; the rest of the file is still usable
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.TrimSpace(text))
	}

	for _, ff := range formFields(r) {
		if ff.value != "" {
			fmt.Fprintf(&b, "\n%s: %s", ff.name, ff.value)
		}
	}

	return &model.Document{
		ID:       id,
		Content:  norm.NFKC.String(b.String()),
		Metadata: map[string]string{model.MetaType: TypePDF},
	}, nil
}

// LoadPDFFields discovers the fillable fields of a PDF form. The field
// tooltip (/TU) becomes the context when present.
func LoadPDFFields(path string) ([]model.Field, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open pdf %s", path)
	}
	defer func() { _ = f.Close() }()

	var fields []model.Field
	for _, ff := range formFields(r) {
		fields = append(fields, model.Field{ID: ff.name, Name: ff.name, Context: ff.label})
	}
	if len(fields) == 0 {
		return nil, eris.Wrapf(model.ErrUnsupportedFormat, "%s has no fillable form fields", path)
	}
	return fields, nil
}

type acroField struct {
	name  string
	label string
	value string
}

// formFields walks /Root/AcroForm/Fields including /Kids. Nested names are
// joined with dots as in the PDF specification.
func formFields(r *pdf.Reader) []acroField {
	fields := r.Trailer().Key("Root").Key("AcroForm").Key("Fields")
	if fields.Kind() != pdf.Array {
		return nil
	}

	var out []acroField
	var walk func(v pdf.Value, prefix string)
	walk = func(v pdf.Value, prefix string) {
		if v.Kind() != pdf.Dict {
			return
		}

		name := prefix
		if t := v.Key("T"); t.Kind() == pdf.String {
			if name != "" {
				name += "."
			}
			name += t.Text()
		}

		kids := v.Key("Kids")
		if kids.Kind() == pdf.Array && kids.Len() > 0 {
			for i := 0; i < kids.Len(); i++ {
				walk(kids.Index(i), name)
			}
			return
		}

		if name == "" {
			return
		}
		out = append(out, acroField{
			name:  name,
			label: textOf(v.Key("TU")),
			value: valueOf(v),
		})
	}

	for i := 0; i < fields.Len(); i++ {
		walk(fields.Index(i), "")
	}
	return out
}

func valueOf(field pdf.Value) string {
	if v := textOf(field.Key("V")); v != "" {
		return v
	}
	return textOf(field.Key("DV"))
}

func textOf(v pdf.Value) string {
	switch v.Kind() {
	case pdf.String:
		return strings.TrimSpace(v.Text())
	case pdf.Name:
		return v.Name()
	}
	return ""
}
