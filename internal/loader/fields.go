package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/fieldscout/internal/model"
)

// fillableForm is the page-structured field discovery format
type fillableForm struct {
	Pages []struct {
		Fields []struct {
			Key         string `json:"key"`
			FieldLabel  string `json:"field_label"`
			Coordinates any    `json:"coordinates"`
			Type        string `json:"type"`
		} `json:"fields"`
	} `json:"pages"`
}

// LoadFields reads a field list from JSON or from a fillable PDF form
func LoadFields(path string) ([]model.Field, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return LoadPDFFields(path)
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", path)
		}
		fields, err := ParseFields(data)
		if err != nil {
			return nil, eris.Wrapf(err, "parse %s", path)
		}
		return fields, nil
	default:
		return nil, eris.Wrapf(model.ErrUnsupportedFormat, "field list %s", path)
	}
}

// ParseFields decodes a field list. Accepted shapes: an array of
// {id, name, context}, an object {"fields": [...]}, or a fillable-form object
// {"pages": [{"fields": [{key, field_label, coordinates, type}]}]} where the
// context is the label, or the coordinates when there is no label.
func ParseFields(data []byte) ([]model.Field, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, eris.Wrap(model.ErrInvalidField, "empty field list")
	}

	var fields []model.Field
	if data[0] == '[' {
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, eris.Wrap(err, "decode field array")
		}
	} else {
		var shape map[string]json.RawMessage
		if err := json.Unmarshal(data, &shape); err != nil {
			return nil, eris.Wrap(err, "decode field list")
		}

		switch {
		case shape["pages"] != nil:
			var form fillableForm
			if err := json.Unmarshal(data, &form); err != nil {
				return nil, eris.Wrap(err, "decode fillable form")
			}
			for _, page := range form.Pages {
				for _, f := range page.Fields {
					ctx := f.FieldLabel
					if ctx == "" {
						ctx = fmt.Sprintf("Coordinates: %v", f.Coordinates)
					}
					fields = append(fields, model.Field{ID: f.Key, Name: f.Key, Context: ctx})
				}
			}
		case shape["fields"] != nil:
			if err := json.Unmarshal(shape["fields"], &fields); err != nil {
				return nil, eris.Wrap(err, "decode fields")
			}
		default:
			return nil, eris.Wrap(model.ErrInvalidField, "expected an array, \"fields\" or \"pages\"")
		}
	}

	for i, f := range fields {
		if err := f.Validate(); err != nil {
			return nil, eris.Wrapf(err, "field %d", i)
		}
	}
	return fields, nil
}
