package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/fieldscout/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestParseDocuments(t *testing.T) {
	tests := []struct {
		name string
		data string
		ids  []string
	}{
		{
			name: "document set",
			data: `{"documents":[{"id":"doc1","content":"John Smith","metadata":{"type":"deed","section":"parties"}}]}`,
			ids:  []string{"doc1"},
		},
		{
			name: "bare array with missing ids",
			data: `[{"content":"a"},{"id":"x","content":"b"},{"content":"c"}]`,
			ids:  []string{"doc-1", "x", "doc-3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := ParseDocuments([]byte(tt.data))
			require.NoError(t, err)
			require.Len(t, docs, len(tt.ids))
			for i, d := range docs {
				assert.Equal(t, tt.ids[i], d.ID)
				assert.NotNil(t, d.Metadata)
			}
		})
	}
}

func TestParseDocuments_Errors(t *testing.T) {
	_, err := ParseDocuments([]byte("  "))
	assert.True(t, eris.Is(err, model.ErrInvalidDocument))

	_, err = ParseDocuments([]byte(`{"docs":[]}`))
	assert.True(t, eris.Is(err, model.ErrInvalidDocument))

	_, err = ParseDocuments([]byte(`{"documents":`))
	assert.Error(t, err)
}

func TestParseDocuments_NormalizesContent(t *testing.T) {
	docs, err := ParseDocuments([]byte(`[{"id":"a","content":"ﬁle Ｎo. ５"}]`))
	require.NoError(t, err)
	assert.Equal(t, "file No. 5", docs[0].Content)
}

func TestLoadDocuments_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_notes.txt", "Seller: John Smith.")
	writeFile(t, dir, "a_summary.md", "# Summary\nPurchase price is $250,000.")
	writeFile(t, dir, "c_deed.html", `<html><head><meta name="date" content="2024-01-15"></head>
<body><h2>Parties</h2><p>Grantor John Smith</p><script>x()</script></body></html>`)
	writeFile(t, dir, "ignored.csv", "a,b")
	writeFile(t, dir, "sources.json", `{"documents":[{"id":"extra","content":"Book 5432 Page 234"}]}`)

	docs, err := LoadDocuments(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, docs, 4)

	assert.Equal(t, "a_summary", docs[0].ID)
	assert.Equal(t, TypeMarkdown, docs[0].Meta(model.MetaType))
	assert.Equal(t, "b_notes", docs[1].ID)
	assert.Equal(t, TypeText, docs[1].Meta(model.MetaType))

	assert.Equal(t, "c_deed", docs[2].ID)
	assert.Equal(t, "Parties Grantor John Smith", docs[2].Content)
	assert.Equal(t, "parties", docs[2].Meta(model.MetaSection))
	assert.Equal(t, "2024-01-15", docs[2].Meta(model.MetaDate))
	assert.Equal(t, TypeHTML, docs[2].Meta(model.MetaType))

	assert.Equal(t, "extra", docs[3].ID)
}

func TestLoadDocuments_Errors(t *testing.T) {
	dir := t.TempDir()
	csv := writeFile(t, dir, "data.csv", "a,b")

	_, err := LoadDocuments(context.Background(), csv)
	assert.True(t, eris.Is(err, model.ErrUnsupportedFormat))

	_, err = LoadDocuments(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)

	a := writeFile(t, dir, "same.txt", "one")
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o700))
	b := writeFile(t, sub, "same.md", "two")
	_, err = LoadDocuments(context.Background(), a, b)
	assert.True(t, eris.Is(err, model.ErrInvalidDocument))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = LoadDocuments(ctx, a)
	assert.True(t, eris.Is(err, context.Canceled))
}

func TestParseFields(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []model.Field
	}{
		{
			name: "array",
			data: `[{"id":"f1","name":"Seller Name","context":"Party selling"}]`,
			want: []model.Field{{ID: "f1", Name: "Seller Name", Context: "Party selling"}},
		},
		{
			name: "fields object",
			data: `{"fields":[{"name":"Policy Number"}]}`,
			want: []model.Field{{Name: "Policy Number"}},
		},
		{
			name: "fillable form pages",
			data: `{"pages":[{"fields":[
				{"key":"Name_First","field_label":"First name","type":"text"},
				{"key":"Date","coordinates":[10,20],"type":"text"}
			]}]}`,
			want: []model.Field{
				{ID: "Name_First", Name: "Name_First", Context: "First name"},
				{ID: "Date", Name: "Date", Context: "Coordinates: [10 20]"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFields([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFields_Errors(t *testing.T) {
	_, err := ParseFields([]byte(`[{"name":"  "}]`))
	assert.True(t, eris.Is(err, model.ErrInvalidField))

	_, err = ParseFields([]byte(`{"other":1}`))
	assert.True(t, eris.Is(err, model.ErrInvalidField))

	_, err = ParseFields(nil)
	assert.Error(t, err)
}

func TestLoadFields(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "fields.json", `[{"name":"Grantor"}]`)

	fields, err := LoadFields(p)
	require.NoError(t, err)
	assert.Equal(t, []model.Field{{Name: "Grantor"}}, fields)

	_, err = LoadFields(writeFile(t, dir, "fields.yaml", "- Grantor"))
	assert.True(t, eris.Is(err, model.ErrUnsupportedFormat))

	_, err = LoadFields(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}
