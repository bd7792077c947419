package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/fieldscout/internal/model"
	"github.com/ppiankov/fieldscout/internal/pipeline"
)

// mockFiller returns a report with one field per request field
type mockFiller struct {
	fail  map[string]bool // domains that fail
	delay time.Duration
	calls atomic.Int32
}

func (m *mockFiller) Fill(ctx context.Context, req pipeline.FillRequest) (*model.FillReport, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.fail[req.Domain] {
		return nil, errors.New("fill failed")
	}
	report := &model.FillReport{Domain: req.Domain}
	for _, f := range req.Fields {
		report.Fields = append(report.Fields, model.FieldResult{
			Outcome: model.Outcome{Field: f, NoMatch: model.NewNoMatch(f.Name)},
		})
	}
	report.Summary.TotalFields = len(req.Fields)
	return report, nil
}

func batchItems(domains ...string) []BatchItem {
	items := make([]BatchItem, len(domains))
	for i, d := range domains {
		items[i] = BatchItem{
			Name:    d + ".json",
			Request: pipeline.FillRequest{Domain: d, Fields: []model.Field{{Name: "Name"}}},
		}
	}
	return items
}

func TestBatchProcessor_Process(t *testing.T) {
	filler := &mockFiller{delay: 5 * time.Millisecond}
	processor := NewBatchProcessor(filler, 2)

	results := processor.Process(context.Background(), batchItems("medical", "legal", "finance", "insurance"))
	require.Len(t, results, 4)

	for i, want := range []string{"medical", "legal", "finance", "insurance"} {
		require.NoError(t, results[i].Error)
		assert.Equal(t, want+".json", results[i].Name)
		assert.Equal(t, want, results[i].Report.Domain)
	}
	assert.Equal(t, int32(4), filler.calls.Load())
}

func TestBatchProcessor_ProcessErrors(t *testing.T) {
	filler := &mockFiller{fail: map[string]bool{"legal": true}}
	results := NewBatchProcessor(filler, 2).Process(context.Background(), batchItems("medical", "legal"))

	require.Len(t, results, 2)
	assert.NoError(t, results[0].GetError())
	assert.Error(t, results[1].GetError())
	assert.Nil(t, results[1].Report)
}

func TestBatchProcessor_ProcessEmpty(t *testing.T) {
	results := NewBatchProcessor(&mockFiller{}, 2).Process(context.Background(), nil)
	assert.Empty(t, results)
}

func TestBatchProcessor_ProcessCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewBatchProcessor(&mockFiller{delay: time.Second}, 1).Process(ctx, batchItems("medical", "legal"))
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Error(t, r.Error)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "batch.txt")
	writeFile(t, manifest, "a.json\n# comment\n\n  b.json  \na.json\n/abs/c.json\n")

	paths, err := ReadManifest(manifest)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "b.json"),
		"/abs/c.json",
	}, paths)

	_, err = ReadManifest(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "deed.json"),
		`{"domain":"real_estate","fields":[{"name":"Seller Name"}],"documents":[{"id":"d","content":"x"}]}`)
	writeFile(t, filepath.Join(dir, "chart.json"),
		`{"domain":"medical","fields":[{"name":"Age"},{"name":"Patient Name"}]}`)
	manifest := filepath.Join(dir, "batch.txt")
	writeFile(t, manifest, "deed.json\nchart.json\n")

	results, err := NewBatchProcessor(&mockFiller{}, 2).ProcessFile(context.Background(), manifest)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "real_estate", results[0].Report.Domain)
	assert.Equal(t, 2, results[1].Report.Summary.TotalFields)
}

func TestBatchProcessor_ProcessFileBadRequest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.json"), `{not json`)
	manifest := filepath.Join(dir, "batch.txt")
	writeFile(t, manifest, "bad.json\n")

	_, err := NewBatchProcessor(&mockFiller{}, 2).ProcessFile(context.Background(), manifest)
	assert.Error(t, err)

	_, err = NewBatchProcessor(&mockFiller{}, 2).ProcessFile(context.Background(), filepath.Join(dir, "none.txt"))
	assert.Error(t, err)
}
