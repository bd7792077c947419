package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/fieldscout/internal/pipeline"
)

// BatchItem is one named fill request of a batch
type BatchItem struct {
	Name    string
	Request pipeline.FillRequest
}

// batchTask fills one batch item
type batchTask struct {
	index  int
	item   BatchItem
	filler Filler
}

// indexedResult keeps the submission position so results can be reordered
type indexedResult struct {
	index int
	*FillResult
}

func (t *batchTask) Execute(ctx context.Context) Result {
	report, err := t.filler.Fill(ctx, t.item.Request)
	return indexedResult{
		index:      t.index,
		FillResult: &FillResult{Name: t.item.Name, Report: report, Error: err},
	}
}

// BatchProcessor fills several forms concurrently
type BatchProcessor struct {
	filler      Filler
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(filler Filler, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		filler:      filler,
		concurrency: concurrency,
	}
}

// Process fills every item and returns the results in input order
func (b *BatchProcessor) Process(ctx context.Context, items []BatchItem) []*FillResult {
	if len(items) == 0 {
		return []*FillResult{}
	}

	pool := NewPool(ctx, b.concurrency, len(items))
	pool.Start()

	for i, item := range items {
		task := &batchTask{index: i, item: item, filler: b.filler}
		if err := pool.Submit(ctx, task); err != nil {
			break
		}
	}

	results := make([]*FillResult, len(items))
	for _, r := range pool.Wait() {
		ir := r.(indexedResult)
		results[ir.index] = ir.FillResult
	}

	// Items never run because the context ended
	for i, r := range results {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = ErrPoolClosed
			}
			results[i] = &FillResult{Name: items[i].Name, Error: eris.Wrap(err, "not processed")}
		}
	}
	return results
}

// ProcessFile reads a manifest of request files and fills each of them
func (b *BatchProcessor) ProcessFile(ctx context.Context, manifestPath string) ([]*FillResult, error) {
	paths, err := ReadManifest(manifestPath)
	if err != nil {
		return nil, eris.Wrap(err, "read manifest")
	}

	items := make([]BatchItem, 0, len(paths))
	for _, p := range paths {
		req, err := LoadRequest(p)
		if err != nil {
			return nil, err
		}
		items = append(items, BatchItem{Name: p, Request: *req})
	}
	return b.Process(ctx, items), nil
}

// ReadManifest reads request file paths, one per line. Blank lines and '#'
// comments are skipped, duplicates dropped, and relative paths resolved
// against the manifest's directory.
func ReadManifest(manifestPath string) ([]string, error) {
	file, err := os.Open(manifestPath)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", manifestPath)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(manifestPath)
	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "scan %s", manifestPath)
	}
	return paths, nil
}

// LoadRequest reads a fill request {domain, fields, documents} from JSON
func LoadRequest(path string) (*pipeline.FillRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	var req pipeline.FillRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, eris.Wrapf(err, "decode %s", path)
	}
	return &req, nil
}
