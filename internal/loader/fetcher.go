package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/fieldscout/internal/model"
)

// Fetch defaults
const (
	DefaultFetchTimeout  = 30 * time.Second
	DefaultUserAgent     = "fieldscout/1.0"
	DefaultMaxFetchBytes = 10 << 20
	fetchAttempts        = 3
)

// fetchSleepFunc is replaced in tests
var fetchSleepFunc = time.Sleep

// Fetcher downloads remote source documents
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFetchBytes
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return eris.New("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// remoteFetcher serves URL sources passed to LoadDocuments
var remoteFetcher = NewFetcher(0, "", 0)

// IsURL reports whether a document source is an http(s) URL
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// FetchDocument downloads a URL and converts it by content type: HTML pages
// become visible text with page metadata, PDFs are text-extracted, JSON is
// read as a document list and anything else is taken as plain text.
func (f *Fetcher) FetchDocument(ctx context.Context, rawURL string) ([]model.Document, error) {
	body, contentType, finalURL, err := f.fetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch %s", rawURL)
	}

	id := documentID(finalURL)
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		doc, err := htmlDocument(id, string(body))
		if err != nil {
			return nil, eris.Wrapf(err, "parse %s", rawURL)
		}
		doc.Metadata["source"] = finalURL
		return []model.Document{doc}, nil
	case mediaType == "application/pdf":
		r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
		if err != nil {
			return nil, eris.Wrapf(err, "open pdf %s", rawURL)
		}
		doc, err := pdfDocument(ctx, id, r)
		if err != nil {
			return nil, eris.Wrapf(err, "read pdf %s", rawURL)
		}
		doc.Metadata["source"] = finalURL
		return []model.Document{*doc}, nil
	case mediaType == "application/json":
		docs, err := ParseDocuments(body)
		if err != nil {
			return nil, eris.Wrapf(err, "parse %s", rawURL)
		}
		return docs, nil
	default:
		return []model.Document{{
			ID:      id,
			Content: norm.NFKC.String(string(body)),
			Metadata: map[string]string{
				model.MetaType: TypeText,
				"source":       finalURL,
			},
		}}, nil
	}
}

// fetchWithRetry retries transient failures (network errors, 429 and 5xx)
// with linear backoff
func (f *Fetcher) fetchWithRetry(ctx context.Context, rawURL string) ([]byte, string, string, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		body, contentType, finalURL, err := f.fetch(ctx, rawURL)
		if err == nil {
			return body, contentType, finalURL, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) || attempt == fetchAttempts || ctx.Err() != nil {
			break
		}
		fetchSleepFunc(time.Duration(attempt) * time.Second)
	}
	return nil, "", "", lastErr
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) ([]byte, string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", "", &fetchError{msg: "create request", err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/pdf,application/json,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", "", &fetchError{msg: "request", err: err, retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", "", &fetchError{
			msg:       fmt.Sprintf("unexpected status: %s", resp.Status),
			status:    resp.StatusCode,
			retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, "", "", &fetchError{msg: "read body", err: err}
	}
	return body, resp.Header.Get("Content-Type"), resp.Request.URL.String(), nil
}

// fetchError carries whether a failed fetch is worth retrying
type fetchError struct {
	msg       string
	status    int
	err       error
	retryable bool
}

func (e *fetchError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *fetchError) Unwrap() error { return e.err }

func isRetryableFetchError(err error) bool {
	var fe *fetchError
	if !eris.As(err, &fe) {
		return false
	}
	return fe.retryable
}

// documentID derives an id from the last path segment, falling back to the host
func documentID(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	last := path.Base(strings.Trim(parsed.Path, "/"))
	if last == "." || last == "" {
		return parsed.Host
	}
	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}
	return last
}
