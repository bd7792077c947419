package loader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/fieldscout/internal/model"
)

func noSleep(t *testing.T) {
	t.Helper()
	orig := fetchSleepFunc
	fetchSleepFunc = func(time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func TestFetchDocument_HTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, `<html><head><title>Deed</title><meta name="section" content="parties"></head>
<body><script>var x = 1;</script><p>The seller is John Doe.</p></body></html>`)
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, "test-agent", 1<<20)
	docs, err := f.FetchDocument(context.Background(), server.URL+"/records/deed.html")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, "deed", doc.ID)
	assert.Contains(t, doc.Content, "The seller is John Doe.")
	assert.NotContains(t, doc.Content, "var x")
	assert.Equal(t, TypeHTML, doc.Meta(model.MetaType))
	assert.Equal(t, "parties", doc.Meta(model.MetaSection))
	assert.Equal(t, server.URL+"/records/deed.html", doc.Meta("source"))
}

func TestFetchDocument_PlainTextAndJSON(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/notes.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "Patient was born on 1980-02-03.")
	})
	mux.HandleFunc("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"documents":[{"id":"a","content":"one"},{"content":"two"}]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewFetcher(5*time.Second, "", 0)

	docs, err := f.FetchDocument(context.Background(), server.URL+"/notes.txt")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "notes", docs[0].ID)
	assert.Equal(t, TypeText, docs[0].Meta(model.MetaType))

	docs, err = f.FetchDocument(context.Background(), server.URL+"/docs")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "doc-2", docs[1].ID)
}

func TestFetchDocument_TransientThenSuccess(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	docs, err := NewFetcher(5*time.Second, "", 0).FetchDocument(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFetchDocument_429Retried(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	_, err := NewFetcher(5*time.Second, "", 0).FetchDocument(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestFetchDocument_PermanentFailure(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewFetcher(5*time.Second, "", 0).FetchDocument(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status: 404 Not Found")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestFetchDocument_AllRetriesExhausted(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewFetcher(5*time.Second, "", 0).FetchDocument(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, int32(fetchAttempts), attempts.Load())
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"plain", eris.New("boom"), false},
		{"503", &fetchError{msg: "unexpected status: 503", status: 503, retryable: true}, true},
		{"404", &fetchError{msg: "unexpected status: 404", status: 404}, false},
		{"network", &fetchError{msg: "request", err: eris.New("connection refused"), retryable: true}, true},
		{"wrapped", eris.Wrap(&fetchError{msg: "request", retryable: true}, "fetch"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryableFetchError(tt.err))
		})
	}
}

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "deed", documentID("https://example.com/records/deed.html"))
	assert.Equal(t, "example.com", documentID("https://example.com/"))
	assert.Equal(t, "report", documentID("https://example.com/a/report"))
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/doc"))
	assert.True(t, IsURL("http://localhost:8080"))
	assert.False(t, IsURL("docs/deed.txt"))
	assert.False(t, IsURL("ftp://example.com"))
}
