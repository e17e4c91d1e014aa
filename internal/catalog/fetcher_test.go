package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestFetcher(t *testing.T, handler http.HandlerFunc, opts ...FetcherOption) *HTTPFetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]FetcherOption{WithHTTPClient(srv.Client())}, opts...)
	fetcher, err := NewHTTPFetcher(srv.URL, "/api/product", opts...)
	require.NoError(t, err)
	return fetcher
}

func TestHTTPFetcherSendsUncachedRequest(t *testing.T) {
	requests := make(chan *http.Request, 1)
	fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		requests <- r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"_id":"1","name":"Shirt","price":20,"imageUrl":"/a.png"}]`))
	})

	products := fetcher.FetchProducts(context.Background())
	require.Len(t, products, 1)
	require.Equal(t, "Shirt", products[0].Name)
	require.Equal(t, 20.0, products[0].Price)
	require.Nil(t, products[0].Rating)
	require.Nil(t, products[0].Reviews)

	got := <-requests
	require.Equal(t, http.MethodGet, got.Method)
	require.Equal(t, "/api/product", got.URL.Path)
	require.Equal(t, "no-cache, no-store, max-age=0", got.Header.Get("Cache-Control"))
	require.Equal(t, "no-cache", got.Header.Get("Pragma"))
	require.Equal(t, "application/json", got.Header.Get("Accept"))
}

func TestHTTPFetcherDropsNullRecords(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []string
	}{
		{"only null", `[null]`, []string{}},
		{"trailing null", `[{"_id":"1","name":"Shirt","price":20,"imageUrl":"/a.png"},null]`, []string{"1"}},
		{"missing id", `[{"name":"Nameless","price":5},{"_id":"2","name":"Hat","price":15}]`, []string{"2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.payload))
			}, WithLogger(zap.New(core)))

			products := fetcher.FetchProducts(context.Background())
			require.NotNil(t, products)
			ids := make([]string, 0, len(products))
			for _, p := range products {
				ids = append(ids, p.ID)
			}
			require.Equal(t, tt.want, ids)
			require.Equal(t, 1, logs.FilterMessage("dropping malformed product records").Len())
		})
	}
}

func TestHTTPFetcherFailSoft(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}},
		{"invalid json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"_id":`))
		}},
		{"object instead of array", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"products":[]}`))
		}},
		{"json null", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`null`))
		}},
		{"empty array", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products := newTestFetcher(t, tt.handler).FetchProducts(context.Background())
			require.NotNil(t, products)
			require.Empty(t, products)
		})
	}
}

func TestHTTPFetcherNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	core, logs := observer.New(zap.WarnLevel)
	fetcher, err := NewHTTPFetcher(base, "", WithLogger(zap.New(core)))
	require.NoError(t, err)

	products := fetcher.FetchProducts(context.Background())
	require.NotNil(t, products)
	require.Empty(t, products)
	require.Equal(t, 1, logs.FilterMessageSnippet("product fetch failed").Len())
}

func TestHTTPFetcherHonoursCancellation(t *testing.T) {
	release := make(chan struct{})
	fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan []Product, 1)
	go func() { done <- fetcher.FetchProducts(ctx) }()
	cancel()

	select {
	case products := <-done:
		require.NotNil(t, products)
		require.Empty(t, products)
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not return after cancellation")
	}
}

func TestHTTPFetcherTimeout(t *testing.T) {
	release := make(chan struct{})
	fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithFetchTimeout(20*time.Millisecond))
	defer close(release)

	products := fetcher.FetchProducts(context.Background())
	require.Empty(t, products)
}

func TestNewHTTPFetcherValidatesBaseURL(t *testing.T) {
	_, err := NewHTTPFetcher("", "")
	require.Error(t, err)
	_, err = NewHTTPFetcher("not a url", "")
	require.Error(t, err)

	fetcher, err := NewHTTPFetcher("https://api.example.com/", "api/product")
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com/api/product", fetcher.Endpoint())
}

func TestHTTPFetcherRejectsOversizedPayload(t *testing.T) {
	fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[" + strings.Repeat(" ", maxPayloadBytes) + "]"))
	})
	require.Empty(t, fetcher.FetchProducts(context.Background()))
}

func TestFetcherFuncNeverReturnsNil(t *testing.T) {
	fn := FetcherFunc(func(context.Context) []Product { return nil })
	require.NotNil(t, fn.FetchProducts(context.Background()))
}
