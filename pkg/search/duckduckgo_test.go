package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/ratelimit"
)

func strPtr(s string) *string { return &s }

// ddgServer serves a token page and JSON pages keyed by the "p" query parameter
type ddgServer struct {
	tokenBody  string
	tokenCode  int
	pages      map[string]imagePage
	fallback   string
	dataHits   int32
	lastParams []string
}

func (s *ddgServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("iax") == "images" {
			fmt.Fprint(w, s.fallback)
			return
		}
		if s.tokenCode != 0 {
			w.WriteHeader(s.tokenCode)
			return
		}
		fmt.Fprint(w, s.tokenBody)
	})
	mux.HandleFunc("/i.js", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.dataHits, 1)
		q := r.URL.Query()
		s.lastParams = append(s.lastParams, q.Encode())
		assert.Equal(t, "json", q.Get("o"))
		assert.Equal(t, "12-34", q.Get("vqd"))

		page, ok := s.pages[q.Get("p")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(page))
	})
	return mux
}

func newTestDuckDuckGo(t *testing.T, s *ddgServer, log logger.Logger) *DuckDuckGo {
	server := httptest.NewServer(s.handler(t))
	t.Cleanup(server.Close)

	client := NewClient(server.Client(), "", 5*time.Second, log)
	return NewDuckDuckGo(client, server.URL, "us-en", ratelimit.Nop(), log)
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		token string
		found bool
	}{
		{"single quotes", `<script>vqd='4-1234-5678';</script>`, "4-1234-5678", true},
		{"double quotes", `<script>vqd="4-99";</script>`, "4-99", true},
		{"query string", `href="/d.js?vqd=4-777&q=x"`, "4-777", true},
		{"single quotes win", `vqd="1-1" vqd='2-2'`, "2-2", true},
		{"missing", `<html></html>`, "", false},
		{"non numeric", `vqd='abc'`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, ok := ExtractToken(tt.body)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestDuckDuckGoPagination(t *testing.T) {
	s := &ddgServer{
		tokenBody: `<script>vqd='12-34'</script>`,
		pages: map[string]imagePage{
			"": {
				Results: []imageItem{
					{Image: strPtr("https://img.example/a.jpg")},
					{Thumbnail: strPtr("https://img.example/b-thumb.jpg")},
					{},
					{Image: strPtr("https://img.example/a.jpg")},
				},
				Next: strPtr("i.js?q=multimeter&p=2"),
			},
			"2": {
				Results: []imageItem{
					{Image: strPtr("https://img.example/c.png"), Thumbnail: strPtr("https://img.example/c-thumb.png")},
				},
			},
		},
	}
	d := newTestDuckDuckGo(t, s, logger.NewTestLogger())

	result := d.Search(context.Background(), "multimeter", 10)

	require.NoError(t, result.Err)
	assert.Equal(t, SourceJSONPagination, result.Source)
	assert.Equal(t, []string{
		"https://img.example/a.jpg",
		"https://img.example/b-thumb.jpg",
		"https://img.example/c.png",
	}, result.URLs)
	// Second page stops because it has no cursor
	assert.Equal(t, int32(2), s.dataHits)
	assert.Contains(t, s.lastParams[1], "l=us-en")
}

func TestDuckDuckGoStopsAtMax(t *testing.T) {
	s := &ddgServer{
		tokenBody: `vqd="12-34"`,
		pages: map[string]imagePage{
			"": {
				Results: []imageItem{
					{Image: strPtr("https://img.example/1.jpg")},
					{Image: strPtr("https://img.example/2.jpg")},
					{Image: strPtr("https://img.example/3.jpg")},
				},
				Next: strPtr("i.js?p=2"),
			},
		},
	}
	d := newTestDuckDuckGo(t, s, logger.NewTestLogger())

	result := d.Search(context.Background(), "oscilloscope", 2)

	assert.Len(t, result.URLs, 2)
	assert.Equal(t, int32(1), s.dataHits)
}

func TestDuckDuckGoStopsOnEmptyPage(t *testing.T) {
	s := &ddgServer{
		tokenBody: `vqd='12-34'`,
		pages: map[string]imagePage{
			"": {Results: nil, Next: strPtr("i.js?p=2")},
		},
	}
	d := newTestDuckDuckGo(t, s, logger.NewTestLogger())

	result := d.Search(context.Background(), "nothing", 5)

	assert.Empty(t, result.URLs)
	assert.NoError(t, result.Err)
	assert.Equal(t, int32(1), s.dataHits)
}

func TestDuckDuckGoPageFailureKeepsPartialResult(t *testing.T) {
	s := &ddgServer{
		tokenBody: `vqd='12-34'`,
		pages: map[string]imagePage{
			"": {
				Results: []imageItem{{Image: strPtr("https://img.example/1.jpg")}},
				Next:    strPtr("i.js?p=missing"),
			},
		},
	}
	d := newTestDuckDuckGo(t, s, logger.NewTestLogger())

	result := d.Search(context.Background(), "partial", 5)

	assert.Equal(t, []string{"https://img.example/1.jpg"}, result.URLs)
	require.Error(t, result.Err)
	assert.Equal(t, errors.ErrorTypeNotFound, errors.TypeOf(result.Err))
}

func TestDuckDuckGoFallbackWhenNoToken(t *testing.T) {
	s := &ddgServer{
		tokenBody: `<html>no token here</html>`,
		fallback: `<html><body>
			<img src="https://img.example/one.jpg">
			<img src="/relative.png">
			<img data-src="https://img.example/two.jpg">
			<img src="https://img.example/one.jpg">
			<img src="https://img.example/three.jpg">
		</body></html>`,
	}
	log := logger.NewTestLogger()
	d := newTestDuckDuckGo(t, s, log)

	result := d.Search(context.Background(), "function generator", 2)

	assert.Equal(t, SourceHTMLScrape, result.Source)
	assert.Equal(t, []string{"https://img.example/one.jpg", "https://img.example/two.jpg"}, result.URLs)
	assert.Equal(t, int32(0), s.dataHits)
	assert.True(t, log.HasMessage("token handshake failed, falling back to HTML scrape"))
}

func TestDuckDuckGoFallbackWhenTokenPageFails(t *testing.T) {
	s := &ddgServer{
		tokenCode: http.StatusForbidden,
		fallback:  `<img src="https://img.example/x.gif">`,
	}
	d := newTestDuckDuckGo(t, s, logger.NewTestLogger())

	result := d.Search(context.Background(), "dc power supply", 5)

	assert.Equal(t, SourceHTMLScrape, result.Source)
	assert.Equal(t, []string{"https://img.example/x.gif"}, result.URLs)
}

func TestDuckDuckGoUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	origin := server.URL
	server.Close()

	log := logger.NewTestLogger()
	d := NewDuckDuckGo(NewClient(nil, "", time.Second, log), origin, "", nil, log)

	result := d.Search(context.Background(), "multimeter", 5)

	assert.Empty(t, result.URLs)
	require.Error(t, result.Err)
	assert.Equal(t, errors.ErrorTypeNetwork, errors.TypeOf(result.Err))
}

func TestDuckDuckGoZeroMax(t *testing.T) {
	s := &ddgServer{tokenBody: `vqd='12-34'`}
	d := newTestDuckDuckGo(t, s, logger.NewTestLogger())

	result := d.Search(context.Background(), "multimeter", 0)
	assert.Empty(t, result.URLs)
	assert.Equal(t, int32(0), s.dataHits)
}
