package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cessda/skgif-api/internal/elsst"
	"github.com/cessda/skgif-api/internal/skgif"
	"github.com/cessda/skgif-api/internal/storage"
	"github.com/cessda/skgif-api/internal/study"
)

// fakeStore serves records in insertion order and remembers the last query.
type fakeStore struct {
	mu      sync.Mutex
	records []*study.Record
	query   storage.Query
	err     error
}

func (f *fakeStore) Get(_ context.Context, id string) (*study.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.records {
		if r.ID() == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Search(_ context.Context, q storage.Query, offset, limit int) ([]*study.Record, error) {
	f.mu.Lock()
	f.query = q
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	start := min(offset, len(f.records))
	end := min(start+limit, len(f.records))
	return f.records[start:end], nil
}

func (f *fakeStore) SearchCount(_ context.Context, _ storage.Query) (int, error) {
	return len(f.records), f.err
}

// fakeTransformer returns a minimal product per record and fails for the IDs
// in fail. The product for "unencodable" has a contribution without an actor.
type fakeTransformer struct {
	fail map[string]bool
}

func (f fakeTransformer) Transform(_ context.Context, rec *study.Record) (*skgif.Product, error) {
	if f.fail[rec.ID()] {
		return nil, errors.New("access mapping unavailable")
	}
	p := &skgif.Product{
		LocalIdentifier: rec.ID(),
		ProductType:     skgif.ProductTypeResearchData,
		Titles:          map[string][]string{},
		Manifestations:  []skgif.Manifestation{},
	}
	if rec.ID() == "unencodable" {
		p.Contributions = []skgif.Contribution{{}}
	}
	return p, nil
}

type fakeVocabularies struct {
	mu    sync.Mutex
	langs []string
	err   error
}

func (f *fakeVocabularies) Ensure(_ context.Context, language string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.langs = append(f.langs, language)
	return f.err
}

func mustRecord(t *testing.T, raw string) *study.Record {
	t.Helper()
	rec, err := study.Decode([]byte(raw))
	require.NoError(t, err)
	return rec
}

func testRecords(t *testing.T, n int) []*study.Record {
	t.Helper()
	var recs []*study.Record
	for i := range n {
		id := string(rune('a' + i))
		recs = append(recs, mustRecord(t, `{"_aggregator_identifier":"`+id+`","study_number":"S`+id+`"}`))
	}
	return recs
}

var testConfig = Config{
	BaseURL:         "https://datacatalogue.cessda.eu",
	Prefix:          "/api",
	DefaultPageSize: 10,
	MaxPageSize:     100,
}

func testTopics(t *testing.T) *elsst.Catalogue {
	t.Helper()
	return elsst.New([]elsst.Concept{
		{ID: "https://elsst.cessda.eu/id/5/b", PrefLabels: map[string]string{"en": "POVERTY", "de": "ARMUT"}},
		{ID: "https://elsst.cessda.eu/id/5/a", PrefLabels: map[string]string{"en": "SOCIAL WELFARE"}, AltLabels: map[string][]string{"en": {"poverty relief"}}},
		{ID: "https://elsst.cessda.eu/id/5/c", PrefLabels: map[string]string{"en": "EDUCATION"}},
	})
}

func newTestServer(t *testing.T, store *fakeStore, opts ...Option) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{WithLogger(logger), WithTopics(testTopics(t))}, opts...)
	return New(store, fakeTransformer{fail: map[string]bool{"bad": true}}, testConfig, opts...).Handler()
}

// response is the decoded body of a JSON-LD response.
type response struct {
	Context []any            `json:"@context"`
	Graph   []map[string]any `json:"@graph"`
	Meta    *skgif.Meta      `json:"meta"`
	Detail  string           `json:"detail"`
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body response
	if strings.Contains(rec.Header().Get("Content-Type"), "json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func graphIDs(body response) []string {
	ids := []string{}
	for _, item := range body.Graph {
		ids = append(ids, item["local_identifier"].(string))
	}
	return ids
}

func TestListProducts(t *testing.T) {
	store := &fakeStore{records: testRecords(t, 15)}
	h := newTestServer(t, store)

	rec, body := get(t, h, "/api/products?page=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ContentType, rec.Header().Get("Content-Type"))

	assert.Equal(t, []string{"k", "l", "m", "n", "o"}, graphIDs(body))
	assert.Equal(t, "product", body.Graph[0]["entity_type"])
	assert.Equal(t, skgif.ContextURL, body.Context[0])

	require.NotNil(t, body.Meta)
	assert.Equal(t, "https://datacatalogue.cessda.eu/api/products?page=2", body.Meta.LocalIdentifier)
	assert.Equal(t, 15, body.Meta.PartOf.TotalItems)
	require.NotNil(t, body.Meta.PreviousPage)
	assert.Nil(t, body.Meta.NextPage)
}

func TestListProducts_Filter(t *testing.T) {
	store := &fakeStore{records: testRecords(t, 1)}
	h := newTestServer(t, store)

	rec, body := get(t, h, "/api/products?filter=cf.search.title_abstract:health,cf.search.title:nurse&page_size=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, storage.Query{Text: []string{"health"}, Title: []string{"nurse"}}, store.query)
	assert.Contains(t, body.Meta.LocalIdentifier, "filter=cf.search.title_abstract%3Ahealth%2Ccf.search.title%3Anurse")
	assert.Contains(t, body.Meta.LocalIdentifier, "page_size=5")
}

func TestListProducts_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		status int
		detail string
	}{
		{"page zero", "/api/products?page=0", http.StatusUnprocessableEntity, "page must be"},
		{"page size too large", "/api/products?page_size=101", http.StatusUnprocessableEntity, "between 1 and 100"},
		{"unsupported filter", "/api/products?filter=product_type:literature", http.StatusUnprocessableEntity, "not implemented"},
		{"unknown filter", "/api/products?filter=colour:blue", http.StatusBadRequest, "Invalid filter keys"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &fakeStore{records: testRecords(t, 3)})
			rec, body := get(t, h, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, body.Detail, tt.detail)
		})
	}
}

func TestListProducts_TransformFailure(t *testing.T) {
	recs := append(testRecords(t, 2), mustRecord(t, `{"_aggregator_identifier":"bad"}`))
	h := newTestServer(t, &fakeStore{records: recs})

	rec, body := get(t, h, "/api/products")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body.Detail, "bad")
}

func TestListProducts_StoreFailure(t *testing.T) {
	h := newTestServer(t, &fakeStore{err: errors.New("disk I/O error")})

	rec, body := get(t, h, "/api/products")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, body.Detail, "disk", "internal errors are not exposed")
}

func TestGetProduct(t *testing.T) {
	store := &fakeStore{records: testRecords(t, 3)}
	h := newTestServer(t, store)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"identifier", "/api/products/b", http.StatusOK},
		{"full URL", "/api/products/https%3A%2F%2Fdatacatalogue.cessda.eu%2Fdetail%2Fb", http.StatusOK},
		{"URL with collapsed scheme", "/api/products/https:/datacatalogue.cessda.eu/detail/b", http.StatusOK},
		{"unknown", "/api/products/zzz", http.StatusNotFound},
		{"empty", "/api/products/", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(t, h, tt.target)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				assert.Equal(t, "Product not found", body.Detail)
				return
			}
			assert.Equal(t, []string{"b"}, graphIDs(body))
			assert.Nil(t, body.Meta)
		})
	}
}

func TestGetProduct_TransformFailure(t *testing.T) {
	h := newTestServer(t, &fakeStore{records: []*study.Record{mustRecord(t, `{"_aggregator_identifier":"bad"}`)}})

	rec, _ := get(t, h, "/api/products/bad")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetProduct_EncodingFailure(t *testing.T) {
	h := newTestServer(t, &fakeStore{records: []*study.Record{mustRecord(t, `{"_aggregator_identifier":"unencodable"}`)}})

	rec, body := get(t, h, "/api/products/unencodable")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "failed to encode response", body.Detail)
	assert.Empty(t, body.Graph)
}

func TestProducts_EnsureVocabularies(t *testing.T) {
	rec := mustRecord(t, `{"_aggregator_identifier":"a","classifications":[
		{"classification":"Health","system_name":"CESSDA Topic Classification","description":"Terveys","language":"fi"},
		{"classification":"Health","system_name":"CESSDA Topic Classification","description":"Health","language":"en"},
		{"classification":"Health.Nutrition","system_name":"CESSDA Topic Classification","description":"Ravitsemus","language":"fi"}
	]}`)
	vocabs := &fakeVocabularies{err: errors.New("vocabulary service down")}
	h := newTestServer(t, &fakeStore{records: []*study.Record{rec}}, WithVocabularies(vocabs))

	resp, _ := get(t, h, "/api/products/a")
	assert.Equal(t, http.StatusOK, resp.Code, "vocabulary failures do not fail the request")
	assert.Equal(t, []string{"fi", "en"}, vocabs.langs)
}

func TestListTopics(t *testing.T) {
	h := newTestServer(t, &fakeStore{})

	tests := []struct {
		name   string
		target string
		want   []string
		total  int
	}{
		{"all in catalogue order", "/api/topics", []string{
			"https://elsst.cessda.eu/id/5/b", "https://elsst.cessda.eu/id/5/a", "https://elsst.cessda.eu/id/5/c"}, 3},
		{"search sorted by URI", "/api/topics?filter=cf.search.labels:poverty", []string{
			"https://elsst.cessda.eu/id/5/a", "https://elsst.cessda.eu/id/5/b"}, 2},
		{"other language", "/api/topics?filter=cf.search.labels:armut,cf.search.language:de", []string{
			"https://elsst.cessda.eu/id/5/b"}, 1},
		{"paged", "/api/topics?page=2&page_size=2", []string{"https://elsst.cessda.eu/id/5/c"}, 3},
		{"past the end", "/api/topics?page=9", []string{}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(t, h, tt.target)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, graphIDs(body))
			assert.Equal(t, tt.total, body.Meta.PartOf.TotalItems)
			if len(body.Graph) > 0 {
				assert.Equal(t, "topic", body.Graph[0]["entity_type"])
				assert.NotEmpty(t, body.Graph[0]["labels"])
			}
		})
	}
}

func TestListTopics_Errors(t *testing.T) {
	h := newTestServer(t, &fakeStore{})

	for _, target := range []string{
		"/api/topics?filter=cf.search.labels:po",
		"/api/topics?filter=cf.search.language:en",
		"/api/topics?filter=cf.search.labels:poverty,cf.search.language:eng",
		"/api/topics?filter=cf.search.labels:poverty,nonsense",
		"/api/topics?page=-1",
	} {
		rec, body := get(t, h, target)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, target)
		assert.NotEmpty(t, body.Detail, target)
	}
}

func TestGetTopic(t *testing.T) {
	h := newTestServer(t, &fakeStore{})

	for _, target := range []string{
		"/api/topics/https%3A%2F%2Felsst.cessda.eu%2Fid%2F5%2Fb",
		"/api/topics/https:/elsst.cessda.eu/id/5/b",
	} {
		rec, body := get(t, h, target)
		require.Equal(t, http.StatusOK, rec.Code, target)
		require.Len(t, body.Graph, 1)
		assert.Equal(t, "https://elsst.cessda.eu/id/5/b", body.Graph[0]["local_identifier"])
		assert.Equal(t, map[string]any{"en": "POVERTY", "de": "ARMUT"}, body.Graph[0]["labels"])
	}

	rec, body := get(t, h, "/api/topics/https%3A%2F%2Felsst.cessda.eu%2Fid%2F5%2Fzzz")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Topic with ID 'https://elsst.cessda.eu/id/5/zzz' not found.", body.Detail)
}

func TestIndexAndHealth(t *testing.T) {
	h := newTestServer(t, &fakeStore{})

	rec, _ := get(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/api/products"`)

	rec, _ = get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec, _ = get(t, h, "/nowhere")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestID(t *testing.T) {
	h := newTestServer(t, &fakeStore{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "trace-123")
	h.ServeHTTP(rec, req)
	assert.Equal(t, "trace-123", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36, "generated IDs are UUIDs")
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newTestServer(t, &fakeStore{records: testRecords(t, 2)}, WithMetrics(reg, reg))

	get(t, h, "/api/products")
	get(t, h, "/api/products/a")
	get(t, h, "/api/products/zzz")
	get(t, h, "/nowhere")

	m := newMetrics(reg) // shares the registered collectors
	require.NotNil(t, m)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET /api/products", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET /api/products/{id...}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET /api/products/{id...}", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("unmatched", "404")))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "skgif_http_requests_total")
}

func TestMetrics_Disabled(t *testing.T) {
	h := newTestServer(t, &fakeStore{})

	rec, _ := get(t, h, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
