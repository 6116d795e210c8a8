// Package api serves products and topics as SKG-IF JSON-LD over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cessda/skgif-api/internal/elsst"
	"github.com/cessda/skgif-api/internal/skgif"
	"github.com/cessda/skgif-api/internal/storage"
	"github.com/cessda/skgif-api/internal/study"
)

// ContentType is the media type of every JSON-LD response.
const ContentType = "application/ld+json"

// Store finds harvested study records.
type Store interface {
	Get(ctx context.Context, id string) (*study.Record, error)
	Search(ctx context.Context, q storage.Query, offset, limit int) ([]*study.Record, error)
	SearchCount(ctx context.Context, q storage.Query) (int, error)
}

// Transformer turns a record into a product.
type Transformer interface {
	Transform(ctx context.Context, rec *study.Record) (*skgif.Product, error)
}

// Vocabularies fetches the topic vocabulary of a language before records
// classified in it are transformed.
type Vocabularies interface {
	Ensure(ctx context.Context, language string) error
}

// Topics is the catalogue served under /topics.
type Topics interface {
	All() []elsst.Concept
	Get(uri string) (elsst.Concept, bool)
	Search(term, language string) ([]elsst.Concept, error)
}

// Config holds the public addressing and paging settings.
type Config struct {
	// BaseURL is the public URL of the service, without the prefix.
	BaseURL string
	// Prefix is the path every API route lives under, e.g. "/api".
	Prefix          string
	DefaultPageSize int
	MaxPageSize     int
}

// url returns the public URL of an endpoint under the prefix.
func (c Config) url(endpoint string) string {
	parts := []string{strings.TrimRight(c.BaseURL, "/")}
	if p := strings.Trim(c.Prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	return strings.Join(append(parts, endpoint), "/")
}

// route returns the mux path of an endpoint under the prefix.
func (c Config) route(endpoint string) string {
	p := strings.Trim(c.Prefix, "/")
	if p == "" {
		return "/" + endpoint
	}
	return "/" + p + "/" + endpoint
}

// Server handles the HTTP API.
type Server struct {
	store        Store
	transformer  Transformer
	vocabularies Vocabularies
	topics       Topics
	cfg          Config
	logger       *slog.Logger
	gatherer     prometheus.Gatherer
	metrics      *metrics
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for access logs and handler errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithVocabularies makes product handlers ensure the vocabularies of each
// record's classification languages before transforming it.
func WithVocabularies(v Vocabularies) Option {
	return func(s *Server) {
		s.vocabularies = v
	}
}

// WithTopics sets the topic catalogue. Without it /topics serves nothing.
func WithTopics(t Topics) Option {
	return func(s *Server) {
		s.topics = t
	}
}

// WithMetrics registers request metrics with reg and serves g on /metrics.
// Either may be nil.
func WithMetrics(reg prometheus.Registerer, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = newMetrics(reg)
		s.gatherer = g
	}
}

// New creates a Server.
func New(store Store, transformer Transformer, cfg Config, opts ...Option) *Server {
	s := &Server{
		store:       store,
		transformer: transformer,
		cfg:         cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.topics == nil {
		s.topics = elsst.New(nil)
	}
	if s.cfg.DefaultPageSize < 1 {
		s.cfg.DefaultPageSize = 10
	}
	if s.cfg.MaxPageSize < s.cfg.DefaultPageSize {
		s.cfg.MaxPageSize = s.cfg.DefaultPageSize
	}
	return s
}

// Handler returns the routed handler wrapped in the request middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	products := s.cfg.route("products")
	mux.HandleFunc("GET "+products, s.handleListProducts)
	mux.HandleFunc("GET "+products+"/{id...}", s.handleGetProduct)

	topics := s.cfg.route("topics")
	mux.HandleFunc("GET "+topics, s.handleListTopics)
	mux.HandleFunc("GET "+topics+"/{id...}", s.handleGetTopic)

	return s.withRequestID(s.withAccessLog(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

var indexPage = template.Must(template.New("index").Parse(`<html>
<head><title>CESSDA SKG-IF API</title></head>
<body>
<h1>CESSDA Data Catalogue SKG-IF API</h1>
<h2>Endpoints</h2>
<p><a href="{{.Products}}">Products</a></p>
<p><a href="{{.Products}}?page_size={{.MaxPageSize}}">Products, {{.MaxPageSize}} per page ({{.DefaultPageSize}} by default)</a></p>
<p><a href="{{.Products}}?filter=cf.search.title_abstract:health">Search titles and abstracts (health)</a></p>
<p><a href="{{.Products}}?filter=cf.search.title_abstract:health,cf.search.title_abstract:nurse">Search titles and abstracts with two terms (health and nurse)</a></p>
<p><a href="{{.Products}}?filter=cf.search.title:election">Search titles (election)</a></p>
<p><a href="{{.Topics}}?filter=cf.search.labels:poverty,cf.search.language:en">Topics (poverty in English)</a></p>
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := indexPage.Execute(w, map[string]any{
		"Products":        s.cfg.route("products"),
		"Topics":          s.cfg.route("topics"),
		"DefaultPageSize": s.cfg.DefaultPageSize,
		"MaxPageSize":     s.cfg.MaxPageSize,
	})
	if err != nil {
		s.log(r).Error("rendering index", slog.Any("error", err))
	}
}

// log returns the server logger tagged with the request ID.
func (s *Server) log(r *http.Request) *slog.Logger {
	if id := RequestID(r.Context()); id != "" {
		return s.logger.With(slog.String("request_id", id))
	}
	return s.logger
}

// writeJSONLD encodes doc before writing anything, so an encoding failure
// becomes a 500 instead of a truncated 200.
func (s *Server) writeJSONLD(w http.ResponseWriter, r *http.Request, doc skgif.Document) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		s.log(r).Error("encoding response", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Detail: fmt.Sprintf(format, args...)})
}
