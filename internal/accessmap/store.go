package accessmap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/cessda/skgif-api/internal/fileutil"
)

// DefaultURL is the mapping file published with the CESSDA indexer.
const DefaultURL = "https://raw.githubusercontent.com/cessda/cessda.cdc.osmh-indexer.cmm/main/src/main/resources/data_access_mappings.json"

// DefaultTimeout is the default HTTP request timeout. It also bounds a
// shared load.
const DefaultTimeout = 10 * time.Second

// ErrUnavailable is returned when the mapping can be neither read nor downloaded.
var ErrUnavailable = errors.New("access mapping unavailable")

// Store serves the access mapping from memory, then the local file, then the
// remote URL. A download is written to the local file before it is served.
// Failures are never cached.
type Store struct {
	url        string
	path       string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	fetches    *prometheus.CounterVec

	mu      sync.RWMutex
	mapping Mapping

	flight singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

// WithURL sets the remote mapping URL.
func WithURL(u string) Option {
	return func(s *Store) {
		s.url = u
	}
}

// WithFile sets the local copy of the mapping file.
func WithFile(path string) Option {
	return func(s *Store) {
		s.path = path
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Store) {
		s.httpClient = hc
	}
}

// WithTimeout bounds one shared load of the mapping.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithRegisterer enables Prometheus metrics.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Store) {
		if reg == nil {
			return
		}
		s.fetches = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skgif",
			Subsystem: "accessmap",
			Name:      "fetches_total",
			Help:      "Number of access mapping downloads by result",
		}, []string{"result"})
		if err := reg.Register(s.fetches); err != nil {
			s.fetches = nil
		}
	}
}

// NewStore creates a store. Nothing is read until Mapping is called.
func NewStore(opts ...Option) *Store {
	s := &Store{
		url:        DefaultURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Mapping returns the access mapping, loading it on first use.
// Concurrent first calls share one load. The load is detached from the
// callers' contexts, so a caller that gives up does not fail the others and
// a completed download is still kept.
func (s *Store) Mapping(ctx context.Context) (Mapping, error) {
	s.mu.RLock()
	m := s.mapping
	s.mu.RUnlock()
	if m != nil {
		return m, nil
	}

	ch := s.flight.DoChan("mapping", func() (any, error) {
		s.mu.RLock()
		m := s.mapping
		s.mu.RUnlock()
		if m != nil {
			return m, nil
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.load(lctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Mapping), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	}
}

func (s *Store) load(ctx context.Context) (Mapping, error) {
	if m, ok := s.readFile(); ok {
		s.set(m)
		return m, nil
	}

	data, err := s.download(ctx)
	if err != nil {
		s.recordFetch("error")
		s.logger.Warn("access mapping download failed",
			slog.String("url", s.url),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	m, err := Parse(data)
	if err != nil {
		s.recordFetch("error")
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	s.recordFetch("ok")

	if s.path != "" {
		if err := fileutil.WriteAtomic(s.path, data); err != nil {
			s.logger.Warn("writing access mapping file failed",
				slog.String("path", s.path),
				slog.String("error", err.Error()))
		}
	}

	s.logger.Info("access mapping downloaded", slog.Int("archives", len(m)))
	s.set(m)
	return m, nil
}

// readFile loads the local copy. A corrupt file is ignored so that a fresh
// download can replace it.
func (s *Store) readFile() (Mapping, bool) {
	if s.path == "" {
		return nil, false
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("reading access mapping file failed", slog.String("error", err.Error()))
		}
		return nil, false
	}
	m, err := Parse(data)
	if err != nil {
		s.logger.Warn("ignoring corrupt access mapping file",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		return nil, false
	}
	return m, true
}

func (s *Store) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return data, nil
}

func (s *Store) set(m Mapping) {
	s.mu.Lock()
	s.mapping = m
	s.mu.Unlock()
}

func (s *Store) recordFetch(result string) {
	if s.fetches == nil {
		return
	}
	s.fetches.WithLabelValues(result).Inc()
}

// Invalidate drops the in-memory mapping and deletes the local file.
func (s *Store) Invalidate() error {
	s.set(nil)
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing access mapping file: %w", err)
	}
	return nil
}

// Refresh invalidates the mapping and downloads it again.
func (s *Store) Refresh(ctx context.Context) (Mapping, error) {
	if err := s.Invalidate(); err != nil {
		return nil, err
	}
	return s.Mapping(ctx)
}
