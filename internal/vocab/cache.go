package vocab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/cessda/skgif-api/internal/fileutil"
)

const (
	// DefaultTTL is how long a fetched vocabulary is considered fresh.
	DefaultTTL = 7 * 24 * time.Hour

	// DefaultRetryBackoff is how long a failed download is remembered before
	// the language is fetched again.
	DefaultRetryBackoff = 5 * time.Minute

	// NotFoundBackoff is the minimum backoff after the service reported that
	// a language has no vocabulary.
	NotFoundBackoff = time.Hour

	// DefaultFetchTimeout bounds one shared download, rate limiter wait included.
	DefaultFetchTimeout = 30 * time.Second
)

// Fetcher downloads the vocabulary for one language.
type Fetcher interface {
	Fetch(ctx context.Context, language string) (Vocabulary, error)
}

// cacheFile is the on-disk layout of the cache.
type cacheFile struct {
	Entries  map[string]Vocabulary `json:"entries"`
	GroupsTS map[string]float64    `json:"groups_ts"` // unix seconds
}

// Cache is a soft-expiring vocabulary cache keyed by language.
//
// Expired vocabularies are kept and served until a refresh succeeds. Nothing
// is evicted. Reads through Vocabulary never block on the network.
type Cache struct {
	fetcher      Fetcher
	path         string
	ttl          time.Duration
	retryBackoff time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger
	metrics      *cacheMetrics

	mu       sync.RWMutex
	entries  map[string]Vocabulary
	groupsTS map[string]float64
	failures map[string]failure // in memory only

	flight singleflight.Group
	saveMu sync.Mutex
}

// CacheOption configures a Cache.
type CacheOption func(*cacheOptions)

// failure remembers a failed download until retryAt.
type failure struct {
	retryAt time.Time
	err     error
}

type cacheOptions struct {
	path         string
	ttl          time.Duration
	retryBackoff time.Duration
	fetchTimeout time.Duration
	now        func() time.Time
	logger     *slog.Logger
	registerer prometheus.Registerer
}

// WithFile persists the cache to path. Without it the cache lives in memory only.
func WithFile(path string) CacheOption {
	return func(o *cacheOptions) {
		o.path = path
	}
}

// WithTTL sets the freshness period.
func WithTTL(ttl time.Duration) CacheOption {
	return func(o *cacheOptions) {
		o.ttl = ttl
	}
}

// WithRetryBackoff sets how long a failed download is remembered. Zero
// disables the backoff.
func WithRetryBackoff(d time.Duration) CacheOption {
	return func(o *cacheOptions) {
		o.retryBackoff = d
	}
}

// WithFetchTimeout bounds one download.
func WithFetchTimeout(d time.Duration) CacheOption {
	return func(o *cacheOptions) {
		o.fetchTimeout = d
	}
}

// WithClock sets the time source (for testing).
func WithClock(now func() time.Time) CacheOption {
	return func(o *cacheOptions) {
		o.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) CacheOption {
	return func(o *cacheOptions) {
		o.logger = l
	}
}

// WithRegisterer enables Prometheus metrics.
func WithRegisterer(reg prometheus.Registerer) CacheOption {
	return func(o *cacheOptions) {
		o.registerer = reg
	}
}

// NewCache creates an empty cache backed by fetcher.
func NewCache(fetcher Fetcher, opts ...CacheOption) (*Cache, error) {
	o := cacheOptions{
		ttl:          DefaultTTL,
		retryBackoff: DefaultRetryBackoff,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	metrics, err := newCacheMetrics(o.registerer)
	if err != nil {
		return nil, fmt.Errorf("registering vocabulary metrics: %w", err)
	}

	return &Cache{
		fetcher:      fetcher,
		path:         o.path,
		ttl:          o.ttl,
		retryBackoff: o.retryBackoff,
		fetchTimeout: o.fetchTimeout,
		now:          o.now,
		logger:       o.logger,
		metrics:      metrics,
		entries:      make(map[string]Vocabulary),
		groupsTS:     make(map[string]float64),
		failures:     make(map[string]failure),
	}, nil
}

// Load replaces the in-memory state with the cache file. A missing file is not an error.
func (c *Cache) Load() error {
	if c.path == "" {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading vocabulary cache: %w", err)
	}

	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing vocabulary cache %s: %w", c.path, err)
	}
	if f.Entries == nil {
		f.Entries = make(map[string]Vocabulary)
	}
	if f.GroupsTS == nil {
		f.GroupsTS = make(map[string]float64)
	}

	c.mu.Lock()
	c.entries = f.Entries
	c.groupsTS = f.GroupsTS
	c.mu.Unlock()
	return nil
}

// Save writes the in-memory state to the cache file.
func (c *Cache) Save() error {
	if c.path == "" {
		return nil
	}
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.RLock()
	data, err := json.Marshal(cacheFile{Entries: c.entries, GroupsTS: c.groupsTS})
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encoding vocabulary cache: %w", err)
	}

	if err := fileutil.WriteAtomic(c.path, data); err != nil {
		return fmt.Errorf("writing vocabulary cache: %w", err)
	}
	return nil
}

// Vocabulary returns whatever is in memory for language, fresh or stale.
// It returns an empty vocabulary on a miss and never performs I/O.
func (c *Cache) Vocabulary(language string) Vocabulary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.entries[language]; ok {
		return v
	}
	return Vocabulary{}
}

// Languages returns the cached languages in sorted order.
func (c *Cache) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	langs := make([]string, 0, len(c.entries))
	for l := range c.entries {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// FetchedAt returns when the vocabulary for language was last downloaded.
func (c *Cache) FetchedAt(language string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ts, ok := c.groupsTS[language]
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ts * 1000)), true
}

// fresh reports whether language is cached and within its TTL. Callers hold mu.
func (c *Cache) fresh(language string) bool {
	if _, ok := c.entries[language]; !ok {
		return false
	}
	ts := c.groupsTS[language]
	age := c.now().Sub(time.UnixMilli(int64(ts * 1000)))
	return age <= c.ttl
}

// Ensure makes sure a fresh vocabulary for language is in memory, downloading
// it when missing or expired. Concurrent calls for the same language share one
// download, which runs detached from the callers' contexts: a caller whose
// context ends stops waiting without cancelling the download for the others.
// A failed download is not retried until its backoff has passed. On failure
// any stale value is kept and an error wrapping ErrFetch is returned.
func (c *Cache) Ensure(ctx context.Context, language string) error {
	c.mu.RLock()
	fresh := c.fresh(language)
	f, failed := c.failures[language]
	c.mu.RUnlock()
	if fresh {
		c.metrics.recordHit()
		return nil
	}
	c.metrics.recordMiss()
	if failed && c.now().Before(f.retryAt) {
		return fmt.Errorf("%w %q: %w", ErrFetch, language, f.err)
	}

	ch := c.flight.DoChan(language, func() (any, error) {
		c.mu.RLock()
		fresh := c.fresh(language)
		c.mu.RUnlock()
		if fresh {
			return nil, nil
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		return nil, c.refresh(fctx, language)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("%w %q: %w", ErrFetch, language, ctx.Err())
	}
}

func (c *Cache) refresh(ctx context.Context, language string) error {
	v, err := c.fetcher.Fetch(ctx, language)
	c.metrics.recordFetch(language, err)
	if err != nil {
		c.logger.Warn("vocabulary fetch failed",
			slog.String("language", language),
			slog.String("error", err.Error()))
		c.mu.Lock()
		c.failures[language] = failure{retryAt: c.now().Add(c.backoff(err)), err: err}
		c.mu.Unlock()
		return fmt.Errorf("%w %q: %w", ErrFetch, language, err)
	}

	c.mu.Lock()
	c.entries[language] = v
	c.groupsTS[language] = float64(c.now().UnixMilli()) / 1000
	delete(c.failures, language)
	c.mu.Unlock()

	c.logger.Info("vocabulary fetched",
		slog.String("language", language),
		slog.Int("concepts", len(v)))

	if err := c.Save(); err != nil {
		c.logger.Warn("saving vocabulary cache failed", slog.String("error", err.Error()))
	}
	return nil
}

// backoff returns how long the failure err is remembered.
func (c *Cache) backoff(err error) time.Duration {
	if c.retryBackoff > 0 && IsNotFound(err) {
		return max(c.retryBackoff, NotFoundBackoff)
	}
	return c.retryBackoff
}

// Preload loads the cache file and then ensures every language in langs.
// All languages are attempted; the returned error joins the failures.
func (c *Cache) Preload(ctx context.Context, langs []string) error {
	if err := c.Load(); err != nil {
		c.logger.Warn("loading vocabulary cache failed", slog.String("error", err.Error()))
	}

	var errs []error
	for _, l := range langs {
		if err := c.Ensure(ctx, l); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
