// Package transform maps harvested study records onto the SKG-IF entity graph.
//
// A Transformer holds no per-record state. Every call builds its entities from
// scratch, so one Transformer can serve concurrent requests. The only I/O it
// triggers is through its collaborators: vocabulary snapshots, which never
// block, and the access mapping, which may be downloaded on first use.
package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cessda/skgif-api/internal/accessmap"
	"github.com/cessda/skgif-api/internal/skgif"
	"github.com/cessda/skgif-api/internal/study"
	"github.com/cessda/skgif-api/internal/vocab"
)

var (
	// ErrUpstream is returned when a collaborator needed for the record failed.
	ErrUpstream = errors.New("upstream dependency failed")

	// ErrMissingIdentifier is returned for records with neither an aggregator
	// identifier nor a study number.
	ErrMissingIdentifier = errors.New("record has no identifier")
)

// VocabularySource hands out read-only vocabulary snapshots. It must not block;
// a language it does not hold yields an empty vocabulary.
type VocabularySource interface {
	Vocabulary(language string) vocab.Vocabulary
}

// AccessMappingSource provides the access mapping.
type AccessMappingSource interface {
	Mapping(ctx context.Context) (accessmap.Mapping, error)
}

// Transformer converts study records into products.
type Transformer struct {
	vocab       VocabularySource
	access      AccessMappingSource
	dataSources DataSources
	logger      *slog.Logger
	now         func() time.Time
	metrics     *metrics
}

// Option configures a Transformer.
type Option func(*options)

type options struct {
	dataSources *DataSources
	logger      *slog.Logger
	now         func() time.Time
	registerer  prometheus.Registerer
}

// WithDataSources replaces the built-in data source tables.
func WithDataSources(ds DataSources) Option {
	return func(o *options) {
		o.dataSources = &ds
	}
}

// WithLogger sets the logger used to report skipped entities.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock sets the time source of generated local identifiers.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithRegisterer enables Prometheus metrics.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// New creates a Transformer. Either source may be nil: without vocabularies
// topics are grouped by label only, and without an access mapping every
// record that needs one fails with ErrUpstream.
func New(vocabularies VocabularySource, access AccessMappingSource, opts ...Option) *Transformer {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	ds := DefaultDataSources()
	if o.dataSources != nil {
		ds = *o.dataSources
	}

	t := &Transformer{
		vocab:       vocabularies,
		access:      access,
		dataSources: ds,
		logger:      o.logger,
		now:         o.now,
		metrics:     newMetrics(o.registerer),
	}
	if t.metrics == nil && o.registerer != nil {
		t.logger.Warn("transform metrics disabled: registration failed")
	}
	return t
}

// run carries the state of one transformation: the identifier generator,
// so that every generated token of a product shares one timestamp, and a
// logger tagged with the record.
type run struct {
	*Transformer
	ids skgif.IDGenerator
	log *slog.Logger
}

func (t *Transformer) newRun(recordID string) *run {
	log := t.logger
	if recordID != "" {
		log = log.With(slog.String("record", recordID))
	}
	return &run{Transformer: t, ids: skgif.NewIDGenerator(t.now()), log: log}
}

// skip reports an entity that was left out of the product.
func (r *run) skip(entity, reason string, attrs ...slog.Attr) {
	r.metrics.recordSkip(entity)
	args := []any{slog.String("entity", entity), slog.String("reason", reason)}
	for _, a := range attrs {
		args = append(args, a)
	}
	r.log.Warn("skipping entity", args...)
}

// Transform builds the product for one record. The record is not modified.
//
// Malformed parts of the record are skipped and reported through the logger
// and the skipped-entity metric. The only errors are ErrMissingIdentifier and
// ErrUpstream when the access mapping is needed but cannot be obtained.
func (t *Transformer) Transform(ctx context.Context, rec *study.Record) (*skgif.Product, error) {
	if rec == nil {
		return nil, ErrMissingIdentifier
	}
	id := rec.ID()
	if id == "" {
		t.metrics.recordTransform("error")
		return nil, ErrMissingIdentifier
	}

	r := t.newRun(id)
	r.reportProblems(rec.Problems)

	rights, err := r.accessRights(ctx, rec)
	if err != nil {
		t.metrics.recordTransform("error")
		return nil, err
	}

	p := &skgif.Product{
		LocalIdentifier: id,
		ProductType:     skgif.ProductTypeResearchData,
		Identifiers:     productIdentifiers(rec.Identifiers),
		Titles:          titles(rec.Titles),
		Abstracts:       abstracts(rec.Abstracts),
		Topics:          r.topics(rec.Classifications),
		Contributions:   r.contributions(rec.PrincipalInvestigators),
		Manifestations: []skgif.Manifestation{{
			Dates:        dates(rec),
			AccessRights: rights,
			Biblio:       r.biblio(rec),
		}},
		Funding: r.funding(rec),
	}
	t.metrics.recordTransform("ok")
	return p, nil
}

func (r *run) reportProblems(problems []error) {
	for _, p := range problems {
		entity := "record"
		var entryErr *study.EntryError
		if errors.As(p, &entryErr) {
			entity = entryErr.Field
		}
		r.skip(entity, p.Error())
	}
}

// Topics converts classifications into deduplicated topics.
func (t *Transformer) Topics(classifications []study.Classification) []skgif.Topic {
	return t.newRun("").topics(classifications)
}

// Contributions builds the contributions of a record, or nil when it has none.
// The builders below accept a nil record and treat it as empty.
func (t *Transformer) Contributions(rec *study.Record) []skgif.Contribution {
	rec = orEmpty(rec)
	return t.newRun(rec.ID()).contributions(rec.PrincipalInvestigators)
}

// Biblio builds the venue and hosting data source of a record.
func (t *Transformer) Biblio(rec *study.Record) skgif.Biblio {
	rec = orEmpty(rec)
	return t.newRun(rec.ID()).biblio(rec)
}

// Funding builds the grants of a record, or nil when it has none.
func (t *Transformer) Funding(rec *study.Record) []skgif.Grant {
	rec = orEmpty(rec)
	return t.newRun(rec.ID()).funding(rec)
}

// AccessRights resolves the access rights of a record, consulting the access
// mapping only when the record has both a distributor and a description.
func (t *Transformer) AccessRights(ctx context.Context, rec *study.Record) (skgif.AccessRights, error) {
	rec = orEmpty(rec)
	return t.newRun(rec.ID()).accessRights(ctx, rec)
}

// orEmpty treats a nil record as a record without entries.
func orEmpty(rec *study.Record) *study.Record {
	if rec == nil {
		return &study.Record{}
	}
	return rec
}

func (r *run) accessRights(ctx context.Context, rec *study.Record) (skgif.AccessRights, error) {
	abbr := DistributorAbbreviation(rec)
	desc := AccessDescription(rec)
	if abbr == "" || desc == "" {
		return shapeAccessRights(accessmap.StatusUnavailable, desc), nil
	}

	if r.access == nil {
		return skgif.AccessRights{}, fmt.Errorf("%w: %w", ErrUpstream, accessmap.ErrUnavailable)
	}
	m, err := r.access.Mapping(ctx)
	if err != nil {
		return skgif.AccessRights{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return shapeAccessRights(m.Category(abbr, desc), desc), nil
}
