package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/cessda/skgif-api/internal/elsst"
	"github.com/cessda/skgif-api/internal/skgif"
	"github.com/cessda/skgif-api/internal/study"
)

// handleListProducts handles GET {prefix}/products.
// Query parameters:
//   - filter: comma-separated key:value pairs
//   - page: 1-based page number
//   - page_size: results per page
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, msg := parsePaging(r, s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	if msg != "" {
		writeError(w, http.StatusUnprocessableEntity, "%s", msg)
		return
	}

	filter := r.URL.Query().Get("filter")
	query, ferr := parseProductFilter(filter)
	if ferr != nil {
		writeError(w, ferr.status, "%s", ferr.detail)
		return
	}

	total, err := s.store.SearchCount(ctx, query)
	if err != nil {
		s.log(r).Error("counting products", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to search products")
		return
	}

	recs, err := s.store.Search(ctx, query, p.offset(), p.pageSize)
	if err != nil {
		s.log(r).Error("searching products", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to search products")
		return
	}

	products := make([]*skgif.Product, 0, len(recs))
	for _, rec := range recs {
		product, err := s.transform(ctx, r, rec)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to transform product %s", rec.ID())
			return
		}
		products = append(products, product)
	}

	meta := buildMeta(s.cfg.url("products"), filter, p, total, s.cfg.DefaultPageSize)
	s.writeJSONLD(w, r, skgif.WrapProducts(products, meta))
}

// handleGetProduct handles GET {prefix}/products/{id...}. The identifier may
// be a full URL, in which case its last path segment is used.
func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := extractIdentifier(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		s.log(r).Error("getting product", slog.String("id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	product, err := s.transform(ctx, r, rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to transform product %s", id)
		return
	}
	s.writeJSONLD(w, r, skgif.WrapProducts([]*skgif.Product{product}, nil))
}

// transform ensures the vocabularies the record is classified in and
// transforms it. Vocabulary failures only degrade the topics.
func (s *Server) transform(ctx context.Context, r *http.Request, rec *study.Record) (*skgif.Product, error) {
	if s.vocabularies != nil {
		for _, lang := range rec.ClassificationLanguages() {
			if err := s.vocabularies.Ensure(ctx, lang); err != nil {
				s.log(r).Warn("vocabulary unavailable",
					slog.String("language", lang), slog.String("record", rec.ID()), slog.Any("error", err))
			}
		}
	}

	product, err := s.transformer.Transform(ctx, rec)
	if err != nil {
		s.log(r).Error("transforming record", slog.String("record", rec.ID()), slog.Any("error", err))
		return nil, err
	}
	return product, nil
}

// extractIdentifier returns the last path segment of an http(s) URL and any
// other identifier unchanged.
func extractIdentifier(id string) string {
	if !strings.HasPrefix(id, "http") {
		return id
	}
	u, err := url.Parse(elsst.RepairURI(id))
	if err != nil {
		return id
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if last := parts[len(parts)-1]; last != "" {
		return last
	}
	return id
}
