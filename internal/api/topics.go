package api

import (
	"errors"
	"net/http"

	"github.com/cessda/skgif-api/internal/elsst"
	"github.com/cessda/skgif-api/internal/skgif"
)

// handleListTopics handles GET {prefix}/topics. Without a filter every topic
// is listed in catalogue order; with one, the matches are sorted by URI.
func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	p, msg := parsePaging(r, s.cfg.DefaultPageSize, 0)
	if msg != "" {
		writeError(w, http.StatusUnprocessableEntity, "%s", msg)
		return
	}

	filter := r.URL.Query().Get("filter")
	var concepts []elsst.Concept
	if filter == "" {
		concepts = s.topics.All()
	} else {
		f, ferr := parseTopicFilter(filter)
		if ferr != nil {
			writeError(w, ferr.status, "%s", ferr.detail)
			return
		}
		var err error
		concepts, err = s.topics.Search(f.labels, f.language)
		switch {
		case errors.Is(err, elsst.ErrTermTooShort):
			writeError(w, http.StatusUnprocessableEntity, "A 'cf.search.labels' key with a value of at least %d characters must be provided in the filter.", elsst.MinSearchLength)
			return
		case errors.Is(err, elsst.ErrInvalidLanguage):
			writeError(w, http.StatusUnprocessableEntity, "If provided, the value for 'cf.search.language' must be a 2-letter ISO 639-1 code.")
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, "failed to search topics")
			return
		}
	}

	start := min(p.offset(), len(concepts))
	end := min(start+p.pageSize, len(concepts))
	graph := make([]any, 0, end-start)
	for _, c := range concepts[start:end] {
		graph = append(graph, c.Term())
	}

	meta := buildMeta(s.cfg.url("topics"), filter, p, len(concepts), s.cfg.DefaultPageSize)
	s.writeJSONLD(w, r, skgif.Wrap(graph, meta))
}

// handleGetTopic handles GET {prefix}/topics/{id...} where id is the topic
// URI, either percent-encoded or as a raw path.
func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	id := elsst.RepairURI(r.PathValue("id"))
	concept, ok := s.topics.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Topic with ID '%s' not found.", id)
		return
	}
	s.writeJSONLD(w, r, skgif.Wrap([]any{concept.Term()}, nil))
}
