package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/cessda/skgif-api/internal/skgif"
)

// paging is the validated page selection of a list request.
type paging struct {
	page     int
	pageSize int
}

func (p paging) offset() int {
	return (p.page - 1) * p.pageSize
}

// parsePaging reads page and page_size. maxSize 0 leaves page_size unbounded.
// It returns the message to answer 422 with when a value is invalid.
func parsePaging(r *http.Request, defaultSize, maxSize int) (paging, string) {
	p := paging{page: 1, pageSize: defaultSize}
	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, "page must be an integer greater than or equal to 1"
		}
		p.page = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || (maxSize > 0 && n > maxSize) {
			if maxSize > 0 {
				return p, "page_size must be an integer between 1 and " + strconv.Itoa(maxSize)
			}
			return p, "page_size must be an integer greater than or equal to 1"
		}
		p.pageSize = n
	}
	return p, ""
}

// pageURL builds a result link. page 0 leaves out the paging parameters and
// page_size is left out when it equals defaultSize.
func pageURL(apiURL, filter string, page, pageSize, defaultSize int) string {
	v := url.Values{}
	if filter != "" {
		v.Set("filter", filter)
	}
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
		if pageSize != defaultSize {
			v.Set("page_size", strconv.Itoa(pageSize))
		}
	}
	if len(v) == 0 {
		return apiURL
	}
	return apiURL + "?" + v.Encode()
}

// buildMeta describes the position of one page in a search result. Previous
// and next links appear only when the result has pages; the first and last
// page links only when it has more than one.
func buildMeta(apiURL, filter string, p paging, total, defaultSize int) *skgif.Meta {
	totalPages := 0
	if total > 0 {
		totalPages = (total + p.pageSize - 1) / p.pageSize
	}
	link := func(page int) *skgif.Page {
		return skgif.NewPage(pageURL(apiURL, filter, page, p.pageSize, defaultSize))
	}

	meta := &skgif.Meta{
		LocalIdentifier: pageURL(apiURL, filter, p.page, p.pageSize, defaultSize),
		EntityType:      skgif.EntitySearchResultPage,
		PartOf: skgif.ResultSet{
			LocalIdentifier: pageURL(apiURL, filter, 0, p.pageSize, defaultSize),
			EntityType:      skgif.EntitySearchResult,
			TotalItems:      total,
		},
	}
	if totalPages > 0 && p.page > 1 {
		meta.PreviousPage = link(p.page - 1)
	}
	if totalPages > 0 && p.page < totalPages {
		meta.NextPage = link(p.page + 1)
	}
	if totalPages > 1 {
		meta.PartOf.FirstPage = link(1)
		meta.PartOf.LastPage = link(totalPages)
	}
	return meta
}
