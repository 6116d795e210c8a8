package skgif

// JSON-LD context of every response.
const (
	ContextURL  = "https://w3id.org/skg-if/context/1.0.1/skg-if.json"
	ContextBase = "https://w3id.org/skg-if/sandbox/cessda/"
)

// Result page entity types.
const (
	EntitySearchResultPage = "search_result_page"
	EntitySearchResult     = "search_result"
)

// Document is a JSON-LD envelope around one or more entities.
type Document struct {
	Context []any `json:"@context"`
	Graph   []any `json:"@graph"`
	Meta    *Meta `json:"meta,omitempty"`
}

// Page points at one page of a search result.
type Page struct {
	LocalIdentifier string `json:"local_identifier"`
	EntityType      string `json:"entity_type"`
}

// ResultSet describes the whole search result a page belongs to.
type ResultSet struct {
	LocalIdentifier string `json:"local_identifier"`
	EntityType      string `json:"entity_type"`
	TotalItems      int    `json:"total_items"`
	FirstPage       *Page  `json:"first_page,omitempty"`
	LastPage        *Page  `json:"last_page,omitempty"`
}

// Meta is the pagination block of a list response.
type Meta struct {
	LocalIdentifier string    `json:"local_identifier"`
	EntityType      string    `json:"entity_type"`
	PreviousPage    *Page     `json:"previous_page,omitempty"`
	NextPage        *Page     `json:"next_page,omitempty"`
	PartOf          ResultSet `json:"part_of"`
}

// NewPage returns a result page reference.
func NewPage(url string) *Page {
	return &Page{LocalIdentifier: url, EntityType: EntitySearchResultPage}
}

// Wrap places entities in a JSON-LD document. meta may be nil.
func Wrap(graph []any, meta *Meta) Document {
	if graph == nil {
		graph = []any{}
	}
	return Document{
		Context: []any{ContextURL, map[string]string{"@base": ContextBase}},
		Graph:   graph,
		Meta:    meta,
	}
}

// WrapProducts wraps products in a JSON-LD document.
func WrapProducts(products []*Product, meta *Meta) Document {
	graph := make([]any, len(products))
	for i, p := range products {
		graph[i] = p
	}
	return Wrap(graph, meta)
}
