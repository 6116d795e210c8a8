// Package vocab fetches and caches the CESSDA Topic Classification vocabulary.
package vocab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultAPIURL is the CESSDA vocabulary service endpoint for the topic classification.
	DefaultAPIURL = "https://vocabularies.cessda.eu/v2/codes/TopicClassification"

	// DefaultVersion is the vocabulary version requested by default.
	DefaultVersion = "4.2.2"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 10 * time.Second

	// RateLimit is the default number of requests per second.
	RateLimit = 2.0

	// codePlaceholder is substituted with the concept id in concept URIs.
	codePlaceholder = "[CODE]"
)

// Concept is one entry of a vocabulary.
type Concept struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Vocabulary maps a notation to its concept for one language.
// Values handed out by Cache are shared and must not be modified.
type Vocabulary map[string]Concept

// Client is a rate-limited HTTP client for the vocabulary service.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	version    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets the vocabulary endpoint (for testing or a mirror).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithVersion sets the vocabulary version.
func WithVersion(v string) ClientOption {
	return func(c *Client) {
		c.version = v
	}
}

// WithRateLimit sets the maximum request rate per second.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewClient creates a new vocabulary client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    DefaultAPIURL,
		version:    DefaultVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// vocabItem is one element of the service's JSON array.
type vocabItem struct {
	ID       itemID `json:"id"`
	Notation string `json:"notation"`
	Title    string `json:"title"`
	URI      string `json:"uri"`
}

// itemID accepts numeric and string ids.
type itemID string

func (i *itemID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*i = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*i = itemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("cannot unmarshal %s into id", string(data))
	}
	*i = itemID(n.String())
	return nil
}

// Fetch downloads the vocabulary for one language.
func (c *Client) Fetch(ctx context.Context, language string) (Vocabulary, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(c.version), url.PathEscape(language))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp, language); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrNetworkError, err)
	}
	return parseVocabulary(body)
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response, language string) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &APIError{StatusCode: resp.StatusCode, Message: "vocabulary not found", Language: language}
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 400:
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("HTTP %d", resp.StatusCode), Language: language}
	}
	return nil
}

// parseVocabulary converts the service response into a notation index.
// Items without a notation are ignored.
func parseVocabulary(data []byte) (Vocabulary, error) {
	var items []vocabItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	v := make(Vocabulary, len(items))
	for _, item := range items {
		if item.Notation == "" {
			continue
		}
		uri := item.URI
		if strings.Contains(uri, codePlaceholder) && item.ID != "" {
			uri = strings.ReplaceAll(uri, codePlaceholder, string(item.ID))
		}
		v[item.Notation] = Concept{Title: item.Title, URI: uri}
	}
	return v, nil
}
