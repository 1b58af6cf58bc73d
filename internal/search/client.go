// Package search wraps the SerpAPI Google endpoints used to research a
// person before writing a memorial post.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"memoria/internal/middleware"
	"memoria/internal/models"
)

const (
	defaultBaseURL = "https://serpapi.com"
	requestTimeout = 15 * time.Second
	maxThumbnails  = 5
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a local
// server.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// WebResult carries the query back alongside the aggregated snippet
// text so the caller can feed both straight into text generation.
type WebResult struct {
	Query   string `json:"q"`
	Summary string `json:"summary"`
}

type organicResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
}

type imageResult struct {
	Thumbnail string `json:"thumbnail"`
}

type searchResponse struct {
	OrganicResults []organicResult `json:"organic_results"`
	ImagesResults  []imageResult   `json:"images_results"`
}

// Web runs a Google web search and flattens every organic result into
// one position-tagged summary string.
func (c *Client) Web(ctx context.Context, query string) (*WebResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationError("Search query is required")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("location", "United States")
	params.Set("hl", "en")
	params.Set("gl", "us")
	params.Set("google_domain", "google.com")
	params.Set("api_key", c.apiKey)

	resp, err := c.do(ctx, params)
	if err != nil {
		return nil, err
	}

	if len(resp.OrganicResults) == 0 {
		return nil, &models.AppError{Code: "NOT_FOUND", Message: "No results found."}
	}

	var sb strings.Builder
	for _, r := range resp.OrganicResults {
		fmt.Fprintf(&sb, "[%d] PAGE TITLE: %s PAGE SNIPPET: %s\n", r.Position, r.Title, r.Snippet)
	}
	return &WebResult{Query: query, Summary: sb.String()}, nil
}

// Images runs a Google image search and returns the first few
// thumbnail URLs.
func (c *Client) Images(ctx context.Context, query string) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationError("Search query is required")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("engine", "google_images")
	params.Set("hl", "en")
	params.Set("gl", "us")
	params.Set("google_domain", "google.com")
	params.Set("api_key", c.apiKey)

	resp, err := c.do(ctx, params)
	if err != nil {
		return nil, err
	}

	if len(resp.ImagesResults) == 0 {
		return nil, &models.AppError{Code: "NOT_FOUND", Message: "No image results found."}
	}

	limit := len(resp.ImagesResults)
	if limit > maxThumbnails {
		limit = maxThumbnails
	}
	thumbnails := make([]string, 0, limit)
	for _, r := range resp.ImagesResults[:limit] {
		thumbnails = append(thumbnails, r.Thumbnail)
	}
	return thumbnails, nil
}

func (c *Client) do(ctx context.Context, params url.Values) (*searchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		middleware.UpstreamRequests.WithLabelValues("serpapi", "error").Inc()
		return nil, models.NewUpstreamError("search", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		middleware.UpstreamRequests.WithLabelValues("serpapi", "error").Inc()
		return nil, models.NewUpstreamError("search",
			fmt.Errorf("unexpected status %d", res.StatusCode))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		middleware.UpstreamRequests.WithLabelValues("serpapi", "error").Inc()
		return nil, models.NewUpstreamError("search", err)
	}

	middleware.UpstreamRequests.WithLabelValues("serpapi", "success").Inc()
	return &parsed, nil
}
