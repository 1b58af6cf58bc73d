// Package ai generates memorial post drafts through the Hugging Face
// inference router (fireworks-ai provider, OpenAI-compatible API).
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"memoria/internal/middleware"
	"memoria/internal/models"
)

const (
	defaultBaseURL = "https://router.huggingface.co/fireworks-ai/inference"
	model          = "deepseek-ai/DeepSeek-V3-0324"
	requestTimeout = 60 * time.Second

	temperature = 0.5
	topP        = 0.7
	maxTokens   = 2048
)

// examplePost anchors the model's tone and format. The instructions ask
// for plain text with hashtags, in the style of this sample.
const examplePost = "On April 3rd, 2008, SGT Nicholas A. Robertson, died from wounds sustained during combat in the Zahn Khan District " +
	"of Afghanistan the day before while serving as a member of Special Operations Team Alpha. Nick, as he was known to " +
	"family and friends, was an accomplished soldier who used his advanced linguistic and cryptologic skills to exploit enemy " +
	"communications and protect forces on the front lines. May we never forget his commitment to service and sacrifice and honor " +
	"his legacy of success and dedication. RIP SGT Robertson. #tyfys #AmericanHero #DIMFRemembers\n\n"

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

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate writes a memorial draft for the named person from the search
// snippet summary. The returned text is trimmed model output.
func (c *Client) Generate(ctx context.Context, query, summary string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", models.NewValidationError("Query is required")
	}

	prompt := "Create a respectful and heartfelt memorial for a fallen veteran using the following data. " +
		"Do not include markdown punctuation. Add hashtags. This is an example post.\n\n" +
		examplePost +
		"Veteran: " + query +
		" \n\nExtracted Snippets:\n\n" + summary

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", models.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", models.NewInternalError(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		middleware.UpstreamRequests.WithLabelValues("huggingface", "error").Inc()
		return "", models.NewUpstreamError("text generation", err)
	}
	defer res.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		middleware.UpstreamRequests.WithLabelValues("huggingface", "error").Inc()
		return "", models.NewUpstreamError("text generation", err)
	}

	if res.StatusCode != http.StatusOK {
		middleware.UpstreamRequests.WithLabelValues("huggingface", "error").Inc()
		if parsed.Error != nil && parsed.Error.Message != "" {
			return "", models.NewUpstreamError("text generation",
				fmt.Errorf("%s", parsed.Error.Message))
		}
		return "", models.NewUpstreamError("text generation",
			fmt.Errorf("unexpected status %d", res.StatusCode))
	}

	if len(parsed.Choices) == 0 {
		middleware.UpstreamRequests.WithLabelValues("huggingface", "error").Inc()
		return "", models.NewUpstreamError("text generation",
			fmt.Errorf("empty completion"))
	}

	middleware.UpstreamRequests.WithLabelValues("huggingface", "success").Inc()
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
