package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"memoria/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Generate(t *testing.T) {
	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  A heartfelt memorial. #RIP  "}}]}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL("test-key", srv.URL)
	text, err := client.Generate(context.Background(), "John Doe", "[1] PAGE TITLE: Obituary PAGE SNIPPET: Beloved father.")
	require.NoError(t, err)
	assert.Equal(t, "A heartfelt memorial. #RIP", text)

	assert.Equal(t, "deepseek-ai/DeepSeek-V3-0324", captured["model"])
	assert.Equal(t, 0.5, captured["temperature"])
	assert.Equal(t, 0.7, captured["top_p"])
	assert.Equal(t, float64(2048), captured["max_tokens"])

	messages := captured["messages"].([]interface{})
	require.Len(t, messages, 1)
	content := messages[0].(map[string]interface{})["content"].(string)
	assert.Contains(t, content, "Veteran: John Doe")
	assert.Contains(t, content, "Extracted Snippets:")
	assert.Contains(t, content, "Beloved father.")
}

func TestClient_Generate_EmptyQuery(t *testing.T) {
	client := NewClientWithBaseURL("test-key", "http://localhost:0")
	_, err := client.Generate(context.Background(), " ", "summary")

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestClient_Generate_ProviderErrorForwarded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"message":"You have exceeded your monthly included credits"}}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL("test-key", srv.URL)
	_, err := client.Generate(context.Background(), "John Doe", "")

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UPSTREAM_ERROR", appErr.Code)
	assert.Contains(t, err.Error(), "monthly included credits")
}

func TestClient_Generate_EmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL("test-key", srv.URL)
	_, err := client.Generate(context.Background(), "John Doe", "")

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UPSTREAM_ERROR", appErr.Code)
}
