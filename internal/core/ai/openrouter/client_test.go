package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-aggregator/internal/core/ai/provider"
)

func TestClient_Generate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"x","choices":[{"message":{"role":"assistant","content":"  Olá, aqui está sua receita!  "}}],"usage":{"total_tokens":42}}`))
	}))
	defer srv.Close()

	c := NewClient(provider.Config{
		APIKey:      "sk-test-key",
		Model:       "test/model",
		BaseURL:     srv.URL,
		Timeout:     time.Second,
		MaxTokens:   300,
		Temperature: 0.5,
	})
	defer c.Close()

	resp, err := c.Generate(context.Background(), &provider.Request{
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: "sys"},
			{Role: provider.RoleUser, Content: "oi"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Olá, aqui está sua receita!", resp.Content)
	assert.Equal(t, 42, resp.Usage.TotalTokens)

	assert.Equal(t, "test/model", got.Model)
	assert.Equal(t, 300, got.MaxTokens)
	assert.Equal(t, 0.5, got.Temperature)
	assert.Len(t, got.Messages, 2)
}

func TestClient_GenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"empty content", http.StatusOK, `{"choices":[{"message":{"content":"   "}}]}`},
		{"not json", http.StatusBadGateway, `<html>oops</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(provider.Config{BaseURL: srv.URL, Timeout: time.Second})
			_, err := c.Generate(context.Background(), &provider.Request{})
			require.Error(t, err)
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(provider.Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Generate(context.Background(), &provider.Request{})
	require.Error(t, err)
}
