package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-chatbot-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, reply string, seen *map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "chatcmpl-1",
			"choices": []map[string]interface{}{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatSendsHistoryAndOptions(t *testing.T) {
	var body map[string]interface{}
	srv := newTestServer(t, "Hello there", &body)
	provider := NewOpenAIProvider("key", srv.URL, "")

	res, err := provider.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "be brief"},
		{Role: llm.RoleUser, Content: "hi"},
	}, llm.WithTemperature(0.5), llm.WithMaxTokens(20))
	require.NoError(t, err)
	assert.Equal(t, "Hello there", res)

	assert.Equal(t, "gpt-3.5-turbo", body["model"])
	assert.EqualValues(t, 20, body["max_tokens"])
	assert.InDelta(t, 0.5, body["temperature"], 0.0001)
	messages, ok := body["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
}

func TestChatEmptyReply(t *testing.T) {
	srv := newTestServer(t, "   ", nil)
	provider := NewOpenAIProvider("key", srv.URL, "gpt-4o-mini")

	_, err := provider.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
	assert.Equal(t, "gpt-4o-mini", provider.ModelName())
}

func TestChatServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider("key", srv.URL, "").Generate(context.Background(), "hi")
	assert.Error(t, err)
}
