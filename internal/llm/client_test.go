package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) *Config {
	return &Config{
		APIKey:         "test-key",
		APIURL:         url,
		Model:          "test-model",
		EmbeddingModel: "test-embedding",
		MaxTokens:      1000,
		Temperature:    0.7,
		Timeout:        5,
		MaxRetries:     3,
		InitialBackoff: 200 * time.Millisecond,
	}
}

// newTestClient builds a client whose sleeps are recorded instead of waited.
func newTestClient(t *testing.T, url string) (*Client, *[]time.Duration) {
	t.Helper()
	client, err := NewClient(testConfig(url))
	require.NoError(t, err)

	var slept []time.Duration
	client.sleep = func(_ context.Context, d time.Duration) {
		slept = append(slept, d)
	}
	return client, &slept
}

func completionBody(content string) string {
	return `{
		"id":"chatcmpl-1",
		"object":"chat.completion",
		"created":123,
		"model":"test-model",
		"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"` + content + `"}}],
		"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}
	}`
}

func TestNewClient_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := NewClient(&Config{APIURL: "https://example.com", Model: "m", MaxTokens: 100, Timeout: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestInvoke_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody("hello")))
	}))
	t.Cleanup(server.Close)

	client, slept := newTestClient(t, server.URL)
	content, err := client.Invoke(context.Background(), "say hello", InvokeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
	assert.Empty(t, *slept)
}

func TestInvoke_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody("recovered")))
	}))
	t.Cleanup(server.Close)

	client, slept := newTestClient(t, server.URL)
	content, err := client.Invoke(context.Background(), "prompt", InvokeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", content)

	// fails twice then succeeds: exactly 3 calls, delays of 200ms then 400ms
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	require.Len(t, *slept, 2)
	assert.Equal(t, 200*time.Millisecond, (*slept)[0])
	assert.Equal(t, 400*time.Millisecond, (*slept)[1])
}

func TestInvoke_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client, slept := newTestClient(t, server.URL)
	_, err := client.Invoke(context.Background(), "prompt", InvokeOptions{})
	require.Error(t, err)

	var unavailable *ModelUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, 3, unavailable.Attempts)
	assert.Equal(t, 600*time.Millisecond, unavailable.Waited)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Len(t, *slept, 2)
}

func TestInvoke_ProviderErrorBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"rate_limit"}}`))
	}))
	t.Cleanup(server.Close)

	client, _ := newTestClient(t, server.URL)
	_, err := client.Invoke(context.Background(), "prompt", InvokeOptions{})

	var unavailable *ModelUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Contains(t, unavailable.Err.Error(), "quota exceeded")
}

func TestInvoke_MissingModelIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	t.Cleanup(server.Close)

	client, _ := newTestClient(t, server.URL)
	client.config.Model = ""

	_, err := client.Invoke(context.Background(), "prompt", InvokeOptions{})
	require.Error(t, err)

	var unavailable *ModelUnavailableError
	assert.False(t, errors.As(err, &unavailable))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestInvoke_StructuredRequestsJSONObject(t *testing.T) {
	t.Parallel()

	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(buf)
		gotBody = string(buf)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody(`{}`)))
	}))
	t.Cleanup(server.Close)

	client, _ := newTestClient(t, server.URL)
	_, err := client.Invoke(context.Background(), "prompt", InvokeOptions{Structured: true, Temperature: 0.1})
	require.NoError(t, err)
	assert.Contains(t, gotBody, `"response_format":{"type":"json_object"}`)
	assert.Contains(t, gotBody, `"temperature":0.1`)
}

func TestEmbed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		// out of order on purpose
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0.3,0.4]},{"index":0,"embedding":[0.1,0.2]}]}`))
	}))
	t.Cleanup(server.Close)

	client, _ := newTestClient(t, server.URL)
	vectors, err := client.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float64{0.1, 0.2}, vectors[0])
	assert.Equal(t, []float64{0.3, 0.4}, vectors[1])
}

func TestEmbed_EmptyInput(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, "http://unused")
	vectors, err := client.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}
