package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/helmcode/codescribe/pkg/model"
)

var testPrompt = model.Prompt{System: "be brief", User: "document this", DocType: "README", Version: "test"}

var claudeConfig = model.DocTypeConfig{Provider: "claude", Model: "claude-test", Temperature: 0.7, MaxTokens: 1000}

var fastRetry = RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}

// fakeAPI serves both the Anthropic and OpenAI endpoints and counts calls.
type fakeAPI struct {
	server *httptest.Server
	calls  atomic.Int32
	bodies chan map[string]any
}

func newFakeAPI(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, call int)) *fakeAPI {
	t.Helper()
	f := &fakeAPI{bodies: make(chan map[string]any, 16)}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := int(f.calls.Add(1))
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		select {
		case f.bodies <- body:
		default:
		}
		handler(w, r, call)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) client(t *testing.T, providers ...ProviderName) *Client {
	t.Helper()
	creds := map[ProviderName]string{}
	urls := map[ProviderName]string{}
	for _, p := range providers {
		creds[p] = "test-key"
		urls[p] = f.server.URL
	}
	c, err := NewClient(context.Background(), ClientConfig{
		Credentials: creds,
		BaseURLs:    urls,
		Retry:       fastRetry,
		Timeout:     5 * time.Second,
	})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

const claudeOK = `{"content":[{"type":"text","text":"# Title"}],"usage":{"input_tokens":12,"output_tokens":3}}`

func TestClaudeGenerate(t *testing.T) {
	var headers http.Header
	var path string
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request, _ int) {
		headers = r.Header.Clone()
		path = r.URL.Path
		writeJSON(w, http.StatusOK, claudeOK)
	})

	res, err := api.client(t, ProviderClaude).Generate(context.Background(), testPrompt, claudeConfig)
	require.NoError(t, err)

	assert.Equal(t, "# Title", res.Text)
	assert.Equal(t, model.Usage{InputTokens: 12, OutputTokens: 3}, res.Usage)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "/v1/messages", path)
	assert.Equal(t, "test-key", headers.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, headers.Get("anthropic-version"))

	body := <-api.bodies
	assert.Equal(t, "claude-test", body["model"])
	assert.Equal(t, "be brief", body["system"])
	assert.Equal(t, 0.7, body["temperature"])
	assert.Equal(t, float64(1000), body["max_tokens"])
}

func TestOpenAIGenerate(t *testing.T) {
	var auth string
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request, _ int) {
		auth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `{"choices":[{"message":{"content":"openapi: 3.0.0"}}],"usage":{"prompt_tokens":5,"completion_tokens":7}}`)
	})

	cfg := model.DocTypeConfig{Provider: "openai", Temperature: 0.2}
	res, err := api.client(t, ProviderOpenAI).Generate(context.Background(), testPrompt, cfg)
	require.NoError(t, err)

	assert.Equal(t, "openapi: 3.0.0", res.Text)
	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, "gpt-4o", res.Config.Model)
	assert.Equal(t, model.Usage{InputTokens: 5, OutputTokens: 7}, res.Usage)

	body := <-api.bodies
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, float64(defaultMaxTokens), body["max_tokens"])
}

func TestUnsupportedProviderFailsBeforeNetwork(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request, _ int) {
		writeJSON(w, http.StatusOK, claudeOK)
	})
	c := api.client(t, ProviderClaude)

	_, err := c.Generate(context.Background(), testPrompt, model.DocTypeConfig{Provider: "mistral"})
	var cfgErr *ProviderConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "mistral", cfgErr.Provider)

	_, err = c.Generate(context.Background(), testPrompt, model.DocTypeConfig{Provider: "openai"})
	require.ErrorAs(t, err, &cfgErr)

	_, err = c.Stream(context.Background(), testPrompt, claudeConfig, WithTemperature(1.5))
	require.ErrorAs(t, err, &cfgErr)

	assert.Equal(t, int32(0), api.calls.Load())
}

func TestNewClientRequiredCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), ClientConfig{
		Credentials: map[ProviderName]string{ProviderClaude: "k"},
		Required:    []string{"claude", "openai"},
	})
	var cfgErr *ProviderConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "openai", cfgErr.Provider)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	_, err = NewClient(context.Background(), ClientConfig{Required: []string{"cohere"}})
	require.ErrorAs(t, err, &cfgErr)

	c, err := NewClient(context.Background(), ClientConfig{
		Credentials: map[ProviderName]string{ProviderClaude: "k", ProviderOpenAI: "k"},
		Required:    []string{"Claude"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"claude", "openai"}, c.Available())
}

func TestOverrideTakesPrecedenceWithoutMutation(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request, _ int) {
		if r.URL.Path == "/v1/chat/completions" {
			writeJSON(w, http.StatusOK, `{"choices":[{"message":{"content":"from openai"}}]}`)
			return
		}
		writeJSON(w, http.StatusOK, claudeOK)
	})
	c := api.client(t, ProviderClaude, ProviderOpenAI)

	original := claudeConfig
	res, err := c.Generate(context.Background(), testPrompt, original, WithProvider("openai"), WithMaxTokens(50))
	require.NoError(t, err)

	assert.Equal(t, "from openai", res.Text)
	assert.Equal(t, "openai", res.Config.Provider)
	assert.Equal(t, "gpt-4o", res.Config.Model)
	assert.Equal(t, 50, res.Config.MaxTokens)
	assert.Equal(t, claudeConfig, original)

	body := <-api.bodies
	assert.Equal(t, "gpt-4o", body["model"])

	temp := 0.1
	res, err = c.Generate(context.Background(), testPrompt, original, WithOverrides(model.Overrides{Model: "claude-other", Temperature: &temp}))
	require.NoError(t, err)
	assert.Equal(t, "claude-other", res.Config.Model)
	assert.Equal(t, 0.1, res.Config.Temperature)
	assert.Equal(t, claudeConfig, original)
}

func TestRetryCeiling(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request, _ int) {
		writeJSON(w, http.StatusServiceUnavailable, `{"error":{"message":"overloaded"}}`)
	})

	_, err := api.client(t, ProviderClaude).Generate(context.Background(), testPrompt, claudeConfig)

	var exhausted *ExhaustedRetriesError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, int32(3), api.calls.Load())
	assert.True(t, IsRetryable(err))

	var transient *TransientError
	require.ErrorAs(t, err, &transient)
	assert.Equal(t, http.StatusServiceUnavailable, transient.StatusCode)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestRetryRecovers(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request, call int) {
		if call < 3 {
			writeJSON(w, http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`)
			return
		}
		writeJSON(w, http.StatusOK, claudeOK)
	})

	res, err := api.client(t, ProviderClaude).Generate(context.Background(), testPrompt, claudeConfig)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
}

func TestNonRetryableErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			body:   `{"error":{"message":"max_tokens too large"}}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, "max_tokens too large", apiErr.Message)
			},
		},
		{
			name:   "empty content",
			status: http.StatusOK,
			body:   `{"content":[]}`,
			check: func(t *testing.T, err error) {
				var contentErr *ContentError
				require.ErrorAs(t, err, &contentErr)
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `<html>`,
			check: func(t *testing.T, err error) {
				var contentErr *ContentError
				require.ErrorAs(t, err, &contentErr)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request, _ int) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := api.client(t, ProviderClaude).Generate(context.Background(), testPrompt, claudeConfig)
			require.Error(t, err)
			tt.check(t, err)
			assert.False(t, IsRetryable(err))
			assert.Equal(t, int32(1), api.calls.Load())
		})
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request, _ int) {
		cancel()
		writeJSON(w, http.StatusBadGateway, `{}`)
	})

	_, err := api.client(t, ProviderClaude).Generate(ctx, testPrompt, claudeConfig)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), api.calls.Load())
}

func sseHandler(events ...string) func(w http.ResponseWriter, r *http.Request, _ int) {
	return func(w http.ResponseWriter, r *http.Request, _ int) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		for _, ev := range events {
			_, _ = io.WriteString(w, ev+"\n\n")
		}
	}
}

func claudeDelta(text string) string {
	return fmt.Sprintf("event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":%q}}", text)
}

func TestClaudeStreamFiltersControlEvents(t *testing.T) {
	api := newFakeAPI(t, sseHandler(
		`event: message_start`+"\n"+`data: {"type":"message_start","message":{"usage":{"input_tokens":9}}}`,
		`event: ping`+"\n"+`data: {"type":"ping"}`,
		`event: content_block_start`+"\n"+`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
		claudeDelta("# Hello"),
		`: keepalive comment`,
		`event: ping`+"\n"+`data: {"type":"ping"}`,
		claudeDelta(" world"),
		`event: content_block_delta`+"\n"+`data: {"type":"content_block_delta","delta":{"type":"input_json_delta","partial_json":"{}"}}`,
		`event: content_block_stop`+"\n"+`data: {"type":"content_block_stop","index":0}`,
		`event: message_delta`+"\n"+`data: {"type":"message_delta","usage":{"output_tokens":4}}`,
		`event: message_stop`+"\n"+`data: {"type":"message_stop"}`,
	))

	var chunks []string
	res, err := api.client(t, ProviderClaude).GenerateStream(context.Background(), testPrompt, claudeConfig, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"# Hello", " world"}, chunks)
	assert.Equal(t, "# Hello world", res.Text)
	assert.True(t, res.Streamed)
	assert.Equal(t, model.Usage{InputTokens: 9, OutputTokens: 4}, res.Usage)

	body := <-api.bodies
	assert.Equal(t, true, body["stream"])
}

func TestStreamWithZeroChunks(t *testing.T) {
	api := newFakeAPI(t, sseHandler(
		`event: message_start`+"\n"+`data: {"type":"message_start","message":{"usage":{"input_tokens":1}}}`,
		`event: message_stop`+"\n"+`data: {"type":"message_stop"}`,
	))

	res, err := api.client(t, ProviderClaude).GenerateStream(context.Background(), testPrompt, claudeConfig, nil)
	require.NoError(t, err)
	assert.Equal(t, "", res.Text)
}

func TestOpenAIStream(t *testing.T) {
	api := newFakeAPI(t, sseHandler(
		`data: {"choices":[{"delta":{"role":"assistant"}}]}`,
		`data: {"choices":[{"delta":{"content":"open"}}]}`,
		`data: {"choices":[{"delta":{"content":"api"}}]}`,
		`data: {"choices":[],"usage":{"prompt_tokens":3,"completion_tokens":2}}`,
		`data: [DONE]`,
	))

	c := api.client(t, ProviderOpenAI)
	s, err := c.Stream(context.Background(), testPrompt, model.DocTypeConfig{Provider: "openai"})
	require.NoError(t, err)
	defer s.Close()

	var got []string
	for {
		chunk, err := s.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, chunk)
	}
	assert.Equal(t, []string{"open", "api"}, got)
	assert.Equal(t, model.Usage{InputTokens: 3, OutputTokens: 2}, s.Usage())

	_, err = s.Recv()
	assert.Equal(t, io.EOF, err)

	body := <-api.bodies
	assert.Equal(t, map[string]any{"include_usage": true}, body["stream_options"])
}

func TestStreamRetriesOnOpen(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request, call int) {
		if call == 1 {
			writeJSON(w, http.StatusInternalServerError, `{}`)
			return
		}
		sseHandler(claudeDelta("ok"), `event: message_stop`+"\n"+`data: {"type":"message_stop"}`)(w, r, call)
	})

	res, err := api.client(t, ProviderClaude).GenerateStream(context.Background(), testPrompt, claudeConfig, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, 2, res.Attempts)
}

func TestStreamCancellationDiscardsPartialText(t *testing.T) {
	release := make(chan struct{})
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request, _ int) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, claudeDelta("partial")+"\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var forwarded []string
	res, err := api.client(t, ProviderClaude).GenerateStream(ctx, testPrompt, claudeConfig, func(chunk string) error {
		forwarded = append(forwarded, chunk)
		cancel()
		return nil
	})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"partial"}, forwarded)
}

func TestStreamMidStreamErrorEvent(t *testing.T) {
	api := newFakeAPI(t, sseHandler(
		claudeDelta("a"),
		`event: error`+"\n"+`data: {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
	))

	res, err := api.client(t, ProviderClaude).GenerateStream(context.Background(), testPrompt, claudeConfig, nil)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, int32(1), api.calls.Load())
}

func TestCallbackErrorStopsStream(t *testing.T) {
	api := newFakeAPI(t, sseHandler(claudeDelta("a"), claudeDelta("b")))

	boom := errors.New("client went away")
	_, err := api.client(t, ProviderClaude).GenerateStream(context.Background(), testPrompt, claudeConfig, func(string) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestGeminiGenerate(t *testing.T) {
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request, _ int) {
		if !strings.Contains(r.URL.Path, "gemini-test:generateContent") {
			writeJSON(w, http.StatusNotFound, `{"error":{"code":404,"message":"unexpected path"}}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":"## Gemini"}]}}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":2}}`)
	})

	cfg := model.DocTypeConfig{Provider: "gemini", Model: "gemini-test", Temperature: 0.5}
	res, err := api.client(t, ProviderGemini).Generate(context.Background(), testPrompt, cfg)
	require.NoError(t, err)
	assert.Equal(t, "## Gemini", res.Text)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, model.Usage{InputTokens: 4, OutputTokens: 2}, res.Usage)
}

func TestGeminiErrorMapping(t *testing.T) {
	err := geminiError(genai.APIError{Code: 503, Message: "busy"})
	assert.True(t, IsRetryable(err))

	err = geminiError(fmt.Errorf("wrapped: %w", genai.APIError{Code: 400, Message: "bad model"}))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "bad model", apiErr.Message)

	err = geminiError(errors.New("connection reset"))
	assert.True(t, IsRetryable(err))

	assert.ErrorIs(t, geminiError(context.Canceled), context.Canceled)
}

func TestParseProviderName(t *testing.T) {
	p, ok := ParseProviderName(" OpenAI ")
	assert.True(t, ok)
	assert.Equal(t, ProviderOpenAI, p)

	_, ok = ParseProviderName("llama")
	assert.False(t, ok)
}
