package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/helmcode/codescribe/pkg/model"
)

const (
	claudeBaseURL      = "https://api.anthropic.com"
	anthropicVersion   = "2023-06-01"
	defaultClaudeModel = "claude-sonnet-4-20250514"
)

// Claude talks to the Anthropic Messages API.
type Claude struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewClaude(apiKey, baseURL string, client *http.Client) *Claude {
	if baseURL == "" {
		baseURL = claudeBaseURL
	}
	return &Claude{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (c *Claude) Name() ProviderName { return ProviderClaude }

func (c *Claude) DefaultModel() string { return defaultClaudeModel }

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Stream      bool            `json:"stream,omitempty"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (c *Claude) body(req request, stream bool) claudeRequest {
	return claudeRequest{
		Model:       req.Model,
		System:      req.System,
		Messages:    []claudeMessage{{Role: "user", Content: req.User}},
		MaxTokens:   maxTokens(req.MaxTokens),
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

func (c *Claude) post(ctx context.Context, body claudeRequest) (*http.Response, error) {
	return postJSON(ctx, c.client, ProviderClaude, c.baseURL+"/v1/messages", map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}, body)
}

func (c *Claude) generate(ctx context.Context, req request) (response, error) {
	resp, err := c.post(ctx, c.body(req, false))
	if err != nil {
		return response{}, err
	}
	respBytes, err := readBody(ProviderClaude, resp)
	if err != nil {
		return response{}, err
	}

	// Minimal struct to pull out the content text.
	var claudeResp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage claudeUsage `json:"usage"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &claudeResp); err != nil {
		return response{}, &ContentError{Provider: string(ProviderClaude), Reason: fmt.Sprintf("malformed response: %v", err)}
	}
	if claudeResp.Error.Message != "" {
		return response{}, &APIError{Provider: string(ProviderClaude), StatusCode: resp.StatusCode, Message: claudeResp.Error.Message}
	}

	var text strings.Builder
	for _, block := range claudeResp.Content {
		if block.Type == "" || block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return response{}, &ContentError{Provider: string(ProviderClaude), Reason: "empty response"}
	}
	return response{
		Text:  text.String(),
		Usage: model.Usage{InputTokens: claudeResp.Usage.InputTokens, OutputTokens: claudeResp.Usage.OutputTokens},
	}, nil
}

func (c *Claude) openStream(ctx context.Context, req request) (chunkSource, error) {
	resp, err := c.post(ctx, c.body(req, true))
	if err != nil {
		return nil, err
	}
	return &claudeStream{body: resp.Body, events: newSSEReader(resp.Body)}, nil
}

// claudeStream forwards text_delta events and records usage from
// message_start and message_delta. ping and other events are dropped.
type claudeStream struct {
	body   io.ReadCloser
	events *sseReader
	tokens model.Usage
}

type claudeEvent struct {
	Type    string `json:"type"`
	Message struct {
		Usage claudeUsage `json:"usage"`
	} `json:"message"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Usage claudeUsage `json:"usage"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *claudeStream) next() (string, error) {
	for {
		ev, err := s.events.Next()
		if err == io.EOF {
			return "", io.EOF
		}
		if err != nil {
			return "", transportError(ProviderClaude, err)
		}

		var payload claudeEvent
		if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
			return "", &ContentError{Provider: string(ProviderClaude), Reason: fmt.Sprintf("malformed stream event: %v", err)}
		}
		kind := ev.Event
		if kind == "" {
			kind = payload.Type
		}

		switch kind {
		case "message_start":
			s.tokens.InputTokens = payload.Message.Usage.InputTokens
		case "content_block_delta":
			if payload.Delta.Type == "text_delta" && payload.Delta.Text != "" {
				return payload.Delta.Text, nil
			}
		case "message_delta":
			s.tokens.OutputTokens = payload.Usage.OutputTokens
		case "message_stop":
			return "", io.EOF
		case "error":
			return "", &TransientError{Provider: string(ProviderClaude), Err: fmt.Errorf("%s: %s", payload.Error.Type, payload.Error.Message)}
		}
	}
}

func (s *claudeStream) usage() model.Usage { return s.tokens }

func (s *claudeStream) close() error { return s.body.Close() }
