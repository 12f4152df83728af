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
	openAIBaseURL      = "https://api.openai.com"
	defaultOpenAIModel = "gpt-4o"
)

// OpenAI talks to the Chat Completions API.
type OpenAI struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewOpenAI(apiKey, baseURL string, client *http.Client) *OpenAI {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &OpenAI{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (o *OpenAI) Name() ProviderName { return ProviderOpenAI }

func (o *OpenAI) DefaultModel() string { return defaultOpenAIModel }

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type openAIRequest struct {
	Model         string               `json:"model"`
	Messages      []openAIMessage      `json:"messages"`
	MaxTokens     int                  `json:"max_tokens"`
	Temperature   float64              `json:"temperature"`
	Stream        bool                 `json:"stream,omitempty"`
	StreamOptions *openAIStreamOptions `json:"stream_options,omitempty"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

func (u openAIUsage) toModel() model.Usage {
	return model.Usage{InputTokens: u.PromptTokens, OutputTokens: u.CompletionTokens}
}

func (o *OpenAI) body(req request, stream bool) openAIRequest {
	var messages []openAIMessage
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.User})

	body := openAIRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   maxTokens(req.MaxTokens),
		Temperature: req.Temperature,
		Stream:      stream,
	}
	if stream {
		body.StreamOptions = &openAIStreamOptions{IncludeUsage: true}
	}
	return body
}

func (o *OpenAI) post(ctx context.Context, body openAIRequest) (*http.Response, error) {
	return postJSON(ctx, o.client, ProviderOpenAI, o.baseURL+"/v1/chat/completions", map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", o.apiKey),
	}, body)
}

func (o *OpenAI) generate(ctx context.Context, req request) (response, error) {
	resp, err := o.post(ctx, o.body(req, false))
	if err != nil {
		return response{}, err
	}
	respBytes, err := readBody(ProviderOpenAI, resp)
	if err != nil {
		return response{}, err
	}

	var openaiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage openAIUsage `json:"usage"`
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &openaiResp); err != nil {
		return response{}, &ContentError{Provider: string(ProviderOpenAI), Reason: fmt.Sprintf("malformed response: %v", err)}
	}
	if openaiResp.Error.Message != "" {
		return response{}, &APIError{Provider: string(ProviderOpenAI), StatusCode: resp.StatusCode, Message: openaiResp.Error.Message}
	}
	if len(openaiResp.Choices) == 0 || strings.TrimSpace(openaiResp.Choices[0].Message.Content) == "" {
		return response{}, &ContentError{Provider: string(ProviderOpenAI), Reason: "empty response"}
	}
	return response{Text: openaiResp.Choices[0].Message.Content, Usage: openaiResp.Usage.toModel()}, nil
}

func (o *OpenAI) openStream(ctx context.Context, req request) (chunkSource, error) {
	resp, err := o.post(ctx, o.body(req, true))
	if err != nil {
		return nil, err
	}
	return &openAIStream{body: resp.Body, events: newSSEReader(resp.Body)}, nil
}

// openAIStream forwards choices[0].delta.content until the [DONE] sentinel.
// The usage-only chunk requested through stream_options carries no choices.
type openAIStream struct {
	body   io.ReadCloser
	events *sseReader
	tokens model.Usage
}

func (s *openAIStream) next() (string, error) {
	for {
		ev, err := s.events.Next()
		if err == io.EOF {
			return "", io.EOF
		}
		if err != nil {
			return "", transportError(ProviderOpenAI, err)
		}
		if strings.TrimSpace(ev.Data) == "[DONE]" {
			return "", io.EOF
		}
		if ev.Data == "" {
			continue
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
			Usage *openAIUsage `json:"usage"`
			Error *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			return "", &ContentError{Provider: string(ProviderOpenAI), Reason: fmt.Sprintf("malformed stream chunk: %v", err)}
		}
		if chunk.Error != nil {
			return "", &ContentError{Provider: string(ProviderOpenAI), Reason: chunk.Error.Message}
		}
		if chunk.Usage != nil {
			s.tokens = chunk.Usage.toModel()
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			return chunk.Choices[0].Delta.Content, nil
		}
	}
}

func (s *openAIStream) usage() model.Usage { return s.tokens }

func (s *openAIStream) close() error { return s.body.Close() }
