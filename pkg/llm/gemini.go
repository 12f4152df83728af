package llm

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/helmcode/codescribe/pkg/model"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini calls the Gemini API through the genai SDK.
type Gemini struct {
	client *genai.Client
}

func NewGemini(ctx context.Context, apiKey, baseURL string, httpClient *http.Client) (*Gemini, error) {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, &ProviderConfigError{Provider: string(ProviderGemini), Reason: err.Error()}
	}
	return &Gemini{client: client}, nil
}

func (g *Gemini) Name() ProviderName { return ProviderGemini }

func (g *Gemini) DefaultModel() string { return defaultGeminiModel }

func (g *Gemini) config(req request) *genai.GenerateContentConfig {
	temperature := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(maxTokens(req.MaxTokens)),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	return cfg
}

func (g *Gemini) generate(ctx context.Context, req request) (response, error) {
	resp, err := g.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.User), g.config(req))
	if err != nil {
		return response{}, geminiError(err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return response{}, &ContentError{Provider: string(ProviderGemini), Reason: "empty response"}
	}
	return response{Text: text, Usage: geminiUsage(resp)}, nil
}

// openStream pulls the first response before returning so that a rejected
// request surfaces as an open error and can be retried.
func (g *Gemini) openStream(ctx context.Context, req request) (chunkSource, error) {
	seq := g.client.Models.GenerateContentStream(ctx, req.Model, genai.Text(req.User), g.config(req))
	next, stop := iter.Pull2(seq)

	first, err, ok := next()
	if ok && err != nil {
		stop()
		return nil, geminiError(err)
	}
	s := &geminiStream{pull: next, stop: stop, done: !ok}
	if ok {
		s.pending = first
	}
	return s, nil
}

type geminiStream struct {
	pull    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	pending *genai.GenerateContentResponse
	done    bool
	tokens  model.Usage
}

func (s *geminiStream) next() (string, error) {
	for {
		resp := s.pending
		s.pending = nil
		if resp == nil {
			if s.done {
				return "", io.EOF
			}
			r, err, ok := s.pull()
			if !ok {
				s.done = true
				return "", io.EOF
			}
			if err != nil {
				return "", geminiError(err)
			}
			resp = r
		}
		if resp == nil {
			continue
		}
		if resp.UsageMetadata != nil {
			s.tokens = geminiUsage(resp)
		}
		if text := resp.Text(); text != "" {
			return text, nil
		}
	}
}

func (s *geminiStream) usage() model.Usage { return s.tokens }

func (s *geminiStream) close() error {
	s.stop()
	return nil
}

func geminiUsage(resp *genai.GenerateContentResponse) model.Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return model.Usage{}
	}
	return model.Usage{
		InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
		OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
	}
}

// geminiError maps SDK errors onto the shared taxonomy.
func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiStatusError(apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiStatusError(apiErrPtr.Code, apiErrPtr.Message)
	}
	return transportError(ProviderGemini, err)
}

func apiStatusError(code int, msg string) error {
	if transientStatus(code) {
		return &TransientError{Provider: string(ProviderGemini), StatusCode: code, Err: errors.New(msg)}
	}
	return &APIError{Provider: string(ProviderGemini), StatusCode: code, Message: msg}
}
