// Package server exposes the documentation pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"k8s.io/klog/v2"

	"github.com/helmcode/codescribe/pkg/generator"
	"github.com/helmcode/codescribe/pkg/llm"
	"github.com/helmcode/codescribe/pkg/model"
)

// maxBodyBytes leaves room for the largest accepted code plus JSON escaping.
const maxBodyBytes = 4 << 20

// Service is the pipeline behind the API. *generator.Generator implements it.
type Service interface {
	GenerateDocumentation(ctx context.Context, code string, opts generator.Options) (*model.GenerationResult, error)
	Analyze(code, language, filename string) (model.Analysis, error)
	Score(documentation string, analysis model.Analysis) model.QualityScore
	DocTypes() []generator.DocTypeInfo
}

type Server struct {
	svc     Service
	version string
	mux     *http.ServeMux
}

func New(svc Service, version string) *Server {
	s := &Server{svc: svc, version: version, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /api/generate", s.handleGenerate)
	s.mux.HandleFunc("POST /api/generate/stream", s.handleGenerateStream)
	s.mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("POST /api/score", s.handleScore)
	s.mux.HandleFunc("GET /api/doc-types", s.handleDocTypes)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// ListenAndServe serves until ctx is cancelled, then drains open requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		klog.InfoS("Serving API", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	klog.InfoS("Shutting down API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type generateRequest struct {
	Code        string   `json:"code"`
	DocType     string   `json:"docType"`
	Language    string   `json:"language"`
	Filename    string   `json:"filename"`
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   *int     `json:"maxTokens"`
}

func (r generateRequest) options() generator.Options {
	return generator.Options{
		DocType:  r.DocType,
		Language: r.Language,
		Filename: r.Filename,
		Overrides: model.Overrides{
			Provider:    r.Provider,
			Model:       r.Model,
			Temperature: r.Temperature,
			MaxTokens:   r.MaxTokens,
		},
	}
}

type analyzeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Filename string `json:"filename"`
}

// scoreRequest scores documentation against a given analysis, or against
// the analysis of code when no analysis is given.
type scoreRequest struct {
	Documentation string          `json:"documentation"`
	Analysis      *model.Analysis `json:"analysis"`
	Code          string          `json:"code"`
	Language      string          `json:"language"`
	Filename      string          `json:"filename"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.svc.GenerateDocumentation(r.Context(), req.Code, req.options())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decode(w, r, &req) {
		return
	}
	sse, ok := newEventWriter(w)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming is not supported by this connection"})
		return
	}

	opts := req.options()
	opts.Streaming = true
	opts.StreamCallback = func(chunk string) error {
		return sse.send("chunk", map[string]string{"text": chunk})
	}

	res, err := s.svc.GenerateDocumentation(r.Context(), req.Code, opts)
	switch {
	case err != nil && !sse.started:
		// Nothing was streamed yet, so a plain status code still works.
		writeError(w, err)
	case err != nil:
		_, retryable := statusFor(err)
		if sendErr := sse.send("error", errorResponse{Error: err.Error(), Retryable: retryable}); sendErr != nil {
			klog.V(1).InfoS("Client went away during stream", "err", sendErr)
		}
	default:
		if sendErr := sse.send("complete", res); sendErr != nil {
			klog.V(1).InfoS("Client went away during stream", "err", sendErr)
		}
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decode(w, r, &req) {
		return
	}
	a, err := s.svc.Analyze(req.Code, req.Language, req.Filename)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !decode(w, r, &req) {
		return
	}

	var analysis model.Analysis
	switch {
	case req.Analysis != nil:
		analysis = *req.Analysis
	case req.Code != "":
		a, err := s.svc.Analyze(req.Code, req.Language, req.Filename)
		if err != nil {
			writeError(w, err)
			return
		}
		analysis = a
	}
	writeJSON(w, http.StatusOK, s.svc.Score(req.Documentation, analysis))
}

func (s *Server) handleDocTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"docTypes": s.svc.DocTypes()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

// statusFor maps the error taxonomy to an HTTP status and whether the
// caller may retry.
func statusFor(err error) (int, bool) {
	var (
		inputErr     *generator.InputError
		configErr    *llm.ProviderConfigError
		contentErr   *llm.ContentError
		apiErr       *llm.APIError
		exhaustedErr *llm.ExhaustedRetriesError
	)
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, false
	case errors.As(err, &configErr):
		return http.StatusInternalServerError, false
	case errors.As(err, &exhaustedErr), llm.IsRetryable(err):
		return http.StatusServiceUnavailable, true
	case errors.As(err, &contentErr), errors.As(err, &apiErr):
		return http.StatusBadGateway, false
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, true
	default:
		return http.StatusInternalServerError, false
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, retryable := statusFor(err)
	writeJSON(w, status, errorResponse{Error: err.Error(), Retryable: retryable})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		klog.V(1).InfoS("Writing response failed", "err", err)
	}
}
