package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultMaxTokens = 4000

// newHTTPClient bounds the wait for response headers only, so long streams
// are not cut off. Whole-call deadlines come from the context.
func newHTTPClient(headerTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: transport}
}

// postJSON sends body to url and returns the response when the status is
// 200. Any other outcome is classified into the error taxonomy.
func postJSON(ctx context.Context, client *http.Client, provider ProviderName, url string, headers map[string]string, body any) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, transportError(provider, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, statusError(provider, resp.StatusCode, respBytes)
	}
	return resp, nil
}

// readBody reads a successful response body, treating read failures as
// transient.
func readBody(provider ProviderName, resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(provider, err)
	}
	return respBytes, nil
}

func maxTokens(n int) int {
	if n <= 0 {
		return defaultMaxTokens
	}
	return n
}
