package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultCrossEncoderBaseURL is the default inference server endpoint.
	DefaultCrossEncoderBaseURL = "http://localhost:8501"

	// DefaultCrossEncoderModel balances speed and accuracy for pairwise scoring.
	DefaultCrossEncoderModel = "cross-encoder/ms-marco-MiniLM-L-6-v2"
)

// CrossEncoderClient implements RelevanceModel against an HTTP inference
// server exposing a sentence-transformers style /predict endpoint.
type CrossEncoderClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// CrossEncoderOption is a functional option for configuring CrossEncoderClient.
type CrossEncoderOption func(*CrossEncoderClient)

// WithBaseURL sets a custom base URL for the inference server.
func WithBaseURL(url string) CrossEncoderOption {
	return func(c *CrossEncoderClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithModel sets the cross-encoder model to request.
func WithModel(model string) CrossEncoderOption {
	return func(c *CrossEncoderClient) {
		c.model = model
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) CrossEncoderOption {
	return func(c *CrossEncoderClient) {
		c.httpClient = client
	}
}

// NewCrossEncoderClient creates a new cross-encoder client with the given options.
func NewCrossEncoderClient(opts ...CrossEncoderOption) *CrossEncoderClient {
	c := &CrossEncoderClient{
		baseURL: DefaultCrossEncoderBaseURL,
		model:   DefaultCrossEncoderModel,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// predictRequest represents the request body for the predict API.
type predictRequest struct {
	Model string `json:"model"`
	Pairs []Pair `json:"pairs"`
}

// predictResponse represents the response from the predict API.
type predictResponse struct {
	Scores []float64 `json:"scores"`
}

// Predict scores each pair with the cross-encoder, returning raw unbounded
// logits in input order.
func (c *CrossEncoderClient) Predict(ctx context.Context, pairs []Pair) ([]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(predictRequest{Model: c.model, Pairs: pairs})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cross-encoder API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Scores) != len(pairs) {
		return nil, fmt.Errorf("cross-encoder returned %d scores for %d pairs", len(result.Scores), len(pairs))
	}

	return result.Scores, nil
}

// Ensure CrossEncoderClient implements RelevanceModel.
var _ RelevanceModel = (*CrossEncoderClient)(nil)
