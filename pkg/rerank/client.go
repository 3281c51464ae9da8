package rerank

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Reranker scores (query, document) pairs with a cross-encoder.
type Reranker interface {
	Score(query string, documents []string) ([]float64, error)
}

// HTTPClient calls a hosted cross-encoder with a jina-style /rerank API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

var _ Reranker = &HTTPClient{}

func NewHTTPClient(baseURL, apiKey, model string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Score returns one relevance score per input document, in input order.
func (c *HTTPClient) Score(query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	reqBody := rerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: documents,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+"/rerank", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank api error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var rerankResp rerankResponse
	if err := json.Unmarshal(bodyBytes, &rerankResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if rerankResp.Error != nil {
		return nil, fmt.Errorf("rerank api returned error: %s", rerankResp.Error.Message)
	}
	if len(rerankResp.Results) != len(documents) {
		return nil, fmt.Errorf("rerank returned %d scores for %d documents", len(rerankResp.Results), len(documents))
	}

	scores := make([]float64, len(documents))
	for _, r := range rerankResp.Results {
		if r.Index < 0 || r.Index >= len(scores) {
			return nil, fmt.Errorf("rerank returned out-of-range index %d", r.Index)
		}
		scores[r.Index] = r.RelevanceScore
	}
	return scores, nil
}
