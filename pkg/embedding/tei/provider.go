package tei

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"deep-nexus-be/pkg/embedding"
)

// TeiProvider talks to a text-embeddings-inference server hosting the
// embedding model (KURE-v1 in the default deployment). Vectors are
// normalized server-side so cosine distance is usable directly.
type TeiProvider struct {
	baseURL string
	client  *http.Client
}

var _ embedding.EmbeddingProvider = &TeiProvider{}

func NewTeiProvider(baseURL string) *TeiProvider {
	return &TeiProvider{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type embedRequest struct {
	Inputs    []string `json:"inputs"`
	Normalize bool     `json:"normalize"`
}

func (p *TeiProvider) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	reqBody := embedRequest{
		Inputs:    []string{text},
		Normalize: true,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", p.baseURL+"/embed", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tei request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tei api error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	// TEI returns a bare array of vectors, one per input
	var vectors [][]float32
	if err := json.Unmarshal(bodyBytes, &vectors); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embeddings from tei api")
	}

	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{
			Values: vectors[0],
		},
	}, nil
}
