package tei

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	var gotReq embedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embed", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`[[0.1, 0.2, 0.3]]`))
	}))
	defer server.Close()

	provider := NewTeiProvider(server.URL)
	resp, err := provider.Generate("annual leave policy", "RETRIEVAL_QUERY")
	require.NoError(t, err)

	assert.Equal(t, []float32{0.1, 0.2, 0.3}, resp.Embedding.Values)
	assert.Equal(t, []string{"annual leave policy"}, gotReq.Inputs)
	assert.True(t, gotReq.Normalize)
}

func TestGenerateErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading model"))
	}))
	defer server.Close()

	provider := NewTeiProvider(server.URL)
	_, err := provider.Generate("text", "RETRIEVAL_QUERY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestGenerateEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	provider := NewTeiProvider(server.URL)
	_, err := provider.Generate("text", "RETRIEVAL_QUERY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty embeddings")
}
