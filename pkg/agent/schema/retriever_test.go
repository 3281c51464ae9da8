package schema

import (
	"context"
	"errors"
	"strings"
	"testing"

	"deep-nexus-be/internal/entity"
	"deep-nexus-be/internal/pkg/logger"
	"deep-nexus-be/pkg/embedding"
)

type stubCatalog struct {
	entries  []*entity.SchemaCatalogEntry
	findErr  error
	ddls     []string
	findCall int
}

func (s *stubCatalog) Create(ctx context.Context, entry *entity.SchemaCatalogEntry, vector []float32) error {
	return nil
}

func (s *stubCatalog) FindAll(ctx context.Context) ([]*entity.SchemaCatalogEntry, error) {
	s.findCall++
	return s.entries, s.findErr
}

func (s *stubCatalog) SearchSimilarDDL(ctx context.Context, embedding []float32, limit int) ([]string, error) {
	if limit < len(s.ddls) {
		return s.ddls[:limit], nil
	}
	return s.ddls, nil
}

type stubEmbedder struct{ err error }

func (s stubEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.4, 0.6}},
	}, nil
}

func TestFormatInventory(t *testing.T) {
	entries := []*entity.SchemaCatalogEntry{
		{TableName: "employees", Columns: []string{"id", "name"}},
		{TableName: "leave_balance", Columns: []string{"employee_id", "remaining_days"}},
	}

	got := FormatInventory(entries)
	want := "- employees: id, name\n- leave_balance: employee_id, remaining_days"
	if got != want {
		t.Errorf("FormatInventory() = %q, want %q", got, want)
	}
}

func TestFormatInventoryEmpty(t *testing.T) {
	if got := FormatInventory(nil); got != InventoryUnavailable {
		t.Errorf("FormatInventory(nil) = %q, want placeholder", got)
	}
}

func TestInventoryMemoizes(t *testing.T) {
	catalog := &stubCatalog{entries: []*entity.SchemaCatalogEntry{{TableName: "employees"}}}
	r := NewRetriever(catalog, stubEmbedder{}, logger.NewNopLogger())

	first := r.Inventory(context.Background())
	second := r.Inventory(context.Background())

	if first != second {
		t.Errorf("memoized inventory changed between calls")
	}
	if catalog.findCall != 1 {
		t.Errorf("catalog queried %d times, want 1", catalog.findCall)
	}
}

func TestInventoryFallsBackWhenCatalogFails(t *testing.T) {
	catalog := &stubCatalog{findErr: errors.New("connection refused")}
	r := NewRetriever(catalog, stubEmbedder{}, logger.NewNopLogger())

	if got := r.Inventory(context.Background()); got != InventoryUnavailable {
		t.Errorf("Inventory() = %q, want placeholder", got)
	}
}

func TestRelevantDDLJoinsResults(t *testing.T) {
	catalog := &stubCatalog{ddls: []string{
		"CREATE TABLE employees (id text);",
		"CREATE TABLE leave_balance (employee_id text);",
	}}
	r := NewRetriever(catalog, stubEmbedder{}, logger.NewNopLogger())

	got, err := r.RelevantDDL(context.Background(), []string{"leave", "employees"})
	if err != nil {
		t.Fatalf("RelevantDDL() error = %v", err)
	}
	if !strings.Contains(got, "employees") || !strings.Contains(got, "leave_balance") {
		t.Errorf("RelevantDDL() = %q", got)
	}
	if !strings.Contains(got, "\n\n") {
		t.Errorf("DDL blocks should be separated by a blank line")
	}
}

func TestRelevantDDLEmbeddingFailure(t *testing.T) {
	r := NewRetriever(&stubCatalog{}, stubEmbedder{err: errors.New("model offline")}, logger.NewNopLogger())

	if _, err := r.RelevantDDL(context.Background(), []string{"leave"}); err == nil {
		t.Fatalf("RelevantDDL() error = nil, want embedding error")
	}
}
