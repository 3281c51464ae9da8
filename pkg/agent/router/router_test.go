package router

import (
	"context"
	"strings"
	"testing"

	"deep-nexus-be/internal/pkg/logger"
	"deep-nexus-be/pkg/llm"
	"deep-nexus-be/pkg/memory"
)

type fakeLLM struct {
	response   string
	err        error
	lastPrompt string
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.lastPrompt = prompt
	return f.response, f.err
}

func (f *fakeLLM) Stream(ctx context.Context, history []llm.Message, handler llm.StreamHandler, options ...llm.Option) error {
	if f.err != nil {
		return f.err
	}
	return handler(f.response)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		response     string
		wantIntent   Intent
		wantKeywords []string
		wantQuery    string
		wantErr      bool
	}{
		{
			name:         "rdb intent",
			response:     `{"intent": "rdb", "sql_keywords": ["employees", "departments"], "vector_query": "employee roster"}`,
			wantIntent:   IntentRDB,
			wantKeywords: []string{"employees", "departments"},
			wantQuery:    "employee roster",
		},
		{
			name:       "both intent with surrounding prose",
			response:   "Here is my decision:\n{\"intent\": \"both\", \"sql_keywords\": [\"leave_usage_history\"], \"vector_query\": \"leave policy\"}\nDone.",
			wantIntent: IntentBoth,
			wantKeywords: []string{
				"leave_usage_history",
			},
			wantQuery: "leave policy",
		},
		{
			name:       "other intent drops retrieval parameters",
			response:   `{"intent": "other", "sql_keywords": ["should", "vanish"], "vector_query": "should vanish too"}`,
			wantIntent: IntentOther,
		},
		{
			name:       "uppercase intent is normalized",
			response:   `{"intent": "VECTOR", "sql_keywords": ["policy"], "vector_query": "security policy"}`,
			wantIntent: IntentVector,
			wantKeywords: []string{
				"policy",
			},
			wantQuery: "security policy",
		},
		{
			name:     "no JSON at all",
			response: "I think the user wants database data.",
			wantErr:  true,
		},
		{
			name:     "unknown intent",
			response: `{"intent": "maybe", "sql_keywords": [], "vector_query": ""}`,
			wantErr:  true,
		},
		{
			name:     "broken JSON",
			response: `{"intent": "rdb", "sql_keywords": [`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(&fakeLLM{response: tt.response}, logger.NewNopLogger())

			decision, err := r.Classify(context.Background(), "question", "", "- employees: id, name", nil)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Classify() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}

			if decision.Intent != tt.wantIntent {
				t.Errorf("Intent = %q, want %q", decision.Intent, tt.wantIntent)
			}
			if len(decision.SQLKeywords) != len(tt.wantKeywords) {
				t.Fatalf("SQLKeywords = %v, want %v", decision.SQLKeywords, tt.wantKeywords)
			}
			for i := range tt.wantKeywords {
				if decision.SQLKeywords[i] != tt.wantKeywords[i] {
					t.Errorf("SQLKeywords[%d] = %q, want %q", i, decision.SQLKeywords[i], tt.wantKeywords[i])
				}
			}
			if decision.VectorQuery != tt.wantQuery {
				t.Errorf("VectorQuery = %q, want %q", decision.VectorQuery, tt.wantQuery)
			}
		})
	}
}

func TestClassifyPromptIncludesRecentHistory(t *testing.T) {
	provider := &fakeLLM{response: `{"intent": "rdb", "sql_keywords": ["employees"], "vector_query": "roster"}`}
	r := New(provider, logger.NewNopLogger())

	history := []memory.Turn{
		{Role: memory.RoleUser, Content: "oldest question"},
		{Role: memory.RoleAssistant, Content: "oldest answer"},
		{Role: memory.RoleUser, Content: "latest question"},
		{Role: memory.RoleAssistant, Content: "latest answer"},
	}

	if _, err := r.Classify(context.Background(), "show that again", "", "- employees: id", history); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	if !strings.Contains(provider.lastPrompt, "latest question") || !strings.Contains(provider.lastPrompt, "latest answer") {
		t.Errorf("prompt should contain the last exchange")
	}
	if strings.Contains(provider.lastPrompt, "oldest question") {
		t.Errorf("prompt should only contain the last exchange, got older turns")
	}
}

func TestFormatHistoryEmpty(t *testing.T) {
	if got := formatHistory(nil); got != "(no prior conversation)" {
		t.Errorf("formatHistory(nil) = %q", got)
	}
}
