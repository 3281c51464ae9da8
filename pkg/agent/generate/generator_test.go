package generate

import (
	"context"
	"strings"
	"testing"

	"deep-nexus-be/internal/pkg/logger"
	"deep-nexus-be/pkg/llm"
	"deep-nexus-be/pkg/memory"
)

type fakeLLM struct {
	chunks    []string
	lastModel string
	lastMsgs  []llm.Message
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return "", nil
}

func (f *fakeLLM) Stream(ctx context.Context, history []llm.Message, handler llm.StreamHandler, options ...llm.Option) error {
	opts := &llm.Options{}
	for _, opt := range options {
		opt(opts)
	}
	f.lastModel = opts.Model
	f.lastMsgs = history
	for _, chunk := range f.chunks {
		if err := handler(chunk); err != nil {
			return err
		}
	}
	return nil
}

func TestSelectModel(t *testing.T) {
	g := NewGenerator(&fakeLLM{}, logger.NewNopLogger(), "small", "large", 15000)

	tests := []struct {
		name   string
		rdbLen int
		vecLen int
		want   string
	}{
		{name: "small context", rdbLen: 100, vecLen: 100, want: "small"},
		{name: "exactly at threshold stays small", rdbLen: 15000, vecLen: 0, want: "small"},
		{name: "one past threshold goes large", rdbLen: 15000, vecLen: 1, want: "large"},
		{name: "vector alone can trip it", rdbLen: 0, vecLen: 20000, want: "large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{
				RDBResult:    strings.Repeat("r", tt.rdbLen),
				VectorResult: strings.Repeat("v", tt.vecLen),
			}
			if got := g.SelectModel(in); got != tt.want {
				t.Errorf("SelectModel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStreamAccumulatesAndForwardsChunks(t *testing.T) {
	provider := &fakeLLM{chunks: []string{"The ", "remote work ", "policy applies."}}
	g := NewGenerator(provider, logger.NewNopLogger(), "small", "large", 15000)

	var streamed []string
	answer, err := g.Stream(context.Background(), Input{Question: "q"}, func(chunk string) error {
		streamed = append(streamed, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	if answer != "The remote work policy applies." {
		t.Errorf("answer = %q", answer)
	}
	if len(streamed) != 3 {
		t.Errorf("handler called %d times, want 3", len(streamed))
	}
	if provider.lastModel != "small" {
		t.Errorf("model = %q, want small", provider.lastModel)
	}
}

func TestStreamPromptCarriesEvidenceAndHistory(t *testing.T) {
	provider := &fakeLLM{chunks: []string{"ok"}}
	g := NewGenerator(provider, logger.NewNopLogger(), "small", "large", 15000)

	in := Input{
		Question:     "Am I eligible?",
		RDBResult:    `[{"eligible": true}]`,
		VectorResult: "- Content: remote work rules",
		FileContext:  "attached file text",
		History: []memory.Turn{
			{Role: memory.RoleUser, Content: "earlier question"},
		},
	}
	if _, err := g.Stream(context.Background(), in, func(string) error { return nil }); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	if len(provider.lastMsgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(provider.lastMsgs))
	}
	prompt := provider.lastMsgs[0].Content
	for _, want := range []string{`[{"eligible": true}]`, "remote work rules", "attached file text", "earlier question", "Am I eligible?"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
