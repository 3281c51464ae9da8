package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"deep-nexus-be/internal/entity"
	"deep-nexus-be/internal/pkg/logger"
	"deep-nexus-be/internal/repository/contract"
	"deep-nexus-be/pkg/agent/generate"
	"deep-nexus-be/pkg/agent/retrieval"
	"deep-nexus-be/pkg/agent/router"
	"deep-nexus-be/pkg/agent/schema"
	"deep-nexus-be/pkg/agent/sqlagent"
	"deep-nexus-be/pkg/embedding"
	"deep-nexus-be/pkg/llm"
)

func TestPlanFor(t *testing.T) {
	tests := []struct {
		intent router.Intent
		want   branchPlan
	}{
		{router.IntentRDB, branchPlan{structured: true}},
		{router.IntentVector, branchPlan{unstructured: true}},
		{router.IntentBoth, branchPlan{structured: true, unstructured: true}},
		{router.IntentOther, branchPlan{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			if got := planFor(tt.intent); got != tt.want {
				t.Errorf("planFor(%q) = %+v, want %+v", tt.intent, got, tt.want)
			}
		})
	}
}

// scriptedLLM returns a fixed response for Generate and streams fixed
// chunks for Stream. One instance per workflow node.
type scriptedLLM struct {
	generated  string
	chunks     []string
	streamMsgs []llm.Message
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.generated, nil
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.generated, nil
}

func (s *scriptedLLM) Stream(ctx context.Context, history []llm.Message, handler llm.StreamHandler, options ...llm.Option) error {
	s.streamMsgs = history
	for _, chunk := range s.chunks {
		if err := handler(chunk); err != nil {
			return err
		}
	}
	return nil
}

type memCatalog struct{}

func (memCatalog) Create(ctx context.Context, entry *entity.SchemaCatalogEntry, vector []float32) error {
	return nil
}

func (memCatalog) FindAll(ctx context.Context) ([]*entity.SchemaCatalogEntry, error) {
	return []*entity.SchemaCatalogEntry{
		{TableName: "employees", Columns: []string{"id", "name", "dept_code"}},
	}, nil
}

func (memCatalog) SearchSimilarDDL(ctx context.Context, embedding []float32, limit int) ([]string, error) {
	return []string{"CREATE TABLE employees (id text, name text, dept_code text);"}, nil
}

type memDocRepo struct{}

func (memDocRepo) Create(ctx context.Context, c *entity.DocumentChunk, vector []float32) error {
	return nil
}

func (memDocRepo) SearchSimilarWithScore(ctx context.Context, vec []float32, limit int) ([]*contract.ScoredDocumentChunk, error) {
	return []*contract.ScoredDocumentChunk{
		{Chunk: &entity.DocumentChunk{Content: "leave policy text", Title: "policy.pdf", URL: "https://docs/policy"}, Similarity: 0.9},
	}, nil
}

func (memDocRepo) SearchByKeywords(ctx context.Context, keywords []string, limit int) ([]*entity.DocumentChunk, error) {
	return nil, nil
}

type memExecutor struct{ calls int }

func (m *memExecutor) Execute(ctx context.Context, sqlText string, sec entity.SecurityContext) (*contract.QueryOutcome, error) {
	m.calls++
	return &contract.QueryOutcome{
		Status: contract.OutcomeRows,
		Rows:   []map[string]interface{}{{"remaining_days": 7}},
	}, nil
}

type unitEmbedder struct{}

func (unitEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{1, 0}},
	}, nil
}

type unitReranker struct{}

func (unitReranker) Score(query string, documents []string) ([]float64, error) {
	scores := make([]float64, len(documents))
	for i := range scores {
		scores[i] = 1
	}
	return scores, nil
}

func newTestWorkflow(routerLLM, sqlLLM, genLLM llm.LLMProvider, executor contract.QueryExecutor) *Workflow {
	nop := logger.NewNopLogger()
	schemas := schema.NewRetriever(memCatalog{}, unitEmbedder{}, nop)
	rt := router.New(routerLLM, nop)
	agent := sqlagent.NewAgent(sqlLLM, executor, schemas, nop, "large", 3)
	retriever := retrieval.NewRetriever(memDocRepo{}, unitEmbedder{}, unitReranker{}, nop)
	generator := generate.NewGenerator(genLLM, nop, "small", "large", 15000)
	return NewWorkflow(rt, schemas, agent, retriever, generator, nop)
}

func testSecurity() entity.SecurityContext {
	return entity.SecurityContext{
		EmployeeID:           "emp001",
		DepartmentCode:       "MG_HR",
		ParentDepartmentCode: "HQ_MG",
		JobRankID:            "2",
	}
}

func TestRunBothIntentFillsBothBranches(t *testing.T) {
	routerLLM := &scriptedLLM{generated: `{"intent": "both", "sql_keywords": ["leave", "employees"], "vector_query": "annual leave policy"}`}
	sqlLLM := &scriptedLLM{generated: `{"thought": "count remaining days", "sql": "SELECT remaining_days FROM leave_balance"}`}
	genLLM := &scriptedLLM{chunks: []string{"You have ", "7 days left."}}
	executor := &memExecutor{}

	w := newTestWorkflow(routerLLM, sqlLLM, genLLM, executor)

	state := &State{Question: "How many leave days do I have left, and what does the policy say?", Security: testSecurity()}
	var streamed strings.Builder
	answer, err := w.Run(context.Background(), state, func(chunk string) error {
		streamed.WriteString(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if answer != "You have 7 days left." {
		t.Errorf("answer = %q", answer)
	}
	if streamed.String() != answer {
		t.Errorf("streamed %q, want the full answer", streamed.String())
	}
	if state.Intent != router.IntentBoth {
		t.Errorf("Intent = %q, want both", state.Intent)
	}
	if !strings.Contains(state.RDBResult, "remaining_days") {
		t.Errorf("RDBResult = %q, want query rows", state.RDBResult)
	}
	if !strings.Contains(state.VectorResult, "leave policy text") {
		t.Errorf("VectorResult = %q, want retrieved chunk", state.VectorResult)
	}
	if state.GeneratedSQL == "" {
		t.Errorf("GeneratedSQL should be recorded")
	}
	if state.FinalAnswer != answer {
		t.Errorf("FinalAnswer = %q", state.FinalAnswer)
	}
	if executor.calls != 1 {
		t.Errorf("executor calls = %d, want 1", executor.calls)
	}
}

// slowExecutor holds its answer back so the structured branch finishes
// well after the unstructured one.
type slowExecutor struct {
	delay time.Duration
	calls int
}

func (m *slowExecutor) Execute(ctx context.Context, sqlText string, sec entity.SecurityContext) (*contract.QueryOutcome, error) {
	m.calls++
	time.Sleep(m.delay)
	return &contract.QueryOutcome{
		Status: contract.OutcomeRows,
		Rows:   []map[string]interface{}{{"remaining_days": 7}},
	}, nil
}

func TestRunBothIntentGeneratorWaitsForSlowBranch(t *testing.T) {
	routerLLM := &scriptedLLM{generated: `{"intent": "both", "sql_keywords": ["leave"], "vector_query": "annual leave policy"}`}
	sqlLLM := &scriptedLLM{generated: `{"thought": "t", "sql": "SELECT remaining_days FROM leave_balance"}`}
	genLLM := &scriptedLLM{chunks: []string{"done"}}
	executor := &slowExecutor{delay: 100 * time.Millisecond}

	w := newTestWorkflow(routerLLM, sqlLLM, genLLM, executor)

	state := &State{Question: "leave days and policy?", Security: testSecurity()}
	if _, err := w.Run(context.Background(), state, func(string) error { return nil }); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// The generator prompt is built from state after the join, so both
	// branch results must already be present in it.
	if len(genLLM.streamMsgs) != 1 {
		t.Fatalf("generator messages = %d, want 1", len(genLLM.streamMsgs))
	}
	prompt := genLLM.streamMsgs[0].Content
	if !strings.Contains(prompt, "remaining_days") {
		t.Errorf("generator ran before the delayed structured branch finished")
	}
	if !strings.Contains(prompt, "leave policy text") {
		t.Errorf("generator prompt missing the unstructured branch result")
	}
	if executor.calls != 1 {
		t.Errorf("executor calls = %d, want 1", executor.calls)
	}
}

func TestRunOtherIntentSkipsRetrieval(t *testing.T) {
	routerLLM := &scriptedLLM{generated: `{"intent": "other", "sql_keywords": [], "vector_query": ""}`}
	genLLM := &scriptedLLM{chunks: []string{"Hello!"}}
	executor := &memExecutor{}

	w := newTestWorkflow(routerLLM, &scriptedLLM{}, genLLM, executor)

	state := &State{Question: "hi", Security: testSecurity()}
	answer, err := w.Run(context.Background(), state, func(string) error { return nil })
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if answer != "Hello!" {
		t.Errorf("answer = %q", answer)
	}
	if executor.calls != 0 {
		t.Errorf("executor calls = %d, want 0", executor.calls)
	}
	if state.RDBResult != "" || state.VectorResult != "" {
		t.Errorf("retrieval ran for a small-talk turn: rdb=%q vector=%q", state.RDBResult, state.VectorResult)
	}
}

func TestRunClassificationFailureAborts(t *testing.T) {
	routerLLM := &scriptedLLM{generated: "I cannot answer that."}
	w := newTestWorkflow(routerLLM, &scriptedLLM{}, &scriptedLLM{}, &memExecutor{})

	state := &State{Question: "q", Security: testSecurity()}
	handlerCalled := false
	_, err := w.Run(context.Background(), state, func(string) error {
		handlerCalled = true
		return nil
	})
	if err == nil {
		t.Fatalf("Run() error = nil, want classification error")
	}
	if handlerCalled {
		t.Errorf("no tokens should stream when classification fails")
	}
}
