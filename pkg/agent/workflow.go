package agent

import (
	"context"

	"golang.org/x/sync/errgroup"

	"deep-nexus-be/internal/pkg/logger"
	"deep-nexus-be/pkg/agent/generate"
	"deep-nexus-be/pkg/agent/retrieval"
	"deep-nexus-be/pkg/agent/router"
	"deep-nexus-be/pkg/agent/schema"
	"deep-nexus-be/pkg/agent/sqlagent"
	"deep-nexus-be/pkg/llm"
)

// branchPlan says which retrieval branches an intent activates.
type branchPlan struct {
	structured   bool
	unstructured bool
}

func planFor(intent router.Intent) branchPlan {
	switch intent {
	case router.IntentRDB:
		return branchPlan{structured: true}
	case router.IntentVector:
		return branchPlan{unstructured: true}
	case router.IntentBoth:
		return branchPlan{structured: true, unstructured: true}
	default:
		return branchPlan{}
	}
}

// Workflow wires the nodes into the question-answering graph:
// router -> (sql agent | document retrieval | both in parallel | none)
// -> generator. Generation always waits for every active branch.
type Workflow struct {
	router    *router.Router
	schemas   *schema.Retriever
	sqlAgent  *sqlagent.Agent
	retriever *retrieval.Retriever
	generator *generate.Generator
	logger    logger.ILogger
}

func NewWorkflow(rt *router.Router, schemas *schema.Retriever, sqlAgent *sqlagent.Agent, retriever *retrieval.Retriever, generator *generate.Generator, log logger.ILogger) *Workflow {
	return &Workflow{
		router:    rt,
		schemas:   schemas,
		sqlAgent:  sqlAgent,
		retriever: retriever,
		generator: generator,
		logger:    log,
	}
}

// Run executes the graph for state, streaming answer tokens through
// handler, and returns the full answer. Classification failures abort
// the run; branch-level degradation is folded into the evidence.
func (w *Workflow) Run(ctx context.Context, state *State, handler llm.StreamHandler) (string, error) {
	inventory := w.schemas.Inventory(ctx)

	decision, err := w.router.Classify(ctx, state.Question, state.FileContext, inventory, state.History)
	if err != nil {
		return "", err
	}
	state.Intent = decision.Intent
	state.SQLKeywords = decision.SQLKeywords
	state.VectorQuery = decision.VectorQuery

	plan := planFor(decision.Intent)
	if plan.structured && plan.unstructured {
		group, groupCtx := errgroup.WithContext(ctx)
		group.Go(func() error {
			return w.runStructured(groupCtx, state)
		})
		group.Go(func() error {
			w.runUnstructured(groupCtx, state)
			return nil
		})
		if err := group.Wait(); err != nil {
			return "", err
		}
	} else if plan.structured {
		if err := w.runStructured(ctx, state); err != nil {
			return "", err
		}
	} else if plan.unstructured {
		w.runUnstructured(ctx, state)
	}

	answer, err := w.generator.Stream(ctx, generate.Input{
		Question:     state.Question,
		RDBResult:    state.RDBResult,
		VectorResult: state.VectorResult,
		FileContext:  state.FileContext,
		History:      state.History,
	}, handler)
	if err != nil {
		return "", err
	}
	state.FinalAnswer = answer
	return answer, nil
}

func (w *Workflow) runStructured(ctx context.Context, state *State) error {
	result, err := w.sqlAgent.Run(ctx, state.Question, state.SQLKeywords, state.Security, state.History)
	if err != nil {
		return err
	}
	state.RDBResult = result.RDBResult
	state.GeneratedSQL = result.GeneratedSQL
	return nil
}

func (w *Workflow) runUnstructured(ctx context.Context, state *State) {
	state.VectorResult = w.retriever.Search(ctx, state.VectorQuery, state.Security.DepartmentCode, state.SQLKeywords)
}
