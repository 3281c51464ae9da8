package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"deep-nexus-be/internal/pkg/logger"
	"deep-nexus-be/pkg/llm"
	"deep-nexus-be/pkg/memory"
)

// Intent is the route chosen for a question.
type Intent string

const (
	// IntentRDB answers from structured data via generated SQL.
	IntentRDB Intent = "rdb"
	// IntentVector answers from document search.
	IntentVector Intent = "vector"
	// IntentBoth needs structured and unstructured evidence.
	IntentBoth Intent = "both"
	// IntentOther goes straight to generation (small talk, or work
	// confined to an uploaded file).
	IntentOther Intent = "other"
)

// Decision is the router's structured output. SQLKeywords double as
// hard-filter terms for keyword search; VectorQuery is the expanded
// descriptive search phrase.
type Decision struct {
	Intent      Intent   `json:"intent"`
	SQLKeywords []string `json:"sql_keywords"`
	VectorQuery string   `json:"vector_query"`
}

// Router performs pure LLM-based route classification. No retrieval
// happens here.
type Router struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
}

func New(llmProvider llm.LLMProvider, log logger.ILogger) *Router {
	return &Router{
		llmProvider: llmProvider,
		logger:      log,
	}
}

// Classify routes the question. A response that cannot be parsed into
// a valid Decision is an error; callers treat it as fatal rather than
// guessing a route.
func (r *Router) Classify(ctx context.Context, question, fileContext, schemaContext string, history []memory.Turn) (*Decision, error) {
	prompt := r.buildPrompt(question, fileContext, schemaContext, history)

	response, err := r.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		return nil, fmt.Errorf("router classification failed: %w", err)
	}

	decision, err := parseDecision(response)
	if err != nil {
		r.logger.Error("router", "unparseable classification output", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	r.logger.Info("router", "question classified", map[string]interface{}{
		"intent":       string(decision.Intent),
		"sql_keywords": decision.SQLKeywords,
	})
	return decision, nil
}

func (r *Router) buildPrompt(question, fileContext, schemaContext string, history []memory.Turn) string {
	isFileUploaded := strings.TrimSpace(fileContext) != ""

	var prompt strings.Builder

	prompt.WriteString("You are a professional senior data architect and semantic search expert.\n")
	prompt.WriteString("Analyze the user's question and prior conversation, then decide [intent, sql_keywords, vector_query].\n")
	prompt.WriteString("If the current question contains references like 'that', 'it', or 'the previous one', resolve them against the prior conversation before deciding the intent.\n\n")

	prompt.WriteString("### 1. Intent decision logic (apply in priority order)\n\n")
	prompt.WriteString("Priority 1. 'other' (file-first principle)\n")
	prompt.WriteString("  - Condition: is_file_uploaded is true AND the question asks to analyze, summarize, translate, or transform the attached file content.\n")
	prompt.WriteString("  - Note: even if the file content looks like company policy or data, if the request can be resolved inside the file alone without any external lookup, the intent MUST be 'other'.\n\n")
	prompt.WriteString("Priority 2. 'rdb'\n")
	prompt.WriteString("  - Condition: the question needs specific figures, statistics, or rosters from the company database (see the table schema reference).\n\n")
	prompt.WriteString("Priority 3. 'vector'\n")
	prompt.WriteString("  - Condition: the question needs unstructured document knowledge such as company policies, guidelines, or procedures.\n\n")
	prompt.WriteString("Priority 4. 'both'\n")
	prompt.WriteString("  - Condition: a compound question that can only be answered by combining structured database records with policy documents.\n\n")

	prompt.WriteString("### 1.1 Prior conversation\n")
	prompt.WriteString(formatHistory(history))
	prompt.WriteString("\n\n")

	prompt.WriteString("### 2. Additional field guidelines\n")
	prompt.WriteString("- sql_keywords: extract only when intent is rdb/vector/both (empty list [] for other)\n")
	prompt.WriteString("- vector_query: produce only when intent is rdb/vector/both (empty string \"\" for other)\n\n")

	prompt.WriteString("### 3. sql_keywords act as the search engine's hard filter.\n")
	prompt.WriteString("- For database lookups: extract the most relevant table names and column names.\n")
	prompt.WriteString("- For document lookups: extract the core domain nouns that must appear in a document title or body (e.g. policy, procedure, remote work, family event).\n")
	prompt.WriteString("- These keywords drive filtering quality, so choose them carefully.\n\n")

	prompt.WriteString("### 4. vector_query: build a descriptive search phrase that includes technical terms and synonyms.\n")
	prompt.WriteString("- If the user mentions money, salary, or rates, expand with terms like 'salary', 'unit price', 'labor cost'.\n")
	prompt.WriteString("- If the user mentions skills or stacks, expand with 'tech skill', 'proficiency', 'expertise'.\n")
	prompt.WriteString("- Favor nouns, and mix in English terms that capture the core of the question.\n")
	prompt.WriteString("- If an uploaded file exists and the request concerns only that file, return intent 'other'.\n\n")

	prompt.WriteString("### Table schema reference:\n")
	prompt.WriteString(schemaContext)
	prompt.WriteString("\n\n")

	prompt.WriteString("### Examples (few-shot):\n")
	prompt.WriteString("Question: \"Analyze the attached file and produce a report.\"\n")
	prompt.WriteString("Result: {\"intent\": \"other\", \"sql_keywords\": [], \"vector_query\": \"\"}\n\n")
	prompt.WriteString("Question: \"Show me the unit price per job rank for the HR team.\"\n")
	prompt.WriteString("Result: {\"intent\": \"rdb\", \"sql_keywords\": [\"departments\", \"development_unit_prices\", \"job_ranks\", \"price_amount\"], \"vector_query\": \"HR team department job rank unit price labor cost\"}\n\n")
	prompt.WriteString("Question: \"What is our remote work policy, and am I eligible?\"\n")
	prompt.WriteString("Result: {\"intent\": \"both\", \"sql_keywords\": [\"employees\", \"departments\", \"remote work\", \"operating guideline\", \"work rules\"], \"vector_query\": \"remote work eligibility guideline telecommuting benefit policy\"}\n\n")
	prompt.WriteString("Question: \"Explain the approval procedure for bringing external devices in, from the security guidelines.\"\n")
	prompt.WriteString("Result: {\"intent\": \"vector\", \"sql_keywords\": [\"security guideline\", \"external device\", \"approval procedure\", \"security rules\"], \"vector_query\": \"external device intake security approval procedure asset management IT security policy\"}\n\n")

	prompt.WriteString("----------------------\n")
	prompt.WriteString("### Current session\n")
	prompt.WriteString(fmt.Sprintf("- is_file_uploaded: %t\n", isFileUploaded))
	prompt.WriteString(fmt.Sprintf("- User question: %s\n", question))
	if isFileUploaded {
		prompt.WriteString(fmt.Sprintf("- Attached file content (for reference): %s\n", fileContext))
	} else {
		prompt.WriteString("- Attached file content (for reference): no attached file\n")
	}
	prompt.WriteString("\nRespond with ONLY valid JSON:\n")
	prompt.WriteString("{\"intent\": \"rdb|vector|both|other\", \"sql_keywords\": [\"...\"], \"vector_query\": \"...\"}\n")

	return prompt.String()
}

// formatHistory renders the last question/answer pair; anaphora rarely
// reaches further back than that.
func formatHistory(history []memory.Turn) string {
	recent := history
	if len(recent) > 2 {
		recent = recent[len(recent)-2:]
	}
	lines := make([]string, 0, len(recent))
	for _, turn := range recent {
		label := "Previous answer"
		if turn.Role == memory.RoleUser {
			label = "Previous question"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, turn.Content))
	}
	if len(lines) == 0 {
		return "(no prior conversation)"
	}
	return strings.Join(lines, "\n")
}

func parseDecision(response string) (*Decision, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in router response")
	}

	var decision Decision
	if err := json.Unmarshal([]byte(jsonContent), &decision); err != nil {
		return nil, fmt.Errorf("router JSON unmarshal failed: %w", err)
	}

	decision.Intent = Intent(strings.ToLower(strings.TrimSpace(string(decision.Intent))))
	switch decision.Intent {
	case IntentRDB, IntentVector, IntentBoth:
	case IntentOther:
		// A route with no retrieval carries no retrieval parameters.
		decision.SQLKeywords = nil
		decision.VectorQuery = ""
	default:
		return nil, fmt.Errorf("unknown intent %q in router response", decision.Intent)
	}
	return &decision, nil
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}
