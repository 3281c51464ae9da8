package sqlagent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avast/retry-go/v4"

	"deep-nexus-be/internal/entity"
	"deep-nexus-be/internal/pkg/logger"
	"deep-nexus-be/internal/repository/contract"
	"deep-nexus-be/pkg/agent/schema"
	"deep-nexus-be/pkg/llm"
	"deep-nexus-be/pkg/memory"
)

// FailureMessage is handed to the generator when every attempt failed.
const FailureMessage = "SQL execution failed. Please contact an administrator."

// Result is the structured-data evidence for the generator. RDBResult
// is a JSON document: an array of rows, or a status object for
// forbidden/not-found/error outcomes.
type Result struct {
	RDBResult    string
	GeneratedSQL string
}

// Agent turns a question into SQL, executes it under the caller's
// security context, and self-corrects on execution errors. Each
// attempt runs to completion once its statement is submitted.
type Agent struct {
	llmProvider llm.LLMProvider
	executor    contract.QueryExecutor
	schemas     *schema.Retriever
	logger      logger.ILogger
	model       string
	maxAttempts uint
}

func NewAgent(llmProvider llm.LLMProvider, executor contract.QueryExecutor, schemas *schema.Retriever, log logger.ILogger, model string, maxAttempts int) *Agent {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Agent{
		llmProvider: llmProvider,
		executor:    executor,
		schemas:     schemas,
		logger:      log,
		model:       model,
		maxAttempts: uint(maxAttempts),
	}
}

type sqlGeneration struct {
	Thought string `json:"thought"`
	SQL     string `json:"sql"`
}

// Run produces and executes a query for the question. Infrastructure
// failures before the first attempt (embedding, catalog) are returned
// as errors; everything past that point resolves to a Result.
func (a *Agent) Run(ctx context.Context, question string, keywords []string, sec entity.SecurityContext, history []memory.Turn) (*Result, error) {
	if err := ValidateSecurityContext(sec); err != nil {
		a.logger.Warn("sqlagent", "rejected security context", map[string]interface{}{
			"error": err.Error(),
		})
		return &Result{RDBResult: statusJSON("error", err.Error())}, nil
	}

	ddlContext, err := a.schemas.RelevantDDL(ctx, keywords)
	if err != nil {
		return nil, err
	}
	inventory := a.schemas.Inventory(ctx)

	var (
		result    *Result
		lastError string
		attempt   int
	)

	err = retry.Do(
		func() error {
			attempt++
			prompt := a.buildPrompt(question, inventory, ddlContext, sec, history, lastError)

			response, err := a.llmProvider.Generate(ctx, prompt, llm.WithModel(a.model), llm.WithTemperature(0.0))
			if err != nil {
				lastError = fmt.Sprintf("model call failed: %v", err)
				return err
			}

			generation, err := parseGeneration(response)
			if err != nil {
				lastError = fmt.Sprintf("response was not a valid generation: %v", err)
				return err
			}

			outcome, err := a.executor.Execute(ctx, generation.SQL, sec)
			if err != nil {
				lastError = fmt.Sprintf("query: %s\nerror message: %v", generation.SQL, err)
				a.logger.Warn("sqlagent", "query attempt failed", map[string]interface{}{
					"attempt": attempt,
					"error":   err.Error(),
				})
				return err
			}

			result = &Result{
				RDBResult:    formatOutcome(outcome),
				GeneratedSQL: generation.SQL,
			}
			return nil
		},
		retry.Attempts(a.maxAttempts),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		a.logger.Error("sqlagent", "all query attempts exhausted", map[string]interface{}{
			"attempts": attempt,
			"error":    err.Error(),
		})
		return &Result{RDBResult: FailureMessage}, nil
	}
	return result, nil
}

func (a *Agent) buildPrompt(question, inventory, ddlContext string, sec entity.SecurityContext, history []memory.Turn, lastError string) string {
	var prompt strings.Builder

	prompt.WriteString("You are a PostgreSQL expert for a complex enterprise resource planning system.\n")
	prompt.WriteString("Generate the best possible SQL from the provided DDL and the user's question.\n\n")

	prompt.WriteString("### Rules\n")
	prompt.WriteString("1. Chain-of-thought: before writing SQL, lay out the step-by-step logic in the 'thought' field.\n")
	prompt.WriteString("2. Dialect: follow PostgreSQL syntax and always use table aliases for readability.\n")
	prompt.WriteString("3. Logic: for HR or payroll queries, decide from the question's context whether to exclude resigned employees (resignation_date).\n")
	prompt.WriteString("4. Joins: always confirm foreign-key relationships in the DDL before joining.\n")
	prompt.WriteString("5. When names or labels are needed, query the display name from the master table instead of returning raw codes (department codes, rank codes, leave type codes).\n\n")

	prompt.WriteString("### Few-shot example\n")
	prompt.WriteString("Question: \"Show the total expected annual salary for associate-level employees in the HR team.\"\n")
	prompt.WriteString("Thought: 1. Join employees with development_unit_prices. 2. Find the HR team code in departments. 3. Multiply unit_price by 12 for the annual figure. 4. Aggregate with SUM.\n")
	prompt.WriteString("SQL: SELECT SUM(d.price_amount * 12) as total_annual_salary FROM public.employees e JOIN public.development_unit_prices d ON e.job_rank_id = d.job_rank_id AND e.department_code = d.department_code WHERE e.department_code = 'MG_HR' AND e.job_rank_id = 4 AND e.resignation_date IS NULL;\n\n")

	prompt.WriteString("### Context\n")
	prompt.WriteString(fmt.Sprintf("- Caller employee_id: %s\n", sec.EmployeeID))
	prompt.WriteString(fmt.Sprintf("- Caller job rank id: %s\n", sec.JobRankID))
	prompt.WriteString(fmt.Sprintf("- Caller department code: %s\n", sec.DepartmentCode))
	prompt.WriteString(fmt.Sprintf("- Caller parent department code: %s\n", sec.ParentDepartmentCode))
	prompt.WriteString(fmt.Sprintf("- Caller company email: %s\n\n", sec.CompanyEmail))

	prompt.WriteString("- Full table inventory:\n")
	prompt.WriteString(inventory)
	prompt.WriteString("\n\n- DDL of the most relevant tables, to ground the SQL:\n")
	prompt.WriteString(ddlContext)
	prompt.WriteString("\n")

	if lastError != "" {
		prompt.WriteString("\n[Previous query error report]\n")
		prompt.WriteString(lastError)
		prompt.WriteString("\nAnalyze the error above and do not repeat the same mistake.\n")
	}

	prompt.WriteString("\n### Question\n")
	prompt.WriteString(question)
	prompt.WriteString("\n\n### Prior conversation\n")
	prompt.WriteString("- If the user says \"show it again\" or \"filter that\" without stating new conditions, use the prior conversation to build the SQL.\n")
	prompt.WriteString(formatHistory(history))

	prompt.WriteString("\n\nRespond with ONLY valid JSON:\n")
	prompt.WriteString("{\"thought\": \"...\", \"sql\": \"...\"}\n")

	return prompt.String()
}

// formatHistory renders the last two question/answer pairs.
func formatHistory(history []memory.Turn) string {
	recent := history
	if len(recent) > 4 {
		recent = recent[len(recent)-4:]
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

func parseGeneration(response string) (*sqlGeneration, error) {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var generation sqlGeneration
	if err := json.Unmarshal([]byte(response[startIdx:endIdx+1]), &generation); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}
	if strings.TrimSpace(generation.SQL) == "" {
		return nil, fmt.Errorf("generation carried no SQL")
	}
	return &generation, nil
}

func formatOutcome(outcome *contract.QueryOutcome) string {
	switch outcome.Status {
	case contract.OutcomeForbidden:
		return statusJSON("forbidden", "The data exists, but the current user's rank or department does not permit access.")
	case contract.OutcomeNotFound:
		return statusJSON("not_found", "No data matching the requested conditions exists in the system.")
	default:
		if len(outcome.Rows) == 0 {
			return "[]"
		}
		data, err := json.Marshal(outcome.Rows)
		if err != nil {
			return statusJSON("error", fmt.Sprintf("failed to encode query result: %v", err))
		}
		return string(data)
	}
}

func statusJSON(status, message string) string {
	data, _ := json.Marshal(map[string]string{"status": status, "message": message})
	return string(data)
}
