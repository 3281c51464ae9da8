package generate

import (
	"context"
	"fmt"
	"strings"

	"deep-nexus-be/internal/pkg/logger"
	"deep-nexus-be/pkg/agent/retrieval"
	"deep-nexus-be/pkg/llm"
	"deep-nexus-be/pkg/memory"
)

// Input carries every piece of evidence the final answer may draw on.
type Input struct {
	Question     string
	RDBResult    string
	VectorResult string
	FileContext  string
	History      []memory.Turn
}

// Generator synthesizes the final answer from the gathered evidence
// and streams it token by token.
type Generator struct {
	llmProvider    llm.LLMProvider
	logger         logger.ILogger
	smallModel     string
	largeModel     string
	largeThreshold int
}

func NewGenerator(llmProvider llm.LLMProvider, log logger.ILogger, smallModel, largeModel string, largeThreshold int) *Generator {
	if largeThreshold <= 0 {
		largeThreshold = 15000
	}
	return &Generator{
		llmProvider:    llmProvider,
		logger:         log,
		smallModel:     smallModel,
		largeModel:     largeModel,
		largeThreshold: largeThreshold,
	}
}

// SelectModel picks the large model only when the combined evidence is
// big enough to need its context window.
func (g *Generator) SelectModel(in Input) string {
	if len(in.RDBResult)+len(in.VectorResult) > g.largeThreshold {
		return g.largeModel
	}
	return g.smallModel
}

// Stream produces the answer, invoking handler for every token chunk,
// and returns the accumulated full answer.
func (g *Generator) Stream(ctx context.Context, in Input, handler llm.StreamHandler) (string, error) {
	model := g.SelectModel(in)
	prompt := g.buildPrompt(in)

	var full strings.Builder
	err := g.llmProvider.Stream(ctx, []llm.Message{{Role: "user", Content: prompt}}, func(chunk string) error {
		full.WriteString(chunk)
		return handler(chunk)
	}, llm.WithModel(model))
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}

	g.logger.Info("generator", "answer generated", map[string]interface{}{
		"model":  model,
		"length": full.Len(),
	})
	return full.String(), nil
}

func (g *Generator) buildPrompt(in Input) string {
	var prompt strings.Builder

	prompt.WriteString("You are the company's internal information expert.\n")
	prompt.WriteString("Answer the employee's question kindly and accurately from the provided [Structured data], [Unstructured documents], and [Prior conversation].\n\n")

	prompt.WriteString("### Answer guidelines\n")
	prompt.WriteString("1. Combined answer: weave the structured data (figures, status) and unstructured data (policies, procedures) into one complete response.\n")
	prompt.WriteString("2. Readability: use markdown tables or bullet points for key figures and lists, but never write ### or **.\n")
	prompt.WriteString("3. Insufficient information: if the retrieved information cannot fully answer, do not guess; state what additional confirmation is needed.\n")
	prompt.WriteString("4. If no structured or unstructured data exists and the request concerns only an uploaded file, perform exactly what the user asked on that file.\n")
	prompt.WriteString("5. If both retrieved data and an uploaded file exist, blend the results with the file content into a natural answer.\n\n")

	prompt.WriteString("### Prohibitions and conventions\n")
	prompt.WriteString("1. Never expose raw system codes such as 'MG_HR', 'HQ_MG', or 'LV_HALF_AM' in the answer; use the human-readable name that fits the question's context instead.\n")
	prompt.WriteString("2. If the data only has an identifier like 'emp036' with no name, phrase it as 'employee ID emp036' inside a natural sentence.\n")
	prompt.WriteString("3. If the unstructured result says '" + retrieval.NoResultsSentinel + "', do not quote that text; say something like 'I could not find a related policy.' instead.\n")
	prompt.WriteString("4. If the structured data has status forbidden, tell the user they do not have permission to access that data.\n\n")

	prompt.WriteString("[Structured data (RDB)]\n")
	prompt.WriteString(orDefault(in.RDBResult, "no data retrieved"))
	prompt.WriteString("\n\n[Unstructured documents (Vector)]\n")
	prompt.WriteString(orDefault(in.VectorResult, "no related policy found"))
	prompt.WriteString("\n\n[Uploaded file content]\n")
	prompt.WriteString(orDefault(in.FileContext, "no uploaded file"))
	prompt.WriteString("\n\n[Prior conversation]\n")
	prompt.WriteString(formatHistory(in.History))
	prompt.WriteString("\n\n[User question]\n")
	prompt.WriteString(in.Question)
	prompt.WriteString("\n\n[Answer format]\n")
	prompt.WriteString("1. Body\n")
	prompt.WriteString("- Keep the tone and manner consistent with the prior conversation.\n")
	prompt.WriteString("- Choose the best structure for the data: table, list, or paragraphs.\n")
	prompt.WriteString("- For facts drawn from unstructured documents, write naturally and name the report or policy the detail came from.\n")
	prompt.WriteString("- Do not include markdown headers (###) or bold (**); tables and bullets are fine.\n")
	prompt.WriteString("2. Sources\n")
	prompt.WriteString("- Only when the answer used unstructured documents, cite them as '[Source: document name](URL)'.\n")

	return prompt.String()
}

func formatHistory(history []memory.Turn) string {
	lines := make([]string, 0, len(history))
	for _, turn := range history {
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

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
