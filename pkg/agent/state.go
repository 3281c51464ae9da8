package agent

import (
	"deep-nexus-be/internal/entity"
	"deep-nexus-be/pkg/agent/router"
	"deep-nexus-be/pkg/memory"
)

// State accumulates everything one question produces as it moves
// through the workflow. Each node fills its own fields.
type State struct {
	Question    string
	FileContext string
	Security    entity.SecurityContext
	History     []memory.Turn

	// Router output.
	Intent      router.Intent
	SQLKeywords []string
	VectorQuery string

	// Branch outputs.
	GeneratedSQL string
	RDBResult    string
	VectorResult string

	// Terminal output.
	FinalAnswer string
}
