package contract

import (
	"context"

	"deep-nexus-be/internal/entity"
)

type QueryOutcomeStatus string

const (
	// OutcomeRows means the query produced at least one row (or was a
	// write statement).
	OutcomeRows QueryOutcomeStatus = "rows"
	// OutcomeForbidden means matching data exists but row-level
	// security filtered all of it for this caller.
	OutcomeForbidden QueryOutcomeStatus = "forbidden"
	// OutcomeNotFound means no matching data exists at all.
	OutcomeNotFound QueryOutcomeStatus = "not_found"
)

// QueryOutcome is the conclusive result of one executed query.
type QueryOutcome struct {
	Status QueryOutcomeStatus
	Rows   []map[string]interface{}
}

// QueryExecutor runs a generated statement inside a single transaction
// after injecting the caller's security context as session-scoped
// configuration. An error return means the statement itself failed and
// the attempt may be retried; a QueryOutcome is final.
type QueryExecutor interface {
	Execute(ctx context.Context, sqlText string, sec entity.SecurityContext) (*QueryOutcome, error)
}
