package implementation

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"deep-nexus-be/internal/entity"
	"deep-nexus-be/internal/repository/contract"
)

type queryExecutor struct {
	db *gorm.DB
}

func NewQueryExecutor(db *gorm.DB) contract.QueryExecutor {
	return &queryExecutor{db: db}
}

// Execute runs sqlText with the caller's identity bound as local
// session configuration. The set_config calls and the query share one
// transaction so the row-level security policies see the variables and
// they vanish on commit or rollback.
func (e *queryExecutor) Execute(ctx context.Context, sqlText string, sec entity.SecurityContext) (*contract.QueryOutcome, error) {
	var outcome *contract.QueryOutcome

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`SELECT set_config('app.current_employee_id', ?, true),
			        set_config('app.current_dept_code', ?, true),
			        set_config('app.current_parent_dept_code', ?, true),
			        set_config('app.current_rank_level', ?, true)`,
			sec.EmployeeID, sec.DepartmentCode, sec.ParentDepartmentCode, sec.JobRankID,
		).Error; err != nil {
			return fmt.Errorf("failed to set security context: %w", err)
		}

		rows, err := tx.Raw(sqlText).Rows()
		if err != nil {
			return err
		}
		defer rows.Close()

		columns, err := rows.Columns()
		if err != nil {
			return err
		}

		var records []map[string]interface{}
		for rows.Next() {
			values := make([]interface{}, len(columns))
			pointers := make([]interface{}, len(columns))
			for i := range values {
				pointers[i] = &values[i]
			}
			if err := rows.Scan(pointers...); err != nil {
				return err
			}
			record := make(map[string]interface{}, len(columns))
			for i, col := range columns {
				if b, ok := values[i].([]byte); ok {
					record[col] = string(b)
				} else {
					record[col] = values[i]
				}
			}
			records = append(records, record)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		if len(records) == 0 && isSelect(sqlText) {
			return e.classifyEmptyResult(tx, sqlText, &outcome)
		}

		outcome = &contract.QueryOutcome{Status: contract.OutcomeRows, Rows: records}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// classifyEmptyResult distinguishes "the data exists but RLS hid it"
// from "the data does not exist" by re-counting the query under a
// SECURITY DEFINER function that bypasses row-level security.
func (e *queryExecutor) classifyEmptyResult(tx *gorm.DB, sqlText string, outcome **contract.QueryOutcome) error {
	var count int64
	if err := tx.Raw("SELECT fn_check_query_count_bypass_rls(?)", shadowCheckStatement(sqlText)).Scan(&count).Error; err != nil {
		return fmt.Errorf("rls existence check failed: %w", err)
	}

	*outcome = &contract.QueryOutcome{Status: statusForShadowCount(count)}
	return nil
}

// shadowCheckStatement prepares a statement for the bypass-count
// function, which rejects trailing semicolons.
func shadowCheckStatement(sqlText string) string {
	return strings.TrimSuffix(strings.TrimSpace(sqlText), ";")
}

// statusForShadowCount maps the privileged row count of an empty SELECT
// to its outcome: rows visible only without RLS mean the caller lacks
// permission, zero rows either way mean the data does not exist.
func statusForShadowCount(count int64) contract.QueryOutcomeStatus {
	if count > 0 {
		return contract.OutcomeForbidden
	}
	return contract.OutcomeNotFound
}

func isSelect(sqlText string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sqlText)), "SELECT")
}
