package sqlagent

import (
	"fmt"
	"regexp"

	"deep-nexus-be/internal/entity"
)

// Security context values end up inside set_config calls, so anything
// beyond this allow-list is rejected outright.
var contextValuePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-]+$`)

// ValidateSecurityContext checks every identity value that will be
// injected as a session variable. It runs before any statement touches
// the database.
func ValidateSecurityContext(sec entity.SecurityContext) error {
	fields := []struct {
		name  string
		value string
	}{
		{"employee_id", sec.EmployeeID},
		{"department_code", sec.DepartmentCode},
		{"parent_department_code", sec.ParentDepartmentCode},
		{"job_rank_id", sec.JobRankID},
	}
	for _, field := range fields {
		if !contextValuePattern.MatchString(field.value) {
			return fmt.Errorf("security alert: invalid context value for %s: %q", field.name, field.value)
		}
	}
	return nil
}
