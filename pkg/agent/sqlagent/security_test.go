package sqlagent

import (
	"testing"

	"deep-nexus-be/internal/entity"
)

func TestValidateSecurityContext(t *testing.T) {
	valid := entity.SecurityContext{
		EmployeeID:           "emp036",
		DepartmentCode:       "MG_HR",
		ParentDepartmentCode: "HQ_MG",
		JobRankID:            "4",
	}

	tests := []struct {
		name    string
		mutate  func(sec *entity.SecurityContext)
		wantErr bool
	}{
		{
			name:   "all values clean",
			mutate: func(sec *entity.SecurityContext) {},
		},
		{
			name: "hyphen and underscore allowed",
			mutate: func(sec *entity.SecurityContext) {
				sec.EmployeeID = "emp-036_a"
			},
		},
		{
			name: "quote injection in employee id",
			mutate: func(sec *entity.SecurityContext) {
				sec.EmployeeID = "emp036'; DROP TABLE employees;--"
			},
			wantErr: true,
		},
		{
			name: "whitespace in department code",
			mutate: func(sec *entity.SecurityContext) {
				sec.DepartmentCode = "MG HR"
			},
			wantErr: true,
		},
		{
			name: "empty rank",
			mutate: func(sec *entity.SecurityContext) {
				sec.JobRankID = ""
			},
			wantErr: true,
		},
		{
			name: "comma in parent department",
			mutate: func(sec *entity.SecurityContext) {
				sec.ParentDepartmentCode = "HQ,MG"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sec := valid
			tt.mutate(&sec)

			err := ValidateSecurityContext(sec)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateSecurityContext() = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateSecurityContext() = %v, want nil", err)
			}
		})
	}
}
