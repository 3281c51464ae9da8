package entity

// SecurityContext carries the caller-identity attributes injected into
// the relational store as session configuration, where row-level
// security policies read them. Values are opaque strings here; the
// structured-query agent validates them before any injection.
type SecurityContext struct {
	EmployeeID           string
	DepartmentCode       string
	ParentDepartmentCode string
	JobRankID            string
	CompanyEmail         string
}
