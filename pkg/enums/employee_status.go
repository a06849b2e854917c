package enums

import "strings"

// EmployeeStatus is the employment flag stored on employee documents.
type EmployeeStatus string

const (
	EmployeeStatusActive   EmployeeStatus = "active"
	EmployeeStatusInactive EmployeeStatus = "inactive"
)

// ParseEmployeeStatus defaults missing values to active and folds case.
func ParseEmployeeStatus(value string) EmployeeStatus {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return EmployeeStatusActive
	}
	return EmployeeStatus(trimmed)
}

// IsActive reports whether the employee should appear in active rosters.
func (s EmployeeStatus) IsActive() bool {
	return s == EmployeeStatusActive
}

// ClockState summarizes an employee's time entry for the admin dashboard.
type ClockState string

const (
	ClockStateNotClockedIn ClockState = "Not Clocked In"
	ClockStateClockedIn    ClockState = "Clocked In"
	ClockStateClockedOut   ClockState = "Clocked Out"
)

// String implements fmt.Stringer.
func (c ClockState) String() string {
	return string(c)
}
