package enums

// RescheduleState is derived from a job's reschedule request approval flag.
type RescheduleState string

const (
	RescheduleStateNone     RescheduleState = "none"
	RescheduleStatePending  RescheduleState = "pending"
	RescheduleStateApproved RescheduleState = "approved"
	RescheduleStateDeclined RescheduleState = "declined"
)

// String implements fmt.Stringer.
func (r RescheduleState) String() string {
	return string(r)
}

// IsTerminal reports whether an admin has already decided the request.
func (r RescheduleState) IsTerminal() bool {
	return r == RescheduleStateApproved || r == RescheduleStateDeclined
}
