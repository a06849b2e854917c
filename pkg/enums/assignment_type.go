package enums

// AssignmentType tags an entry in a job's assignments list.
type AssignmentType string

const (
	AssignmentTeamMember AssignmentType = "team-member"
	AssignmentTeam       AssignmentType = "team"
)

// String implements fmt.Stringer.
func (a AssignmentType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known assignment type.
func (a AssignmentType) IsValid() bool {
	return a == AssignmentTeamMember || a == AssignmentTeam
}
