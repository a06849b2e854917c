package teams

import (
	"time"

	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
)

const defaultTeamName = "Team"

// Member is one entry of a team's members list.
type Member struct {
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	EmployeeRole string `json:"employee_role,omitempty"`
}

// Team is a crew of employees that jobs and vehicles can be assigned to.
type Team struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	LeaderID   string     `json:"leader_id,omitempty"`
	LeaderName string     `json:"leader_name,omitempty"`
	Members    []Member   `json:"members"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// HasMember reports whether employeeID is listed on the team.
func (t Team) HasMember(employeeID string) bool {
	for _, m := range t.Members {
		if m.EmployeeID == employeeID {
			return true
		}
	}
	return false
}

// MemberNames lists the display names of members that have one.
func (t Team) MemberNames() []string {
	names := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		if m.EmployeeName != "" {
			names = append(names, m.EmployeeName)
		}
	}
	return names
}

// Membership is a team an employee belongs to, as seen by that employee.
type Membership struct {
	TeamID      string   `json:"team_id"`
	TeamName    string   `json:"team_name"`
	MemberNames []string `json:"member_names"`
}

func decodeTeam(raw docstore.Document) Team {
	team := Team{
		ID:         raw.ID(),
		Name:       raw.String("name"),
		LeaderID:   raw.String("leaderId"),
		LeaderName: raw.String("leaderName"),
		CreatedAt:  raw.Time("createdAt", time.UTC),
		UpdatedAt:  raw.Time("updatedAt", time.UTC),
	}
	if team.Name == "" {
		team.Name = defaultTeamName
	}
	members := raw.Maps("members")
	team.Members = make([]Member, 0, len(members))
	for _, m := range members {
		team.Members = append(team.Members, Member{
			EmployeeID:   m.String("employeeId"),
			EmployeeName: m.String("employeeName"),
			EmployeeRole: m.String("employeeRole"),
		})
	}
	return team
}
