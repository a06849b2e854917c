package vehicles

import (
	"time"

	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
)

const (
	fieldPlateNum           = "plateNum"
	fieldAvailable          = "available"
	fieldCurrentDriverID    = "currentDriverId"
	fieldCurrentDriverName  = "currentDriverName"
	fieldCurrentTeamID      = "currentTeamId"
	fieldCurrentTeamName    = "currentTeamName"
	fieldCurrentTeamMembers = "currentTeamMembers"
	fieldAssignedAt         = "assignedAt"
	fieldCreatedAt          = "createdAt"
)

// holderFields are cleared when a plate is released.
var holderFields = []string{
	fieldCurrentDriverID,
	fieldCurrentDriverName,
	fieldCurrentTeamID,
	fieldCurrentTeamName,
	fieldCurrentTeamMembers,
	fieldAssignedAt,
}

// Plate is a fleet vehicle identified by its license plate.
type Plate struct {
	ID                 string     `json:"id"`
	PlateNum           string     `json:"plate_num"`
	CurrentDriverID    string     `json:"current_driver_id,omitempty"`
	CurrentDriverName  string     `json:"current_driver_name,omitempty"`
	CurrentTeamID      string     `json:"current_team_id,omitempty"`
	CurrentTeamName    string     `json:"current_team_name,omitempty"`
	CurrentTeamMembers []string   `json:"current_team_members,omitempty"`
	AssignedAt         *time.Time `json:"assigned_at,omitempty"`
	Available          bool       `json:"available"`
	CreatedAt          *time.Time `json:"created_at,omitempty"`
}

// Classification is how a plate presents to one requester.
type Classification struct {
	Available   bool `json:"available"`
	HeldBySelf  bool `json:"held_by_self"`
	HeldByOther bool `json:"held_by_other"`
}

// PlateView pairs a plate with the requester's classification of it.
type PlateView struct {
	Plate
	Classification
}

// TeamRef is the team a plate is taken out for.
type TeamRef struct {
	ID      string
	Name    string
	Members []string
}

// Classify decides whether requesterID, optionally through requesterTeamID,
// may pick the plate. A plate held by the requester is always selectable;
// only heldByOther disables selection.
func Classify(plate Plate, requesterID, requesterTeamID string) Classification {
	heldBySelf := (requesterID != "" && plate.CurrentDriverID == requesterID) ||
		(requesterTeamID != "" && plate.CurrentTeamID == requesterTeamID)
	available := plate.Available || heldBySelf
	return Classification{
		Available:   available,
		HeldBySelf:  heldBySelf,
		HeldByOther: !available && !heldBySelf,
	}
}

// ClassifyForTeams classifies against every team the requester belongs to;
// a match through any of them counts as held by self.
func ClassifyForTeams(plate Plate, requesterID string, teamIDs []string) Classification {
	best := Classify(plate, requesterID, "")
	for _, teamID := range teamIDs {
		if c := Classify(plate, requesterID, teamID); c.HeldBySelf {
			return c
		}
	}
	return best
}

func decodePlate(raw docstore.Document) Plate {
	plate := Plate{
		ID:                 raw.ID(),
		PlateNum:           raw.String(fieldPlateNum),
		CurrentDriverID:    raw.String(fieldCurrentDriverID),
		CurrentDriverName:  raw.String(fieldCurrentDriverName),
		CurrentTeamID:      raw.String(fieldCurrentTeamID),
		CurrentTeamName:    raw.String(fieldCurrentTeamName),
		CurrentTeamMembers: raw.Strings(fieldCurrentTeamMembers),
		AssignedAt:         raw.Time(fieldAssignedAt, time.UTC),
		CreatedAt:          raw.Time(fieldCreatedAt, time.UTC),
		Available:          true,
	}
	// Plates written before the flag existed are available.
	if available := raw.Bool(fieldAvailable); available != nil {
		plate.Available = *available
	}
	return plate
}
