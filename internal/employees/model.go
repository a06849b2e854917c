package employees

import (
	"time"

	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
	"github.com/qualitysquare/fieldops-backend/pkg/enums"
)

// Employee is a field staff record. The stored PIN is never decoded.
type Employee struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Email     string               `json:"email,omitempty"`
	Role      string               `json:"role,omitempty"`
	Status    enums.EmployeeStatus `json:"status"`
	CreatedAt *time.Time           `json:"created_at,omitempty"`
}

func decodeEmployee(raw docstore.Document) Employee {
	return Employee{
		ID:        raw.ID(),
		Name:      raw.String("name"),
		Email:     raw.String("email"),
		Role:      raw.String("role"),
		Status:    enums.ParseEmployeeStatus(raw.String("status")),
		CreatedAt: raw.Time("createdAt", time.UTC),
	}
}
