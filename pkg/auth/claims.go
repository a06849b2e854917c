package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/qualitysquare/fieldops-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	EmployeeID string
	Name       string
	Role       enums.Role
	JTI        string
}

// AccessTokenClaims represents the typed JWT presented by the mobile and
// admin clients.
type AccessTokenClaims struct {
	EmployeeID string     `json:"employee_id"`
	Name       string     `json:"name,omitempty"`
	Role       enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token grants admin access.
func (c *AccessTokenClaims) IsAdmin() bool {
	return c != nil && c.Role == enums.RoleAdmin
}
