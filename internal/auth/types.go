package auth

import (
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is a crew position recognized across validation and authorization.
type Role string

const (
	RoleCaptain         Role = "captain"
	RoleFirstOfficer    Role = "first_officer"
	RoleFlightEngineer  Role = "flight_engineer"
	RoleFlightAttendant Role = "flight_attendant"
	RoleDispatcher      Role = "dispatcher"
	RoleMaintenance     Role = "maintenance"
	RoleAdmin           Role = "admin"
)

// Department groups crew members organizationally.
type Department string

const (
	DeptFlightOps      Department = "flight_operations"
	DeptCabinCrew      Department = "cabin_crew"
	DeptGroundOps      Department = "ground_operations"
	DeptMaintenance    Department = "maintenance"
	DeptSecurity       Department = "security"
	DeptAdministration Department = "administration"
)

var roles = map[Role]struct{}{
	RoleCaptain:         {},
	RoleFirstOfficer:    {},
	RoleFlightEngineer:  {},
	RoleFlightAttendant: {},
	RoleDispatcher:      {},
	RoleMaintenance:     {},
	RoleAdmin:           {},
}

var departments = map[Department]struct{}{
	DeptFlightOps:      {},
	DeptCabinCrew:      {},
	DeptGroundOps:      {},
	DeptMaintenance:    {},
	DeptSecurity:       {},
	DeptAdministration: {},
}

// ValidRole reports whether r is a recognized crew role.
func ValidRole(r Role) bool {
	_, ok := roles[Role(strings.ToLower(string(r)))]
	return ok
}

// ValidDepartment reports whether d is a recognized department.
func ValidDepartment(d Department) bool {
	_, ok := departments[Department(strings.ToLower(string(d)))]
	return ok
}

const (
	// MinClearance and MaxClearance bound the authorization tier.
	MinClearance = 1
	MaxClearance = 5
)

// employeeIDPattern: 2-3 letter airline prefix followed by 3-7 digits.
var employeeIDPattern = regexp.MustCompile(`^[A-Z]{2,3}[0-9]{3,7}$`)

// NormalizeEmployeeID upper-cases and trims an employee identifier.
func NormalizeEmployeeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// ValidEmployeeID reports whether id matches the crew badge format.
func ValidEmployeeID(id string) bool {
	return employeeIDPattern.MatchString(NormalizeEmployeeID(id))
}

// CrewMember is the identity record behind every credential check.
type CrewMember struct {
	EmployeeID     string
	Name           string
	Role           Role
	Department     Department
	Clearance      int
	Airline        string
	CredentialHash string
	IsActive       bool
	FailedAttempts int
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Locked reports whether the member is locked out at the given instant.
func (m *CrewMember) Locked(now time.Time) bool {
	return m.LockedUntil != nil && now.Before(*m.LockedUntil)
}

// Claims are the verified token claims carried through request contexts.
type Claims struct {
	Name       string     `json:"name,omitempty"`
	Role       Role       `json:"role,omitempty"`
	Department Department `json:"department,omitempty"`
	Clearance  int        `json:"clearance,omitempty"`
	Airline    string     `json:"airline,omitempty"`
	TokenType  string     `json:"token_type"`
	jwt.RegisteredClaims
}

// EmployeeID returns the subject claim under its canonical name.
func (c *Claims) EmployeeID() string { return c.Subject }

// TokenPair bundles the access and refresh tokens returned by authentication.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}
