package entity

import (
	"time"

	"github.com/jetprint/print-workflow/internal/domain/stage"
)

// User roles
const (
	RoleAdmin = "ADMIN"
	RoleStaff = "STAFF"
)

// User represents a staff member or administrator
type User struct {
	ID           string        `json:"id"`
	Phone        string        `json:"phone"`
	Role         string        `json:"role"`
	PasswordHash string        `json:"-"`
	Stages       []stage.Stage `json:"stages"`
	CreatedAt    time.Time     `json:"created_at"`
}

// IsAdmin returns true if the user has the administrator role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// AssignedTo reports whether the user is assigned to the given stage
func (u *User) AssignedTo(s stage.Stage) bool {
	for _, assigned := range u.Stages {
		if assigned == s {
			return true
		}
	}
	return false
}

// StageUsers pairs a stage with the users assigned to it
type StageUsers struct {
	Stage stage.Stage `json:"stage"`
	Users []*User     `json:"users"`
}
