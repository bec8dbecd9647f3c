package model

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the user's role within their company.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts a case-insensitive role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q (want employee, manager or admin)", s)
	}
	return r, nil
}

// User is the backend's user record. The client only ever holds a cached,
// read-only copy.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	CompanyID *int64    `json:"company_id,omitempty"`
	ManagerID *int64    `json:"manager_id,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
}

// Validate reports the first missing or malformed field.
func (u *User) Validate() error {
	switch {
	case u == nil:
		return errors.New("user is missing")
	case u.ID == 0:
		return errors.New("user id is missing")
	case u.Email == "":
		return errors.New("user email is missing")
	case !u.Role.Valid():
		return fmt.Errorf("user role %q is not recognized", u.Role)
	}
	return nil
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NewUser is the body of POST /users/.
type NewUser struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FullName  string `json:"full_name"`
	Role      Role   `json:"role"`
	ManagerID *int64 `json:"manager_id,omitempty"`
}

// Validate checks the fields the backend requires.
func (n NewUser) Validate() error {
	switch {
	case n.Email == "":
		return errors.New("email is required")
	case n.Password == "":
		return errors.New("password is required")
	case n.FullName == "":
		return errors.New("full name is required")
	case n.Role != "" && !n.Role.Valid():
		return fmt.Errorf("unknown role %q", n.Role)
	}
	return nil
}
