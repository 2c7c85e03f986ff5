package domain

import "time"

// UserRole enumerates account roles.
type UserRole string

const (
	UserRoleUser      UserRole = "USER"
	UserRoleModerator UserRole = "MODERATOR"
	UserRoleAdmin     UserRole = "ADMIN"
)

// ParseRole validates a role string.
func ParseRole(raw string) (UserRole, bool) {
	switch UserRole(raw) {
	case UserRoleUser:
		return UserRoleUser, true
	case UserRoleModerator:
		return UserRoleModerator, true
	case UserRoleAdmin:
		return UserRoleAdmin, true
	}
	return "", false
}

// User is the domain model for accounts. Skills are maintained by admins and
// consumed by the assignment matcher.
type User struct {
	ID        string
	Email     string
	Role      UserRole
	Skills    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EligibleAssignee reports whether the user may receive ticket assignments.
func (u *User) EligibleAssignee() bool {
	return u.Role == UserRoleModerator || u.Role == UserRoleAdmin
}
