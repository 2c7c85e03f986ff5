package dto

import (
	"time"

	"github.com/opsdeck/ticket-triage/internal/domain"
)

// UserResponse represents an account in admin listings.
type UserResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Role      domain.UserRole `json:"role"`
	Skills    []string        `json:"skills"`
	CreatedAt time.Time       `json:"created_at"`
}

// UpdateUserRequest edits role and skill tags.
type UpdateUserRequest struct {
	Role   string   `json:"role"`
	Skills []string `json:"skills"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		Skills:    user.Skills,
		CreatedAt: user.CreatedAt,
	}
}
