package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/opsdeck/ticket-triage/internal/domain"
	"github.com/opsdeck/ticket-triage/internal/repository"
	apperrors "github.com/opsdeck/ticket-triage/pkg/util"
)

// StaffService covers the admin dashboard operations on the staff directory:
// listing accounts and editing roles and skill sets.
type StaffService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

// NewStaffService constructs the service.
func NewStaffService(users repository.UserRepository, logger *zap.Logger) *StaffService {
	return &StaffService{users: users, logger: logger}
}

// ListUsers returns all accounts. Admin only.
func (s *StaffService) ListUsers(ctx context.Context, actor *domain.User, limit, offset int) ([]domain.User, error) {
	if actor == nil || actor.Role != domain.UserRoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	users, err := s.users.List(ctx, repository.UserFilter{Limit: limit, Offset: offset})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// UpdateUserRoleAndSkills edits a user's role and skill tags. Admin only.
// Skills are normalized before persisting so the matcher compares clean tags.
func (s *StaffService) UpdateUserRoleAndSkills(ctx context.Context, actor *domain.User, targetID, role string, skills []string) (*domain.User, error) {
	if actor == nil || actor.Role != domain.UserRoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	parsedRole, ok := domain.ParseRole(role)
	if !ok {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}

	updated, err := s.users.UpdateRoleAndSkills(ctx, targetID, parsedRole, domain.NormalizeSkills(skills))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": targetID})
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("user updated",
		zap.String("actor_id", actor.ID),
		zap.String("user_id", updated.ID),
		zap.String("role", string(updated.Role)),
		zap.Strings("skills", updated.Skills))
	return updated, nil
}
