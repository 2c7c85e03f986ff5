package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opsdeck/ticket-triage/internal/api/dto"
	"github.com/opsdeck/ticket-triage/internal/identity"
	"github.com/opsdeck/ticket-triage/internal/service"
	apperrors "github.com/opsdeck/ticket-triage/pkg/util"
)

// UsersHandler manages admin endpoints for the staff directory.
type UsersHandler struct {
	service *service.StaffService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(staffService *service.StaffService) *UsersHandler {
	return &UsersHandler{service: staffService}
}

// ListUsers GET /api/users.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	user, ok := identity.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	limit, offset := parsePaging(c)
	users, err := h.service.ListUsers(c.UserContext(), user, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateUser PUT /api/users/:id.
func (h *UsersHandler) UpdateUser(c *fiber.Ctx) error {
	user, ok := identity.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.service.UpdateUserRoleAndSkills(c.UserContext(), user, c.Params("id"), req.Role, req.Skills)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(updated)})
}
