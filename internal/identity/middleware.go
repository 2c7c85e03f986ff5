package identity

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/opsdeck/ticket-triage/internal/domain"
	"github.com/opsdeck/ticket-triage/internal/repository"
	apperrors "github.com/opsdeck/ticket-triage/pkg/util"
)

const principalKey = "principal"

// IdentityMiddleware resolves the calling user from the gateway-injected
// X-User-ID header, falling back to X-User-Email for gateways that only
// forward the authenticated address. Authentication itself happens upstream;
// this service only loads the account and enforces roles.
type IdentityMiddleware struct {
	users repository.UserRepository
}

// NewIdentityMiddleware constructs middleware.
func NewIdentityMiddleware(users repository.UserRepository) *IdentityMiddleware {
	return &IdentityMiddleware{users: users}
}

// Handle loads the principal for protected routes.
func (m *IdentityMiddleware) Handle(c *fiber.Ctx) error {
	var (
		user *domain.User
		err  error
	)
	switch {
	case strings.TrimSpace(c.Get("X-User-ID")) != "":
		user, err = m.users.GetByID(c.UserContext(), strings.TrimSpace(c.Get("X-User-ID")))
	case strings.TrimSpace(c.Get("X-User-Email")) != "":
		user, err = m.users.GetByEmail(c.UserContext(), strings.TrimSpace(c.Get("X-User-Email")))
	default:
		return apperrors.NewUnauthorized("missing X-User-ID header")
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("unknown user")
		}
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, user)
	return c.Next()
}

// UserFromContext retrieves the authenticated user.
func UserFromContext(c *fiber.Ctx) (*domain.User, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok
}

// RequireRole guards a route group to the given roles.
func RequireRole(roles ...domain.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("user required")
		}
		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("insufficient role")
	}
}
