package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

const (
	principalKey = "auth_principal"

	// CronSecretHeader carries the shared secret of the external scheduler.
	CronSecretHeader = "X-Cron-Secret"
	cronSubject      = "cron"
)

// Principal represents the authenticated caller.
type Principal struct {
	SubjectID string
	Role      domain.Role
}

// AuthMiddleware validates bearer tokens and the scheduler secret.
type AuthMiddleware struct {
	tokens     *TokenManager
	cronSecret string
}

// NewAuthMiddleware constructs middleware. cronSecret is a bcrypt hash; an empty value disables
// secret-based access.
func NewAuthMiddleware(tokens *TokenManager, cronSecret string) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, cronSecret: cronSecret}
}

// Handle enforces bearer authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	principal, err := m.bearerPrincipal(c)
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// Trigger admits the scheduler by shared secret, or a bearer token with an admin or scheduler role.
func (m *AuthMiddleware) Trigger(c *fiber.Ctx) error {
	if presented := c.Get(CronSecretHeader); presented != "" {
		if !secretMatches(m.cronSecret, presented) {
			return apperrors.NewUnauthorized("invalid cron secret")
		}
		c.Locals(principalKey, &Principal{SubjectID: cronSubject, Role: domain.RoleScheduler})
		return c.Next()
	}

	principal, err := m.bearerPrincipal(c)
	if err != nil {
		return err
	}
	if principal.Role != domain.RoleAdmin && principal.Role != domain.RoleScheduler {
		return apperrors.NewForbidden("insufficient role")
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

func (m *AuthMiddleware) bearerPrincipal(c *fiber.Ctx) (*Principal, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return nil, apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	return &Principal{SubjectID: claims.SubjectID, Role: claims.Role}, nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
