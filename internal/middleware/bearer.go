package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/wabridge/wabridge/internal/account"
	"github.com/wabridge/wabridge/internal/auth"
)

// AccountIDKey is the locals key under which the authenticated account
// identity is stored for downstream handlers.
const AccountIDKey = "account_id"

// BearerAuth validates the access token and confirms the account still
// exists before any session operation runs. Unknown accounts never reach the
// registry.
func BearerAuth(issuer *auth.Issuer, repo account.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])

		accountID, err := issuer.Verify(tokenStr)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		if _, err := repo.FindByID(c.UserContext(), accountID); err != nil {
			return fiber.NewError(http.StatusUnauthorized, "unknown account")
		}

		c.Locals(AccountIDKey, accountID)
		return c.Next()
	}
}
