package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wabridge/wabridge/internal/account"
	"github.com/wabridge/wabridge/internal/auth"
)

// RegisterAccountRoutes wires registration and login endpoints.
func RegisterAccountRoutes(r fiber.Router, accounts *account.Handler, authn *auth.Handler, rateLimiter fiber.Handler) {
	r.Post("/accounts", accounts.Register)
	if rateLimiter != nil {
		r.Post("/auth/login", rateLimiter, authn.Login)
	} else {
		r.Post("/auth/login", authn.Login)
	}
}
