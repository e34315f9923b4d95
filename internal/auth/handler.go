package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wabridge/wabridge/internal/account"
)

// Handler exposes the login endpoint.
type Handler struct {
	accounts *account.Service
	issuer   *Issuer
}

// NewHandler constructs an auth HTTP handler.
func NewHandler(accounts *account.Service, issuer *Issuer) *Handler {
	return &Handler{accounts: accounts, issuer: issuer}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccountID   string `json:"account_id"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login verifies credentials and issues an access token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	acc, err := h.accounts.Authenticate(c.UserContext(), account.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		if errors.Is(err, account.ErrUnauthenticated) {
			return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
		}
		return fiber.NewError(http.StatusInternalServerError, "credential check failed")
	}

	token, exp, err := h.issuer.Issue(acc.ID, acc.Email)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "token signing failed")
	}

	return c.Status(http.StatusOK).JSON(loginResponse{
		AccountID:   acc.ID,
		AccessToken: token,
		ExpiresIn:   int64(time.Until(exp).Seconds()),
	})
}
