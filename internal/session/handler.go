package session

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/wabridge/wabridge/internal/waclient"
)

// Handler exposes the session endpoints the frontend polls.
type Handler struct {
	registry *Registry
}

// NewHandler constructs a session HTTP handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

type profilePayload struct {
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
	Platform    string `json:"platform"`
}

type statusResponse struct {
	State   string          `json:"state"`
	Profile *profilePayload `json:"profile,omitempty"`
	QR      string          `json:"qr,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// identity pins the :id path parameter to the authenticated account; the
// registry is only ever invoked for identities validated upstream.
func (h *Handler) identity(c *fiber.Ctx) (string, error) {
	id := strings.TrimSpace(c.Params("id"))
	sub, _ := c.Locals("account_id").(string)
	if id == "" {
		return "", fiber.NewError(http.StatusBadRequest, "session id is required")
	}
	if sub == "" || id != sub {
		return "", fiber.NewError(http.StatusForbidden, "session does not belong to the authenticated account")
	}
	return id, nil
}

// Pair requests a pairing code, creating the session on first use.
func (h *Handler) Pair(c *fiber.Ctx) error {
	id, err := h.identity(c)
	if err != nil {
		return err
	}

	st, err := h.registry.RequestPairing(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, ErrClientUnavailable) {
			return fiber.NewError(http.StatusServiceUnavailable, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	resp := buildStatus(st)
	if png, err := h.registry.InlineImage(id); err == nil {
		resp.QR = base64.StdEncoding.EncodeToString(png)
	}
	return c.Status(http.StatusOK).JSON(resp)
}

// Status reports the session's current state without blocking. An identity
// that never requested pairing (or was destroyed) reads as uninitialized.
func (h *Handler) Status(c *fiber.Ctx) error {
	id, err := h.identity(c)
	if err != nil {
		return err
	}

	st, err := h.registry.Status(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.Status(http.StatusOK).JSON(statusResponse{State: string(StateUninitialized)})
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(buildStatus(st))
}

// Image serves the raw pairing PNG.
func (h *Handler) Image(c *fiber.Ctx) error {
	id, err := h.identity(c)
	if err != nil {
		return err
	}

	png, err := h.registry.InlineImage(id)
	if err == nil {
		c.Set(fiber.HeaderContentType, "image/png")
		return c.Status(http.StatusOK).Send(png)
	}
	if path, perr := h.registry.ImagePath(id); perr == nil {
		return c.SendFile(path)
	}
	return fiber.NewError(http.StatusNotFound, "no pairing image available")
}

type sendRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// Send dispatches a message through a ready session.
func (h *Handler) Send(c *fiber.Ctx) error {
	id, err := h.identity(c)
	if err != nil {
		return err
	}

	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.To) == "" || req.Body == "" {
		return fiber.NewError(http.StatusBadRequest, "to and body are required")
	}

	if err := h.registry.Send(c.UserContext(), id, req.To, req.Body); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "no session for account")
		case errors.Is(err, ErrSendFailed):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "sent"})
}

// Disconnect destroys the session. Storage cleanup trouble is reported as a
// warning on an otherwise successful ack.
func (h *Handler) Disconnect(c *fiber.Ctx) error {
	id, err := h.identity(c)
	if err != nil {
		return err
	}

	err = h.registry.Destroy(c.UserContext(), id)
	if err != nil && !errors.Is(err, ErrResourceCleanup) {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	resp := fiber.Map{"status": "disconnected"}
	if err != nil {
		resp["warning"] = err.Error()
	}
	return c.Status(http.StatusOK).JSON(resp)
}

func buildStatus(st Status) statusResponse {
	resp := statusResponse{State: string(st.State), Error: st.PairError}
	if st.HasProfile {
		p := waclientProfile(st.Profile)
		resp.Profile = &p
	}
	return resp
}

func waclientProfile(p waclient.Profile) profilePayload {
	return profilePayload{DisplayName: p.DisplayName, Phone: p.Phone, Platform: p.Platform}
}
