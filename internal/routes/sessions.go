package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wabridge/wabridge/internal/session"
)

// RegisterSessionRoutes wires the per-account session endpoints.
func RegisterSessionRoutes(r fiber.Router, h *session.Handler) {
	r.Post("/sessions/:id/pair", h.Pair)
	r.Get("/sessions/:id/status", h.Status)
	r.Get("/sessions/:id/qr.png", h.Image)
	r.Post("/sessions/:id/messages", h.Send)
	r.Delete("/sessions/:id", h.Disconnect)
}
