package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wabridge/wabridge/internal/account"
	"github.com/wabridge/wabridge/internal/auth"
	"github.com/wabridge/wabridge/internal/config"
	"github.com/wabridge/wabridge/internal/middleware"
	"github.com/wabridge/wabridge/internal/session"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Registry *session.Registry
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Account backend: Postgres when configured, JSON file otherwise.
	var accountRepo account.Repository
	if d.DB != nil {
		accountRepo = account.NewPostgresRepository(d.DB)
	} else {
		repo, err := account.NewFileRepository(d.Cfg.AccountFile())
		if err != nil {
			return err
		}
		accountRepo = repo
	}
	accountSvc := account.NewService(accountRepo)
	accountHandler := account.NewHandler(accountSvc)

	issuer := auth.NewIssuer(d.Cfg.JWTSecret, d.Cfg.AccessTokenTTL)
	authHandler := auth.NewHandler(accountSvc, issuer)
	sessionHandler := session.NewHandler(d.Registry)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterAccountRoutes(api, accountHandler, authHandler, middleware.LoginRateLimit(d.Cache, 5))

	// Protected routes
	protected := api.Group("", middleware.BearerAuth(issuer, accountRepo))
	RegisterSessionRoutes(protected, sessionHandler)

	return nil
}
