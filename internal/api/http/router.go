package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-gateway/internal/api/http/handlers"
	"github.com/spec-kit/auth-gateway/internal/authfilter"
	"github.com/spec-kit/auth-gateway/internal/config"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Auth       *handlers.AuthHandler
	AuthFilter *authfilter.Middleware
	Proxy      config.ProxyConfig
}

// RegisterRoutes wires HTTP routes. Everything except the health probes
// passes through the auth filter; the filter's own exclusion list decides
// which paths skip validation.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth", cfg.AuthFilter.Handle)
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)

	api := app.Group("/api", cfg.AuthFilter.Handle)
	api.All("/users/*", NewUpstreamHandler(cfg.Proxy.UserServiceURL))
	api.All("/*", NewUpstreamHandler(cfg.Proxy.BackendServiceURL))
}
