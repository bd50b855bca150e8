package internal

import (
	"github.com/valyala/fasthttp"
	"github.com/wallboard/wallboard_screen/internal/health"
	"github.com/wallboard/wallboard_screen/internal/middleware"
	"github.com/wallboard/wallboard_screen/internal/status"
)

// NewRequestHandler serves the read-only status surface of the screen.
func NewRequestHandler(config StatusConfig, healthEndpoints *health.HealthEndpoints, statusEndpoints *status.StatusEndpoints) fasthttp.RequestHandler {
	corsMiddleware := middleware.NewCORSMiddleware(config.AllowedOrigins)

	handler := func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())

		if !ctx.IsGet() && !ctx.IsHead() {
			ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			return
		}

		switch path {
		case "/health":
			healthEndpoints.Health(ctx)
		case "/status":
			statusEndpoints.Status(ctx)
		default:
			ctx.Error("Not Found", fasthttp.StatusNotFound)
		}
	}

	return corsMiddleware.Handle(handler)
}
