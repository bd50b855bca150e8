package middleware

import (
	"regexp"

	"github.com/valyala/fasthttp"
)

var localhostOrigin = regexp.MustCompile(`^https?://localhost(:\d+)?$`)

// CORSMiddleware lets admin pages in a browser poll the read-only status
// surface. Only GET is ever allowed and no credentials are accepted.
type CORSMiddleware struct {
	allowedOrigins []string
}

// NewCORSMiddleware allows the given origins, plus any localhost origin when
// the list is empty.
func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	return &CORSMiddleware{
		allowedOrigins: allowedOrigins,
	}
}

func (cm *CORSMiddleware) Handle(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		origin := string(ctx.Request.Header.Peek("Origin"))

		if origin != "" && cm.isOriginAllowed(origin) {
			ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
			ctx.Response.Header.Set("Vary", "Origin")
			ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			ctx.Response.Header.Set("Access-Control-Max-Age", "86400")
		}

		if ctx.IsOptions() {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		next(ctx)
	}
}

func (cm *CORSMiddleware) isOriginAllowed(origin string) bool {
	if len(cm.allowedOrigins) == 0 {
		return localhostOrigin.MatchString(origin)
	}
	for _, allowed := range cm.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
		if allowed == "http://localhost:*" && localhostOrigin.MatchString(origin) {
			return true
		}
	}
	return false
}
