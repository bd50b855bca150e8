package health

import (
	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
	"github.com/wallboard/wallboard_screen/internal/stream"
	"github.com/wallboard/wallboard_screen/internal/websocket"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

type HealthEndpoints struct {
	version    string
	connection *stream.Value[websocket.ConnectionState]
}

func NewEndpoints(version string, connection *stream.Value[websocket.ConnectionState]) *HealthEndpoints {
	return &HealthEndpoints{
		version:    version,
		connection: connection,
	}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health answers 200 while the process runs. The status turns degraded while
// the channel is waiting to reconnect.
func (h *HealthEndpoints) Health(ctx *fasthttp.RequestCtx) {
	response := HealthResponse{
		Status:  StatusOK,
		Version: h.version,
	}
	if h.connection != nil && h.connection.Get() == websocket.StateError {
		response.Status = StatusDegraded
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)

	responseJSON, err := json.Marshal(response)
	if err != nil {
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetBody(responseJSON)
}
