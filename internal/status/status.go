package status

import (
	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
	"github.com/wallboard/wallboard_screen/internal/project"
	"github.com/wallboard/wallboard_screen/internal/screen"
	"github.com/wallboard/wallboard_screen/internal/stream"
	"github.com/wallboard/wallboard_screen/internal/websocket"
)

// Screen is the part of the flow the status page reads.
type Screen interface {
	Code() screen.Code
	State() screen.State
	Route() screen.Route
}

type StatusEndpoints struct {
	version    string
	screen     Screen
	store      *project.Store
	connection *stream.Value[websocket.ConnectionState]
}

func NewEndpoints(version string, s Screen, store *project.Store, connection *stream.Value[websocket.ConnectionState]) *StatusEndpoints {
	return &StatusEndpoints{
		version:    version,
		screen:     s,
		store:      store,
		connection: connection,
	}
}

type StatusResponse struct {
	Version         string                    `json:"version"`
	ScreenCode      string                    `json:"screenCode"`
	FlowState       screen.State              `json:"flowState"`
	ConnectionState websocket.ConnectionState `json:"connectionState"`
	Route           string                    `json:"route"`
	Project         *ProjectStatus            `json:"project,omitempty"`
	OwnedProjects   int                       `json:"ownedProjects"`
}

type ProjectStatus struct {
	Token   string                      `json:"token"`
	Name    string                      `json:"name"`
	Widgets int                         `json:"widgets"`
	States  map[project.WidgetState]int `json:"states,omitempty"`
}

func (se *StatusEndpoints) Status(ctx *fasthttp.RequestCtx) {
	response := StatusResponse{
		Version:         se.version,
		ScreenCode:      se.screen.Code().String(),
		FlowState:       se.screen.State(),
		ConnectionState: se.connection.Get(),
		Route:           se.screen.Route().String(),
		OwnedProjects:   len(se.store.OwnedProjects()),
	}
	se.store.InspectCurrentProject(func(p *project.Project) {
		response.Project = projectStatus(p)
	})

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)

	responseJSON, err := json.Marshal(response)
	if err != nil {
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetBody(responseJSON)
}

func projectStatus(p *project.Project) *ProjectStatus {
	if p == nil {
		return nil
	}
	status := &ProjectStatus{
		Token:   p.Token,
		Name:    p.Name,
		Widgets: len(p.Widgets),
	}
	for _, w := range p.Widgets {
		if w == nil || w.State == "" {
			continue
		}
		if status.States == nil {
			status.States = make(map[project.WidgetState]int)
		}
		status.States[w.State]++
	}
	return status
}
