package project

import "github.com/wallboard/wallboard_screen/internal/user"

type Project struct {
	ID             int64            `json:"id"`
	Token          string           `json:"token"`
	Name           string           `json:"name"`
	GridProperties GridProperties   `json:"gridProperties"`
	Widgets        []*ProjectWidget `json:"projectWidgets,omitempty"`
	Users          []user.User      `json:"users,omitempty"`
}

// GridProperties are kept as received; the server forms validate them.
type GridProperties struct {
	MaxColumn    int    `json:"maxColumn"`
	WidgetHeight int    `json:"widgetHeight"`
	CSSStyle     string `json:"cssStyle,omitempty"`
}

type WidgetState string

const (
	WidgetStateRunning WidgetState = "RUNNING"
	WidgetStateStopped WidgetState = "STOPPED"
	WidgetStateWarning WidgetState = "WARNING"
	WidgetStateError   WidgetState = "ERROR"
)

type ProjectWidget struct {
	ID                int64       `json:"id"`
	WidgetID          int64       `json:"widgetId"`
	ProjectToken      string      `json:"projectToken,omitempty"`
	BackendConfig     string      `json:"backendConfig,omitempty"`
	InstantiateHTML   string      `json:"instantiateHtml,omitempty"`
	CustomStyle       string      `json:"customStyle,omitempty"`
	State             WidgetState `json:"state,omitempty"`
	Log               string      `json:"log,omitempty"`
	LastExecutionDate string      `json:"lastExecutionDate,omitempty"`
	LastSuccessDate   string      `json:"lastSuccessDate,omitempty"`
	Row               int         `json:"row"`
	Col               int         `json:"col"`
	Width             int         `json:"width"`
	Height            int         `json:"height"`
}

// Widget returns the widget with the given id, or nil.
func (p *Project) Widget(id int64) *ProjectWidget {
	for _, w := range p.Widgets {
		if w != nil && w.ID == id {
			return w
		}
	}
	return nil
}

// HasMember reports whether username is one of the project's authorized users.
func (p *Project) HasMember(username string) bool {
	for _, u := range p.Users {
		if u.Username == username {
			return true
		}
	}
	return false
}

// MemberOf returns a membership predicate for u. A nil user is never a member.
func MemberOf(u *user.User) func(*Project) bool {
	return func(p *Project) bool {
		if u == nil || p == nil {
			return false
		}
		return p.HasMember(u.Username)
	}
}

// Config returns the parsed backend configuration of the widget.
func (w *ProjectWidget) Config() *BackendConfig {
	return ParseBackendConfig(w.BackendConfig)
}
