package project

import (
	"github.com/rs/zerolog/log"
	"github.com/wallboard/wallboard_screen/internal/stream"
	"github.com/wallboard/wallboard_screen/internal/user"
)

// Store is the in-memory view of the displayed project and of the projects the
// connected user owns. Mutations are synchronous: watchers have been notified
// by the time a mutation returns.
type Store struct {
	current *stream.Value[*Project]
	owned   *stream.Value[[]*Project]
}

func NewStore() *Store {
	return &Store{
		current: stream.NewValue[*Project](nil),
		owned:   stream.NewValue[[]*Project](nil),
	}
}

// CurrentProject returns the displayed project, or nil when none is set.
func (s *Store) CurrentProject() *Project {
	return s.current.Get()
}

// InspectCurrentProject runs fn with the displayed project while no update can
// be applied to it. fn must not keep p or its widgets.
func (s *Store) InspectCurrentProject(fn func(p *Project)) {
	s.current.Inspect(fn)
}

func (s *Store) SetCurrentProject(p *Project) {
	s.current.Set(p)
}

func (s *Store) ClearCurrentProject() {
	s.current.Set(nil)
}

func (s *Store) WatchCurrentProject(fn func(*Project)) func() {
	return s.current.Watch(fn)
}

func (s *Store) OwnedProjects() []*Project {
	return s.owned.Get()
}

func (s *Store) SetOwnedProjects(projects []*Project) {
	s.owned.Set(projects)
}

func (s *Store) WatchOwnedProjects(fn func([]*Project)) func() {
	return s.owned.Watch(fn)
}

// ApplyWidgetUpdate swaps the rendered HTML and state of one widget of the
// current project in place. An unknown widget id is ignored: the update may
// predate a deletion and the next full fetch is authoritative.
func (s *Store) ApplyWidgetUpdate(projectWidgetID int64, html string, state WidgetState) bool {
	found := false
	s.current.Update(func(p *Project) *Project {
		if p == nil {
			return p
		}
		w := p.Widget(projectWidgetID)
		if w == nil {
			return p
		}
		w.InstantiateHTML = html
		w.State = state
		found = true
		return p
	})

	if !found {
		log.Debug().Int64("projectWidgetId", projectWidgetID).Msg("[STORE] Widget update for unknown widget ignored")
	}
	return found
}

// ApplyProjectReplace takes a whole new project snapshot. Position and grid
// changes touch several widgets at once so they are never patched piecemeal.
func (s *Store) ApplyProjectReplace(p *Project) {
	s.current.Set(p)
}

// UpsertOwnedProject drops any entry with the same id and re-adds a copy of p
// only when isMember(p) holds. A nil predicate accepts every project. The copy
// keeps widget patches on the current project out of the owned list.
func (s *Store) UpsertOwnedProject(p *Project, isMember func(*Project) bool) {
	if p == nil {
		return
	}
	s.owned.Update(func(projects []*Project) []*Project {
		result := make([]*Project, 0, len(projects)+1)
		for _, existing := range projects {
			if existing.ID != p.ID {
				result = append(result, existing)
			}
		}
		if isMember == nil || isMember(p) {
			result = append(result, ownedCopy(p))
		}
		return result
	})
}

func (s *Store) RemoveOwnedProject(projectID int64) {
	s.owned.Update(func(projects []*Project) []*Project {
		result := make([]*Project, 0, len(projects))
		for _, existing := range projects {
			if existing.ID != projectID {
				result = append(result, existing)
			}
		}
		return result
	})
}

func ownedCopy(p *Project) *Project {
	copied := *p
	if p.Widgets != nil {
		copied.Widgets = make([]*ProjectWidget, len(p.Widgets))
		for i, w := range p.Widgets {
			if w == nil {
				continue
			}
			widget := *w
			copied.Widgets[i] = &widget
		}
	}
	copied.Users = append([]user.User(nil), p.Users...)
	return &copied
}
