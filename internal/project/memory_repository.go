package project

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepository serves projects from memory. Returned values are copies so
// callers can mutate them freely.
type MemoryRepository struct {
	mu       sync.RWMutex
	projects map[string]*Project
	owned    []string
	err      error
	calls    map[string]int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		projects: make(map[string]*Project),
		calls:    make(map[string]int),
	}
}

func (r *MemoryRepository) CreateProject(p *Project, ownedByCurrentUser bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.Token] = p
	if ownedByCurrentUser {
		r.owned = append(r.owned, p.Token)
	}
}

func (r *MemoryRepository) DeleteProject(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.projects, token)
}

// FailWith makes every following call return err until cleared with nil.
func (r *MemoryRepository) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *MemoryRepository) Calls(method string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.calls[method]
}

func (r *MemoryRepository) GetOneByToken(_ context.Context, token string) (*Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["GetOneByToken"]++
	if r.err != nil {
		return nil, r.err
	}

	p, exists := r.projects[token]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, token)
	}

	result := *p
	result.Widgets = nil
	return &result, nil
}

func (r *MemoryRepository) GetProjectWidgets(_ context.Context, token string) ([]*ProjectWidget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["GetProjectWidgets"]++
	if r.err != nil {
		return nil, r.err
	}

	p, exists := r.projects[token]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, token)
	}

	widgets := make([]*ProjectWidget, len(p.Widgets))
	for i, w := range p.Widgets {
		copied := *w
		widgets[i] = &copied
	}
	sort.Slice(widgets, func(i, j int) bool {
		if widgets[i].Row != widgets[j].Row {
			return widgets[i].Row < widgets[j].Row
		}
		return widgets[i].Col < widgets[j].Col
	})
	return widgets, nil
}

func (r *MemoryRepository) GetAllForCurrentUser(_ context.Context) ([]*Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["GetAllForCurrentUser"]++
	if r.err != nil {
		return nil, r.err
	}

	var result []*Project
	for _, token := range r.owned {
		p, exists := r.projects[token]
		if !exists {
			continue
		}
		copied := *p
		copied.Widgets = nil
		result = append(result, &copied)
	}
	return result, nil
}
