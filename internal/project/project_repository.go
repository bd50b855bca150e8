package project

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("project not found")
	ErrFetch    = errors.New("project fetch failed")
)

// Repository is the REST collaborator the screen reads dashboards from.
type Repository interface {
	GetOneByToken(ctx context.Context, token string) (*Project, error)
	GetProjectWidgets(ctx context.Context, token string) ([]*ProjectWidget, error)
	GetAllForCurrentUser(ctx context.Context) ([]*Project, error)
}

type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}
