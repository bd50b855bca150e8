package project

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"github.com/wallboard/wallboard_screen/internal/user"
)

const (
	headerAuthorization = "Authorization"
	defaultTimeout      = 10 * time.Second
)

type RESTRepository struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
	token   string
}

func NewRESTRepository(config Config, token string) *RESTRepository {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &RESTRepository{
		client: &fasthttp.Client{
			Name:         "wallboard-screen",
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		timeout: timeout,
		token:   token,
	}
}

func (r *RESTRepository) GetOneByToken(ctx context.Context, token string) (*Project, error) {
	var p Project
	if err := r.get(ctx, "/api/v1/projects/"+url.PathEscape(token), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *RESTRepository) GetProjectWidgets(ctx context.Context, token string) ([]*ProjectWidget, error) {
	var widgets []*ProjectWidget
	if err := r.get(ctx, "/api/v1/projects/"+url.PathEscape(token)+"/projectWidgets", &widgets); err != nil {
		return nil, err
	}
	return widgets, nil
}

func (r *RESTRepository) GetAllForCurrentUser(ctx context.Context) ([]*Project, error) {
	var projects []*Project
	if err := r.get(ctx, "/api/v1/projects/currentUser", &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *RESTRepository) get(ctx context.Context, path string, target interface{}) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if auth := user.AuthorizationHeader(r.token); auth != "" {
		req.Header.Set(headerAuthorization, auth)
	}

	deadline := time.Now().Add(r.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFetch, path, err)
	}

	if err := r.client.DoDeadline(req, resp, deadline); err != nil {
		log.Error().Err(err).Str("path", path).Msg("[API] Request failed")
		return fmt.Errorf("%w: %s: %w", ErrFetch, path, err)
	}

	switch status := resp.StatusCode(); {
	case status == fasthttp.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case status < 200 || status >= 300:
		log.Error().Int("status", status).Str("path", path).Msg("[API] Unexpected status")
		return fmt.Errorf("%w: %s: unexpected status %d", ErrFetch, path, status)
	}

	if err := json.Unmarshal(resp.Body(), target); err != nil {
		return fmt.Errorf("%w: %s: invalid body: %w", ErrFetch, path, err)
	}

	log.Debug().Str("path", path).Int("bytes", len(resp.Body())).Msg("[API] Fetched")
	return nil
}
