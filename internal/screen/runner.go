package screen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wallboard/wallboard_screen/internal/project"
)

const defaultRetryDelay = 5 * time.Second

var ErrInvalidCode = errors.New("invalid screen code")

type Config struct {
	Code       int           `mapstructure:"code"`
	Token      string        `mapstructure:"token"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// ResolveCode returns the configured code, or a generated one when none is
// configured.
func ResolveCode(configured int) (Code, error) {
	if configured == 0 {
		return GenerateScreenCode(), nil
	}
	code := Code(configured)
	if !code.Valid() {
		return 0, fmt.Errorf("%w: %d is outside [%d, %d]", ErrInvalidCode, configured, MinCode, MaxCode)
	}
	return code, nil
}

// Runner navigates the flow from route to route until its context ends.
type Runner struct {
	flow       *Flow
	initial    Route
	retryDelay time.Duration
}

func NewRunner(flow *Flow, initial Route, retryDelay time.Duration) *Runner {
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	return &Runner{
		flow:       flow,
		initial:    initial,
		retryDelay: retryDelay,
	}
}

// Run returns nil once ctx is canceled. A project that no longer exists sends
// the screen back to waiting; other fetch failures are retried after the retry
// delay.
func (r *Runner) Run(ctx context.Context) error {
	route := r.initial
	for {
		next, err := r.flow.Run(ctx, route)
		if ctx.Err() != nil {
			return nil
		}

		switch {
		case err == nil:
			route = next
			continue
		case errors.Is(err, ErrAlreadyRunning):
			return err
		case errors.Is(err, project.ErrNotFound):
			log.Warn().Str("route", route.String()).Msg("[SCREEN] Project is gone, back to waiting")
			route = Route{}
			continue
		}

		log.Warn().Err(err).Str("route", route.String()).Dur("retryIn", r.retryDelay).Msg("[SCREEN] Retrying")
		timer := time.NewTimer(r.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
