package client

import (
	"context"
	"errors"
	"time"

	"log/slog"
)

// ErrPollTimeout is returned when a deployment is still running after the
// poller's attempt budget is spent. The deployment itself keeps running.
var ErrPollTimeout = errors.New("deployment still in progress after polling attempts exhausted")

const (
	defaultGraceDelay  = 5 * time.Second
	defaultInterval    = 3 * time.Second
	defaultMaxAttempts = 20
)

// Poller watches a background deployment until it reaches a terminal state.
// Polls are sequential: each waits for the previous response before the next
// delay starts, so slow responses stretch the schedule rather than stack
// requests.
type Poller struct {
	Client *Client
	Logger *slog.Logger

	// GraceDelay is how long to wait before the first status request,
	// giving the build a head start.
	GraceDelay time.Duration
	// Interval is the fixed delay between consecutive polls.
	Interval time.Duration
	// MaxAttempts bounds how many status requests are made.
	MaxAttempts int
}

// NewPoller returns a Poller with the default schedule: a 5 second grace
// delay, then up to 20 polls 3 seconds apart.
func NewPoller(c *Client, logger *slog.Logger) *Poller {
	return &Poller{
		Client:      c,
		Logger:      logger,
		GraceDelay:  defaultGraceDelay,
		Interval:    defaultInterval,
		MaxAttempts: defaultMaxAttempts,
	}
}

// Wait polls the deployment until it completes or fails, the attempt budget
// runs out, or ctx is cancelled. Transport errors on individual polls are
// logged and do not consume the deployment: polling continues with the next
// attempt. On exhaustion the last observed record is returned alongside
// ErrPollTimeout.
func (p *Poller) Wait(ctx context.Context, deploymentID string) (DeploymentRecord, error) {
	if p.Client == nil {
		return DeploymentRecord{}, errors.New("poller has no client")
	}
	grace := p.GraceDelay
	if grace < 0 {
		grace = 0
	}
	interval := p.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	if err := sleepCtx(ctx, grace); err != nil {
		return DeploymentRecord{}, err
	}

	var last DeploymentRecord
	for attempt := 1; attempt <= attempts; attempt++ {
		rec, err := p.Client.Status(ctx, deploymentID)
		switch {
		case err == nil:
			last = rec
			if rec.Terminal() {
				return rec, nil
			}
		case ctx.Err() != nil:
			return last, ctx.Err()
		default:
			p.logPollError(deploymentID, attempt, err)
		}

		if attempt == attempts {
			break
		}
		if err := sleepCtx(ctx, interval); err != nil {
			return last, err
		}
	}
	return last, ErrPollTimeout
}

func (p *Poller) logPollError(deploymentID string, attempt int, err error) {
	if p.Logger == nil {
		return
	}
	p.Logger.Warn("status poll failed",
		"deployment_id", deploymentID,
		"attempt", attempt,
		"error", err,
	)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
