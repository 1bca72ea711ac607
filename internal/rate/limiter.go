package rate

import (
	"context"
	"fmt"

	xrate "golang.org/x/time/rate"
)

// Limiter gates outbound API calls so we stay inside per-API quotas.
type Limiter interface {
	Wait(ctx context.Context) error
}

// API names a Google API with its own quota bucket.
type API string

const (
	Gmail    API = "gmail"
	Calendar API = "calendar"
	Tasks    API = "tasks"
	Drive    API = "drive"
)

// Quota is a steady request rate plus the burst allowed on top of it.
type Quota struct {
	RPS   float64
	Burst int
}

// Defaults sit well under the published per-user quotas.
var Defaults = map[API]Quota{
	Gmail:    {RPS: 2, Burst: 5},
	Calendar: {RPS: 5, Burst: 10},
	Tasks:    {RPS: 5, Burst: 10},
	Drive:    {RPS: 8, Burst: 10},
}

// TokenBucket is a Limiter backed by x/time/rate.
type TokenBucket struct {
	api API
	lim *xrate.Limiter
}

// NewTokenBucket returns a limiter releasing rps tokens per second with the
// given burst. Non-positive values are clamped to 1.
func NewTokenBucket(api API, rps float64, burst int) *TokenBucket {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{api: api, lim: xrate.NewLimiter(xrate.Limit(rps), burst)}
}

// ForAPI returns a limiter using the default quota for api. A positive
// override replaces the default rate but keeps the default burst.
func ForAPI(api API, override float64) *TokenBucket {
	q, ok := Defaults[api]
	if !ok {
		q = Quota{RPS: 1, Burst: 1}
	}
	if override > 0 {
		q.RPS = override
	}
	return NewTokenBucket(api, q.RPS, q.Burst)
}

// Wait blocks until a token is available or the context is canceled.
func (t *TokenBucket) Wait(ctx context.Context) error {
	if err := t.lim.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate wait: %w", t.api, err)
	}
	return nil
}

// Unlimited never blocks. It is what services fall back to when constructed
// without a limiter.
type Unlimited struct{}

func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }

var (
	_ Limiter = (*TokenBucket)(nil)
	_ Limiter = Unlimited{}
)
