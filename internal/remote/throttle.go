package remote

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttled puts a token bucket and a per-call timeout in front of another
// store, so that flushing a long queue does not burst the backend
type Throttled struct {
	next    DocumentStore
	lim     *rate.Limiter
	timeout time.Duration
}

type ThrottleOption func(*Throttled)

func WithCallTimeout(d time.Duration) ThrottleOption {
	return func(t *Throttled) { t.timeout = d }
}

func NewThrottled(next DocumentStore, rps float64, burst int, opts ...ThrottleOption) *Throttled {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	t := &Throttled{
		next: next,
		lim:  rate.NewLimiter(limit, burst),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Throttled) acquire(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := t.lim.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		// the deadline would pass before a token frees up
		return nil, nil, unavailable("throttle", err)
	}
	if t.timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, t.timeout)
		return ctx, cancel, nil
	}
	return ctx, func() {}, nil
}

func (t *Throttled) Get(ctx context.Context, ref DocRef) (Document, error) {
	ctx, cancel, err := t.acquire(ctx)
	if err != nil {
		return Document{}, err
	}
	defer cancel()
	return t.next.Get(ctx, ref)
}

func (t *Throttled) Set(ctx context.Context, doc Document) error {
	ctx, cancel, err := t.acquire(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return t.next.Set(ctx, doc)
}

func (t *Throttled) List(ctx context.Context, userID, collection string) ([]Document, error) {
	ctx, cancel, err := t.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	return t.next.List(ctx, userID, collection)
}

func (t *Throttled) Delete(ctx context.Context, ref DocRef) error {
	ctx, cancel, err := t.acquire(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return t.next.Delete(ctx, ref)
}

// Ping is never throttled; connectivity probes must not queue behind writes
func (t *Throttled) Ping(ctx context.Context) error {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.next.Ping(ctx)
}

func (t *Throttled) Close() error {
	return t.next.Close()
}
