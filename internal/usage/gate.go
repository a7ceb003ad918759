package usage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yarasp/yarasp-go/internal/constants"
	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

// Decision is the gate's verdict for the next live request.
type Decision int

const (
	Allow Decision = iota
	Block
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "ALLOW"
	case Block:
		return "BLOCK"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// GateConfig configures a Gate.
type GateConfig struct {
	// DailyLimit defaults to 500 when zero.
	DailyLimit int
	SafeMode   bool
	// Backend is reported by Status.
	Backend string
	Now     func() time.Time
	Logger  yarasp.Logger
}

// Gate enforces the daily limit over a Store. Stored counts live in the
// store; the gate only tracks reservations for requests still in flight in
// this process. Each call recomputes today's key, so a new date starts from
// zero.
type Gate struct {
	store    Store
	limit    int
	safeMode bool
	backend  string
	now      func() time.Time
	logger   yarasp.Logger

	mu       sync.Mutex
	inflight map[string]int
}

// Reservation holds one slot of the daily limit for a live request. Commit
// counts the request; Release frees the slot without counting it.
type Reservation struct {
	gate *Gate
	day  string
	once sync.Once
}

// NewGate wraps store.
func NewGate(store Store, cfg GateConfig) (*Gate, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	limit := cfg.DailyLimit
	if limit == 0 {
		limit = constants.DefaultDailyLimit
	}

	if limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	gate := &Gate{
		store:    store,
		limit:    limit,
		safeMode: cfg.SafeMode,
		backend:  cfg.Backend,
		now:      cfg.Now,
		logger:   cfg.Logger,
		inflight: make(map[string]int),
	}
	if gate.now == nil {
		gate.now = time.Now
	}

	if gate.logger == nil {
		gate.logger = yarasp.NopLogger{}
	}

	return gate, nil
}

// Limit returns the daily threshold.
func (g *Gate) Limit() int {
	return g.limit
}

// SafeMode reports whether reaching the limit blocks requests.
func (g *Gate) SafeMode() bool {
	return g.safeMode
}

// Store returns the underlying counter store.
func (g *Gate) Store() Store {
	return g.store
}

// Today returns the current day key.
func (g *Gate) Today() string {
	return DayKey(g.now())
}

// Check decides whether a live request may be issued today.
func (g *Gate) Check(ctx context.Context) (Decision, error) {
	return g.CheckOn(ctx, g.Today())
}

// CheckOn decides whether a live request may be issued on day. Requests
// reserved but not yet committed count toward the limit.
func (g *Gate) CheckOn(ctx context.Context, day string) (Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	decision, _, err := g.decide(ctx, day)

	return decision, err
}

// Enforce returns a *yarasp.LimitExceededError when CheckOn blocks.
func (g *Gate) Enforce(ctx context.Context, day string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.enforce(ctx, day)
}

// Reserve takes a slot for one live request on day, failing with a
// *yarasp.LimitExceededError when stored plus reserved requests reach the
// limit in safe mode. The caller must Commit or Release the reservation.
func (g *Gate) Reserve(ctx context.Context, day string) (*Reservation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	err := g.enforce(ctx, day)
	if err != nil {
		return nil, err
	}

	g.inflight[day]++

	return &Reservation{gate: g, day: day}, nil
}

// enforce must be called with g.mu held.
func (g *Gate) enforce(ctx context.Context, day string) error {
	decision, count, err := g.decide(ctx, day)
	if err != nil {
		return fmt.Errorf("checking daily limit: %w", err)
	}

	if decision == Block {
		return &yarasp.LimitExceededError{Day: day, Count: count, Limit: g.limit}
	}

	return nil
}

// decide must be called with g.mu held. It returns the stored count.
func (g *Gate) decide(ctx context.Context, day string) (Decision, int, error) {
	if !g.safeMode {
		return Allow, 0, nil
	}

	count, err := g.store.GetCount(ctx, day)
	if err != nil {
		return Block, 0, err
	}

	if count+g.inflight[day] >= g.limit {
		g.logger.Warn("Daily API request limit reached", map[string]interface{}{
			"day":      day,
			"count":    count,
			"inflight": g.inflight[day],
			"limit":    g.limit,
		})

		return Block, count, nil
	}

	return Allow, count, nil
}

func (g *Gate) release(day string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.inflight[day]--
	if g.inflight[day] <= 0 {
		delete(g.inflight, day)
	}
}

// Day returns the date the reservation was taken for.
func (r *Reservation) Day() string {
	return r.day
}

// Commit counts the reserved request, then frees the slot.
func (r *Reservation) Commit(ctx context.Context) (int, error) {
	defer r.Release()

	return r.gate.RecordLiveCallOn(ctx, r.day)
}

// Release frees the slot without counting. It is safe to call more than once
// and after Commit.
func (r *Reservation) Release() {
	r.once.Do(func() { r.gate.release(r.day) })
}

// RecordLiveCall counts one successful live request today. It must not be
// called for responses served from cache.
func (g *Gate) RecordLiveCall(ctx context.Context) (int, error) {
	return g.RecordLiveCallOn(ctx, g.Today())
}

// RecordLiveCallOn counts one successful live request on day.
func (g *Gate) RecordLiveCallOn(ctx context.Context, day string) (int, error) {
	count, err := g.store.Increment(ctx, day)
	if err != nil {
		return 0, err
	}

	if !g.safeMode && count > g.limit {
		g.logger.Warn("Daily API request limit exceeded, safe mode is off", map[string]interface{}{
			"day":   day,
			"count": count,
			"limit": g.limit,
		})
	}

	return count, nil
}

// Count returns today's count.
func (g *Gate) Count(ctx context.Context) (int, error) {
	return g.store.GetCount(ctx, g.Today())
}

// CountOn returns day's count.
func (g *Gate) CountOn(ctx context.Context, day string) (int, error) {
	return g.store.GetCount(ctx, day)
}

// Status reports today's accounting.
func (g *Gate) Status(ctx context.Context) (*yarasp.UsageStatus, error) {
	day := g.Today()

	count, err := g.store.GetCount(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("reading usage counter: %w", err)
	}

	return &yarasp.UsageStatus{
		Day:       day,
		Count:     count,
		Limit:     g.limit,
		Remaining: max(g.limit-count, 0),
		SafeMode:  g.safeMode,
		Backend:   g.backend,
	}, nil
}

// Close closes the store.
func (g *Gate) Close() error {
	return g.store.Close()
}
