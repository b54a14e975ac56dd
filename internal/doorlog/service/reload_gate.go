package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultReloadInterval is the minimum spacing between manual reloads when
// the caller configures none.
const DefaultReloadInterval = 5 * time.Minute

// ReloadGate rate-limits the manual reload trigger and remembers the last
// completed run. One reload token accrues per interval; the wait estimate
// feeds the "try again in N seconds" message and the dashboard button
// state.
type ReloadGate struct {
	limiter *rate.Limiter

	mu         sync.Mutex
	lastRun    time.Time
	lastResult Result
}

func NewReloadGate(interval time.Duration) *ReloadGate {
	if interval <= 0 {
		interval = DefaultReloadInterval
	}
	return &ReloadGate{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Allow consumes the gate's token when one is available. When limited it
// reports the whole seconds until the next reload may run.
func (g *ReloadGate) Allow() (bool, int) {
	r := g.limiter.Reserve()
	if d := r.Delay(); d > 0 {
		r.Cancel()
		return false, int(d.Seconds())
	}
	return true, 0
}

// NextAllowedIn reports the whole seconds until Allow would succeed, zero
// when a reload is allowed now. The token is not consumed.
func (g *ReloadGate) NextAllowedIn() int {
	r := g.limiter.Reserve()
	d := r.Delay()
	r.Cancel()
	if d <= 0 {
		return 0
	}
	return int(d.Seconds())
}

// RecordRun stores the outcome of a completed reload.
func (g *ReloadGate) RecordRun(res Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastRun = time.Now()
	g.lastResult = res
}

// LastRun returns when the most recent reload finished and what it did.
// The zero time means no reload has run yet.
func (g *ReloadGate) LastRun() (time.Time, Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastRun, g.lastResult
}
