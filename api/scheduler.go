/*
scheduler.go - Background replanning

PURPOSE:
  Keeps the persisted plan fresh without user action. Time passing is
  enough to change a plan: the first day shrinks as "now" moves, and
  calendar events appear or move.

DESIGN:
  - Runs a background goroutine with a configurable interval
  - Each tick optionally re-imports the calendar, then replans and persists
  - Errors are logged and the next tick tries again

USAGE:
  scheduler := NewReplanScheduler(handler, 15*time.Minute)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Replan
*/
package api

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// ReplanScheduler recomputes the plan periodically.
type ReplanScheduler struct {
	Handler        *Handler
	Interval       time.Duration
	ImportCalendar bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	runs   atomic.Int64
}

// NewReplanScheduler creates a scheduler; it imports the calendar first
// when the handler has one.
func NewReplanScheduler(h *Handler, interval time.Duration) *ReplanScheduler {
	return &ReplanScheduler{
		Handler:        h,
		Interval:       interval,
		ImportCalendar: h.Calendar != nil,
	}
}

// Start begins the scheduler. A non-positive interval disables it.
func (rs *ReplanScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	logger := rs.Handler.Logger
	if rs.Interval <= 0 {
		logger.Info().Msg("replan scheduler disabled")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.Interval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)
	go rs.run(rs.ticker, rs.stop)

	logger.Info().Dur("interval", rs.Interval).Msg("replan scheduler started")
}

// Stop stops the scheduler and waits for a running pass to finish.
func (rs *ReplanScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker == nil {
		return
	}
	rs.ticker.Stop()
	close(rs.stop)
	rs.wg.Wait()
	rs.ticker = nil
	rs.Handler.Logger.Info().Msg("replan scheduler stopped")
}

// Runs reports how many passes completed.
func (rs *ReplanScheduler) Runs() int {
	return int(rs.runs.Load())
}

func (rs *ReplanScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	// Run immediately on start
	rs.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			rs.RunOnce(context.Background())
		case <-stop:
			return
		}
	}
}

// RunOnce performs one pass: import (when enabled), then replan.
func (rs *ReplanScheduler) RunOnce(ctx context.Context) {
	h := rs.Handler
	logger := h.Logger

	if rs.ImportCalendar && h.Calendar != nil {
		today := h.today()
		if _, err := h.Calendar.Import(ctx, h.Store, today.Midnight(), today.AddDays(h.HorizonDays+1).Midnight()); err != nil {
			logger.Error().Err(err).Msg("scheduled calendar import failed")
		}
	}

	out, err := h.Replan(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("scheduled replan failed")
		return
	}

	rs.runs.Add(1)
	logger.Debug().
		Str("plan_id", out.Record.ID).
		Int("assignments", len(out.Result.Assignments)).
		Int("infeasible", len(out.Result.Infeasible)).
		Int("overdue", len(out.Overdue)).
		Msg("scheduled replan complete")
}
