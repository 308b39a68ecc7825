/*
scheduler.go - Automated month-close runs

PURPOSE:
  Periodically closes the previous calendar month: classifies it and
  persists the casual leave it consumed, so the next month's run starts
  from the right balance without anyone calling POST /api/runs.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - A month is closed when a persisting run covering exactly that month exists
  - Closing goes through Handler.ExecuteRun, the same path as the API

USAGE:
  scheduler := NewMonthCloseScheduler(handler, time.Hour)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ExecuteRun
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/attendance-engine/generic"
)

// MonthCloseScheduler closes finished months in the background.
type MonthCloseScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	now    func() time.Time
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewMonthCloseScheduler creates a scheduler. An interval of zero disables it.
func NewMonthCloseScheduler(handler *Handler, interval time.Duration) *MonthCloseScheduler {
	return &MonthCloseScheduler{
		Handler:       handler,
		CheckInterval: interval,
		Enabled:       interval > 0,
		now:           time.Now,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (s *MonthCloseScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.Handler.Logger.WithField("component", "month_close")
	if !s.Enabled {
		log.Info("scheduler disabled")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)
	go s.run()

	log.WithField("interval", s.CheckInterval.String()).Info("scheduler started")
}

// Stop stops the scheduler and waits for an in-flight check to finish.
func (s *MonthCloseScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.Handler.Logger.WithField("component", "month_close").Info("scheduler stopped")
	}
}

func (s *MonthCloseScheduler) run() {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-s.stop
		cancel()
	}()

	// Run immediately on start
	s.CloseMonth(ctx)

	for {
		select {
		case <-s.ticker.C:
			s.CloseMonth(ctx)
		case <-s.stop:
			return
		}
	}
}

// PreviousMonth returns the calendar month before the one containing now.
func PreviousMonth(now time.Time) generic.Period {
	current := generic.PeriodMonth.PeriodFor(generic.FromTime(now))
	return generic.PeriodMonth.PeriodFor(current.Start.AddDays(-1))
}

// CloseMonth closes the previous month unless a persisting run already
// covers it; preview runs are ignored. It reports whether a run was executed.
func (s *MonthCloseScheduler) CloseMonth(ctx context.Context) bool {
	month := PreviousMonth(s.now())
	log := s.Handler.Logger.WithFields(logrus.Fields{
		"component": "month_close",
		"from":      month.Start.String(),
		"to":        month.End.String(),
	})

	done, err := s.Handler.Store.PersistedRunExists(ctx, month)
	if err != nil {
		log.WithError(err).Error("check month-close run")
		return false
	}
	if done {
		log.Debug("month already closed")
		return false
	}

	resp, err := s.Handler.ExecuteRun(ctx, month, true)
	if err != nil {
		log.WithError(err).Error("month-close run failed")
		return false
	}
	log.WithFields(logrus.Fields{
		"run_id":   resp.RunID,
		"failures": len(resp.Failures),
	}).Info("month closed")
	return true
}
