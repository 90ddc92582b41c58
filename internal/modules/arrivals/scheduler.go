// Package arrivals owns live-arrival polling for the currently watched stop:
// a single cancellable session that fetches on a fixed interval until the
// selection changes or the watcher is torn down.
package arrivals

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/arrivals/types"
)

// FetchFunc retrieves the arrivals snapshot for one stop.
type FetchFunc func(ctx context.Context, busStopCode string) (types.StopArrivals, error)

// Update is delivered to the registered handler after each successful poll of
// the current, unpaused session.
type Update struct {
	BusStopCode string
	Arrivals    types.StopArrivals
}

// SchedulerMetrics is the subset of the metrics collector the scheduler
// reports to.
type SchedulerMetrics interface {
	WatchSetActive(active bool)
}

type session struct {
	id          uint64
	busStopCode string
	interval    time.Duration
	paused      bool
	cancel      context.CancelFunc
}

// Scheduler polls arrivals for at most one stop at a time. Starting a new
// watch cancels the previous one before the new timer exists; results from a
// superseded session are discarded on completion.
type Scheduler struct {
	fetch       FetchFunc
	minInterval time.Duration
	logger      *slog.Logger
	metrics     SchedulerMetrics

	mu       sync.Mutex
	sess     *session
	nextID   uint64
	onUpdate func(Update)
}

// NewScheduler wires the poller. metrics may be nil. Intervals below
// minInterval are clamped, not rejected.
func NewScheduler(fetch FetchFunc, minInterval time.Duration, logger *slog.Logger, metrics SchedulerMetrics) *Scheduler {
	return &Scheduler{
		fetch:       fetch,
		minInterval: minInterval,
		logger:      logger,
		metrics:     metrics,
	}
}

// SetUpdateHandler registers the observer for successful polls.
func (s *Scheduler) SetUpdateHandler(fn func(Update)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// Start begins watching busStopCode: any existing session is cancelled first,
// one fetch happens immediately, then polling continues on the interval.
func (s *Scheduler) Start(busStopCode string, interval time.Duration) error {
	if busStopCode == "" {
		return errors.New("bus stop code required")
	}
	if interval < s.minInterval {
		interval = s.minInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.stopLocked()
	s.nextID++
	sess := &session{
		id:          s.nextID,
		busStopCode: busStopCode,
		interval:    interval,
		cancel:      cancel,
	}
	s.sess = sess
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.WatchSetActive(true)
	}
	s.logger.Info("watch started", "busStopCode", busStopCode, "interval_ms", interval.Milliseconds())

	go s.run(ctx, sess, true)
	return nil
}

// Pause suspends the timer but keeps the session.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil || s.sess.paused {
		return
	}
	s.sess.paused = true
	s.sess.cancel()
	s.logger.Info("watch paused", "busStopCode", s.sess.busStopCode)
}

// Resume restarts the timer of a paused session without an immediate fetch.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil || !s.sess.paused {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.sess.paused = false
	s.sess.cancel = cancel
	s.logger.Info("watch resumed", "busStopCode", s.sess.busStopCode)
	go s.run(ctx, s.sess, false)
}

// Stop cancels the timer and discards the session.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Session reports the current watch.
func (s *Scheduler) Session() (types.WatchSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return types.WatchSession{}, false
	}
	return types.WatchSession{
		BusStopCode: s.sess.busStopCode,
		IntervalMS:  s.sess.interval.Milliseconds(),
		Paused:      s.sess.paused,
	}, true
}

func (s *Scheduler) stopLocked() {
	if s.sess == nil {
		return
	}
	s.sess.cancel()
	s.logger.Info("watch stopped", "busStopCode", s.sess.busStopCode)
	s.sess = nil
	if s.metrics != nil {
		s.metrics.WatchSetActive(false)
	}
}

func (s *Scheduler) run(ctx context.Context, sess *session, immediate bool) {
	if immediate {
		s.poll(ctx, sess)
	}
	ticker := time.NewTicker(sess.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx, sess)
		}
	}
}

func (s *Scheduler) poll(ctx context.Context, sess *session) {
	snapshot, err := s.fetch(ctx, sess.busStopCode)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Warn("arrival poll failed", "busStopCode", sess.busStopCode, "error", err)
		return
	}

	// Session-identity check: a fetch that completes after the watch moved
	// on (or paused) must not update observers.
	s.mu.Lock()
	current := s.sess != nil && s.sess.id == sess.id && !s.sess.paused
	handler := s.onUpdate
	s.mu.Unlock()
	if !current {
		s.logger.Debug("discarding arrival result for superseded session", "busStopCode", sess.busStopCode)
		return
	}
	if handler != nil {
		handler(Update{BusStopCode: sess.busStopCode, Arrivals: snapshot})
	}
}
