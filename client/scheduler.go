package client

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultCooldown is the minimum spacing the peer tolerates between updates.
const DefaultCooldown = 5 * time.Second

// Sender delivers one envelope and drains the peer's reply.
type Sender interface {
	Send(Envelope) error
}

type SenderFunc func(Envelope) error

func (f SenderFunc) Send(e Envelope) error { return f(e) }

// Metrics receives scheduler events. See internal/metrics for the
// prometheus implementation.
type Metrics interface {
	Submitted()
	Coalesced()
	Sent(clear bool)
	Failed()
}

type nopMetrics struct{}

func (nopMetrics) Submitted() {}
func (nopMetrics) Coalesced() {}
func (nopMetrics) Sent(bool)  {}
func (nopMetrics) Failed()    {}

// Scheduler coalesces activity updates so the peer sees at most one send per
// cooldown window, always carrying the latest submitted activity.
//
// Callers only touch the pending slot under mu. The timer, lastSend and the
// Sender are owned by the worker goroutine started by Start, so sends never
// overlap and at most one send is ever scheduled.
type Scheduler struct {
	sender   Sender
	cooldown time.Duration
	logger   zerolog.Logger
	metrics  Metrics
	onError  func(error)

	mu      sync.Mutex
	pending *Activity
	clear   bool
	closed  bool

	wake      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
	started   bool
}

type SchedulerOption func(*Scheduler)

func WithCooldown(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.cooldown = d }
}

func WithSchedulerLogger(l zerolog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

func WithMetrics(m Metrics) SchedulerOption {
	return func(s *Scheduler) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithErrorHandler is called from the worker for every failed send.
func WithErrorHandler(fn func(error)) SchedulerOption {
	return func(s *Scheduler) { s.onError = fn }
}

func NewScheduler(sender Sender, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		sender:   sender,
		cooldown: DefaultCooldown,
		logger:   zerolog.Nop(),
		metrics:  nopMetrics{},
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit replaces the pending activity and reschedules the send. It never
// blocks on the peer. A clear requested before Submit is still delivered
// first.
func (s *Scheduler) Submit(act Activity) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.pending != nil {
		s.metrics.Coalesced()
	}
	s.pending = &act
	s.mu.Unlock()

	s.metrics.Submitted()
	s.poke()
}

// Clear drops any pending activity and sends the clear envelope right away.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.pending != nil {
		s.metrics.Coalesced()
	}
	s.pending = nil
	s.clear = true
	s.mu.Unlock()

	s.poke()
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start launches the worker. It stops when ctx is done or Close is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.mu.Lock()
		s.started = true
		s.mu.Unlock()
		go s.run(ctx)
	})
}

// Close stops the worker and waits for an in-flight send to finish.
// Pending activity is discarded.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.pending = nil
		started := s.started
		s.mu.Unlock()
		close(s.stop)
		if started {
			<-s.done
		}
	})
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false
	defer timer.Stop()

	disarm := func() {
		if !armed {
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		armed = false
	}

	var lastSend time.Time
	// set while the peer shows no activity; repeated clears are skipped
	cleared := false
	for {
		var fire <-chan time.Time
		if armed {
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return

		case <-s.wake:
			s.mu.Lock()
			clearReq := s.clear
			s.clear = false
			hasPending := s.pending != nil
			s.mu.Unlock()

			if clearReq {
				disarm()
				if cleared {
					s.logger.Debug().Msg("activity already cleared")
				} else {
					cleared = s.deliver(NewClearActivity())
					lastSend = time.Now()
				}
			}
			if !hasPending {
				continue
			}

			var delay time.Duration
			if !lastSend.IsZero() {
				delay = s.cooldown - time.Since(lastSend)
				if delay < 0 {
					delay = 0
				}
			}
			disarm()
			timer.Reset(delay)
			armed = true
			s.logger.Debug().Dur("delay", delay).Msg("activity send scheduled")

		case <-fire:
			armed = false
			s.mu.Lock()
			act := s.pending
			s.pending = nil
			s.mu.Unlock()
			if act == nil {
				continue
			}
			if s.deliver(NewSetActivity(act)) {
				cleared = false
			}
			lastSend = time.Now()
		}
	}
}

// deliver reports whether the peer accepted env.
func (s *Scheduler) deliver(env Envelope) bool {
	if err := s.sender.Send(env); err != nil {
		s.metrics.Failed()
		s.logger.Warn().Err(err).Bool("clear", env.IsClear()).Msg("activity update dropped")
		if s.onError != nil {
			s.onError(err)
		}
		return false
	}
	s.metrics.Sent(env.IsClear())
	s.logger.Debug().Bool("clear", env.IsClear()).Str("nonce", env.Nonce).Msg("activity update sent")
	return true
}
