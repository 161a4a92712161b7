package client

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ffx64/nowplaying-rpc/transport/ipc"
)

type sent struct {
	env Envelope
	at  time.Time
}

type recorder struct {
	mu   sync.Mutex
	all  []sent
	ch   chan sent
	fail error
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan sent, 64)}
}

func (r *recorder) Send(env Envelope) error {
	s := sent{env: env, at: time.Now()}
	r.mu.Lock()
	r.all = append(r.all, s)
	fail := r.fail
	r.mu.Unlock()
	r.ch <- s
	return fail
}

func (r *recorder) snapshot() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sent(nil), r.all...)
}

func (r *recorder) next(t *testing.T, within time.Duration) sent {
	t.Helper()
	select {
	case s := <-r.ch:
		return s
	case <-time.After(within):
		t.Fatalf("no send within %v", within)
		return sent{}
	}
}

func (r *recorder) none(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case s := <-r.ch:
		t.Fatalf("unexpected send: %+v", s.env)
	case <-time.After(within):
	}
}

func details(s sent) string {
	if s.env.Args.Activity == nil || s.env.Args.Activity.Details == nil {
		return ""
	}
	return *s.env.Args.Activity.Details
}

func startScheduler(t *testing.T, r *recorder, opts ...SchedulerOption) *Scheduler {
	t.Helper()
	s := NewScheduler(r, opts...)
	s.Start(context.Background())
	t.Cleanup(s.Close)
	return s
}

func TestSchedulerFirstSubmitSendsImmediately(t *testing.T) {
	r := newRecorder()
	s := startScheduler(t, r, WithCooldown(time.Second))

	start := time.Now()
	s.Submit(Activity{Type: Listening, Details: String("A")})
	got := r.next(t, 200*time.Millisecond)
	if details(got) != "A" {
		t.Fatalf("sent %q", details(got))
	}
	if got.at.Sub(start) > 100*time.Millisecond {
		t.Fatalf("first send delayed by %v", got.at.Sub(start))
	}
}

func TestSchedulerCoalescesToLatest(t *testing.T) {
	const cooldown = 300 * time.Millisecond
	r := newRecorder()
	s := startScheduler(t, r, WithCooldown(cooldown))

	s.Submit(Activity{Details: String("first")})
	first := r.next(t, 200*time.Millisecond)

	s.Submit(Activity{Details: String("A")})
	time.Sleep(20 * time.Millisecond)
	s.Submit(Activity{Details: String("B")})

	second := r.next(t, cooldown+300*time.Millisecond)
	if details(second) != "B" {
		t.Fatalf("expected the latest activity B, got %q", details(second))
	}
	if gap := second.at.Sub(first.at); gap < cooldown {
		t.Fatalf("second send only %v after the first", gap)
	}
	r.none(t, cooldown+100*time.Millisecond)
}

func TestSchedulerCooldownFloor(t *testing.T) {
	const cooldown = 100 * time.Millisecond
	r := newRecorder()
	s := startScheduler(t, r, WithCooldown(cooldown))

	for i := 0; i < 25; i++ {
		s.Submit(Activity{Details: String(strconv.Itoa(i))})
		time.Sleep(15 * time.Millisecond)
	}
	time.Sleep(3 * cooldown)

	all := r.snapshot()
	if len(all) < 2 {
		t.Fatalf("expected several sends, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if gap := all[i].at.Sub(all[i-1].at); gap < cooldown {
			t.Fatalf("sends %d and %d only %v apart", i-1, i, gap)
		}
	}
	if last := details(all[len(all)-1]); last != "24" {
		t.Fatalf("last transmitted %q, want 24", last)
	}
}

func TestSchedulerClearCancelsPending(t *testing.T) {
	const cooldown = 300 * time.Millisecond
	r := newRecorder()
	s := startScheduler(t, r, WithCooldown(cooldown))

	s.Submit(Activity{Details: String("playing")})
	r.next(t, 200*time.Millisecond)

	s.Submit(Activity{Details: String("queued")})
	time.Sleep(20 * time.Millisecond)
	s.Clear()

	got := r.next(t, 100*time.Millisecond)
	if !got.env.IsClear() {
		t.Fatalf("expected clear envelope, got %+v", got.env)
	}
	r.none(t, cooldown+100*time.Millisecond)
}

func TestSchedulerConcurrentSubmitters(t *testing.T) {
	const cooldown = 80 * time.Millisecond
	r := newRecorder()
	s := startScheduler(t, r, WithCooldown(cooldown))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Submit(Activity{Details: String("g" + strconv.Itoa(g))})
			}
		}(g)
	}
	wg.Wait()
	s.Submit(Activity{Details: String("final")})
	time.Sleep(3 * cooldown)

	all := r.snapshot()
	if last := details(all[len(all)-1]); last != "final" {
		t.Fatalf("last transmitted %q, want final", last)
	}
	for i := 1; i < len(all); i++ {
		if gap := all[i].at.Sub(all[i-1].at); gap < cooldown {
			t.Fatalf("sends %d and %d only %v apart", i-1, i, gap)
		}
	}
}

func TestSchedulerSkipsRepeatedClear(t *testing.T) {
	r := newRecorder()
	s := startScheduler(t, r, WithCooldown(time.Second))

	s.Submit(Activity{Details: String("playing")})
	r.next(t, 200*time.Millisecond)

	for i := 0; i < 3; i++ {
		s.Clear()
		time.Sleep(10 * time.Millisecond)
	}
	if got := r.next(t, 100*time.Millisecond); !got.env.IsClear() {
		t.Fatalf("expected clear envelope, got %+v", got.env)
	}
	r.none(t, 200*time.Millisecond)

	// a new activity makes the next clear count again
	s.Submit(Activity{Details: String("again")})
	r.next(t, 1500*time.Millisecond)
	s.Clear()
	if got := r.next(t, 100*time.Millisecond); !got.env.IsClear() {
		t.Fatalf("expected clear envelope, got %+v", got.env)
	}
}

func TestSchedulerClearThenSubmitSendsBoth(t *testing.T) {
	const cooldown = 200 * time.Millisecond
	r := newRecorder()
	s := startScheduler(t, r, WithCooldown(cooldown))

	s.Submit(Activity{Details: String("old")})
	r.next(t, 200*time.Millisecond)

	s.Clear()
	s.Submit(Activity{Details: String("new")})

	if got := r.next(t, 100*time.Millisecond); !got.env.IsClear() {
		t.Fatalf("expected clear first, got %+v", got.env)
	}
	if got := r.next(t, cooldown+300*time.Millisecond); details(got) != "new" {
		t.Fatalf("expected new after the clear, got %q", details(got))
	}
	r.none(t, cooldown)
}

type countingMetrics struct {
	submitted, coalesced, sent, cleared, failed atomic.Int32
}

func (m *countingMetrics) Submitted() { m.submitted.Add(1) }
func (m *countingMetrics) Coalesced() { m.coalesced.Add(1) }
func (m *countingMetrics) Failed()    { m.failed.Add(1) }
func (m *countingMetrics) Sent(clear bool) {
	if clear {
		m.cleared.Add(1)
		return
	}
	m.sent.Add(1)
}

func TestSchedulerReportsFailuresAndMetrics(t *testing.T) {
	r := newRecorder()
	r.fail = ipc.ErrNotConnected

	var mu sync.Mutex
	var errs []error
	m := &countingMetrics{}
	s := startScheduler(t, r,
		WithCooldown(50*time.Millisecond),
		WithMetrics(m),
		WithErrorHandler(func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}),
	)

	s.Submit(Activity{Details: String("dropped")})
	r.next(t, 200*time.Millisecond)

	r.mu.Lock()
	r.fail = nil
	r.mu.Unlock()

	s.Submit(Activity{Details: String("a")})
	s.Submit(Activity{Details: String("b")})
	got := r.next(t, 300*time.Millisecond)
	if details(got) != "b" {
		t.Fatalf("expected b after failure, got %q", details(got))
	}
	s.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(errs) != 1 || !errors.Is(errs[0], ipc.ErrNotConnected) {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if m.submitted.Load() != 3 || m.coalesced.Load() != 1 || m.sent.Load() != 1 || m.failed.Load() != 1 {
		t.Fatalf("unexpected metrics: submitted=%d coalesced=%d sent=%d failed=%d",
			m.submitted.Load(), m.coalesced.Load(), m.sent.Load(), m.failed.Load())
	}
}

func TestSchedulerIgnoresSubmitAfterClose(t *testing.T) {
	r := newRecorder()
	s := startScheduler(t, r, WithCooldown(10*time.Millisecond))
	s.Close()
	s.Submit(Activity{Details: String("late")})
	s.Clear()
	r.none(t, 100*time.Millisecond)
}
