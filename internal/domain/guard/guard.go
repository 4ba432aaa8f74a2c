// Package guard holds the single-flight flags that keep the kiosk to one recognition and one
// RFID scan at a time.
package guard

import (
	"sync"
	"time"

	"libkiosk/internal/domain/apperr"
)

var ErrBusy = apperr.New(apperr.KindBusinessRule, "BUSY", "operation already in progress")

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhaseDone    Phase = "done"
	PhaseTimeout Phase = "timeout"
)

// Ticket identifies one Start. Finish with an older ticket is ignored.
type Ticket uint64

type Snapshot[T any] struct {
	Name       string        `json:"name"`
	Phase      Phase         `json:"phase"`
	StartedAt  time.Time     `json:"started_at,omitempty"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
	Elapsed    time.Duration `json:"elapsed,omitempty"`
	Result     *T            `json:"result,omitempty"`
}

// Guard is a mutex-protected in-flight flag with a wall-clock budget. Once the budget is
// spent the next observer flips it to PhaseTimeout and the flag is released.
type Guard[T any] struct {
	name    string
	timeout time.Duration
	now     func() time.Time

	mu         sync.Mutex
	phase      Phase
	ticket     Ticket
	startedAt  time.Time
	finishedAt time.Time
	result     *T
}

type Option[T any] func(*Guard[T])

func WithClock[T any](now func() time.Time) Option[T] {
	return func(g *Guard[T]) { g.now = now }
}

func New[T any](name string, timeout time.Duration, opts ...Option[T]) *Guard[T] {
	g := &Guard[T]{
		name:    name,
		timeout: timeout,
		now:     time.Now,
		phase:   PhaseIdle,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guard[T]) Name() string {
	return g.name
}

func (g *Guard[T]) Timeout() time.Duration {
	return g.timeout
}

// Start raises the flag. It fails with ErrBusy while another run is in flight.
func (g *Guard[T]) Start() (Ticket, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expire()
	if g.phase == PhaseRunning {
		return 0, ErrBusy
	}

	g.ticket++
	g.phase = PhaseRunning
	g.startedAt = g.now()
	g.finishedAt = time.Time{}
	g.result = nil
	return g.ticket, nil
}

// Finish stores the terminal result of the run identified by t and releases the flag.
// It reports false when t is stale or the run already timed out.
func (g *Guard[T]) Finish(t Ticket, result T) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expire()
	if t != g.ticket || g.phase != PhaseRunning {
		return false
	}

	g.phase = PhaseDone
	g.finishedAt = g.now()
	g.result = &result
	return true
}

// Running reports whether t is still the live run.
func (g *Guard[T]) Running(t Ticket) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expire()
	return t == g.ticket && g.phase == PhaseRunning
}

// Reset drops any run and result. A pending Finish from the dropped run is ignored.
func (g *Guard[T]) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ticket++
	g.phase = PhaseIdle
	g.startedAt = time.Time{}
	g.finishedAt = time.Time{}
	g.result = nil
}

func (g *Guard[T]) Snapshot() Snapshot[T] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expire()
	s := Snapshot[T]{
		Name:       g.name,
		Phase:      g.phase,
		StartedAt:  g.startedAt,
		FinishedAt: g.finishedAt,
		Result:     g.result,
	}
	switch g.phase {
	case PhaseRunning:
		s.Elapsed = g.now().Sub(g.startedAt)
	case PhaseDone, PhaseTimeout:
		s.Elapsed = g.finishedAt.Sub(g.startedAt)
	}
	return s
}

// expire is the watchdog. Callers hold mu.
func (g *Guard[T]) expire() {
	if g.phase != PhaseRunning || g.timeout <= 0 {
		return
	}
	if now := g.now(); now.Sub(g.startedAt) > g.timeout {
		g.phase = PhaseTimeout
		g.finishedAt = now
	}
}
