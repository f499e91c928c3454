package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrOpenCircuit is returned while the breaker refuses calls to the billing API.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State of a Breaker.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	}
	return "unknown"
}

// Counts is a snapshot of the outcomes currently held in the window.
type Counts struct {
	Requests int
	Failures int
}

// Breaker trips when the share of failures among the most recent calls
// reaches a ratio. The window holds the last 2*minRequests outcomes, so an
// old burst of errors ages out instead of being halved away. After the
// cooldown a single probe is let through; its outcome closes or reopens the
// circuit.
type Breaker struct {
	mu sync.Mutex

	target      string
	minRequests int
	ratio       float64
	cooldown    time.Duration
	now         func() time.Time
	logger      zerolog.Logger

	state    State
	openedAt time.Time
	probing  bool

	window []bool // true marks a failure
	pos    int
	filled int
}

// NewBreaker builds a closed breaker. It will not trip before minRequests
// outcomes are recorded.
func NewBreaker(minRequests int, ratio float64, cooldown time.Duration) *Breaker {
	if minRequests <= 0 {
		minRequests = 1
	}
	switch {
	case ratio <= 0:
		ratio = 0.5
	case ratio > 1:
		ratio = 1
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		minRequests: minRequests,
		ratio:       ratio,
		cooldown:    cooldown,
		now:         time.Now,
		logger:      zerolog.Nop(),
		window:      make([]bool, minRequests*2),
	}
}

// WithTarget names the API the breaker guards; the name labels metrics and logs.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = strings.TrimSpace(target)
	stateGauge.WithLabelValues(b.label()).Set(float64(b.state))
	return b
}

// WithLogger sets the fallback logger for transitions when the request
// context carries none.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
	return b
}

// WithClock replaces time.Now, mainly for tests.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
	return b
}

// Allow reports whether a call may proceed. An open breaker whose cooldown
// elapsed moves to half-open and admits exactly one probe.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.moveLocked(ctx, HalfOpen)
	}
	if b.probing {
		return false
	}
	b.probing = true
	return true
}

// Report records the outcome of a call admitted by Allow.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.moveLocked(ctx, Closed)
		} else {
			b.moveLocked(ctx, Open)
		}
		return
	}

	b.window[b.pos] = !success
	b.pos = (b.pos + 1) % len(b.window)
	if b.filled < len(b.window) {
		b.filled++
	}
	c := b.countsLocked()
	if c.Requests >= b.minRequests && float64(c.Failures)/float64(c.Requests) >= b.ratio {
		b.moveLocked(ctx, Open)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Counts returns the outcomes recorded since the circuit last closed.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.countsLocked()
}

func (b *Breaker) countsLocked() Counts {
	c := Counts{Requests: b.filled}
	for i := 0; i < b.filled; i++ {
		if b.window[i] {
			c.Failures++
		}
	}
	return c
}

func (b *Breaker) moveLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	b.probing = false
	if next == Open {
		b.openedAt = b.now()
	}
	clear(b.window)
	b.pos, b.filled = 0, 0

	label := b.label()
	stateGauge.WithLabelValues(label).Set(float64(next))
	transitions.WithLabelValues(label, prev.String(), next.String()).Inc()
	if next == Open {
		trips.WithLabelValues(label).Inc()
	}

	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &b.logger
	}
	evt := logger.Info()
	if next == Open {
		evt = logger.Warn().Dur("cooldown", b.cooldown)
	}
	evt.Str("target", label).Str("from", prev.String()).Str("to", next.String()).Msg("circuit breaker transition")
}

func (b *Breaker) label() string {
	if b.target == "" {
		return "default"
	}
	return b.target
}
