package breaker

import (
	"errors"
	"sync"
	"time"
)

var ErrOpenState = errors.New("circuit breaker is open")

type State uint8

const (
	Closed State = iota
	Open
	HalfOpen
)

type Config struct {
	// Threshold is the consecutive-failure count that opens the circuit.
	Threshold uint32
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration
	// MaxHalfOpen caps probe requests while half-open.
	MaxHalfOpen uint32
}

type Breaker struct {
	mu           sync.RWMutex
	cfg          Config
	state        State
	failCount    uint32
	lastOpenTime time.Time
	halfOpenReq  uint32
}

func New(cfg Config) *Breaker {
	if cfg.Threshold == 0 {
		cfg.Threshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 10 * time.Second
	}
	if cfg.MaxHalfOpen == 0 {
		cfg.MaxHalfOpen = 3
	}
	return &Breaker{
		cfg:   cfg,
		state: Closed,
	}
}

func (b *Breaker) Allow() error {
	b.mu.RLock()

	switch b.state {
	case Closed:
		b.mu.RUnlock()
		return nil
	case Open:
		if time.Since(b.lastOpenTime) < b.cfg.OpenTimeout {
			b.mu.RUnlock()
			return ErrOpenState
		}
	case HalfOpen:
		if b.halfOpenReq >= b.cfg.MaxHalfOpen {
			b.mu.RUnlock()
			return ErrOpenState
		}
	}

	b.mu.RUnlock()
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if time.Since(b.lastOpenTime) >= b.cfg.OpenTimeout {
			b.state = HalfOpen
			b.halfOpenReq = 1
			return nil
		}
		return ErrOpenState
	case HalfOpen:
		if b.halfOpenReq < b.cfg.MaxHalfOpen {
			b.halfOpenReq++
			return nil
		}
		return ErrOpenState
	default:
		return nil
	}
}

func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.state = Closed
		b.failCount = 0
	case Closed:
		b.failCount = 0
	}
}

func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.failCount++
		if b.failCount >= b.cfg.Threshold {
			b.state = Open
			b.lastOpenTime = time.Now()
		}
	case HalfOpen:
		b.state = Open
		b.lastOpenTime = time.Now()
	}
}

func (b *Breaker) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}
