package observability

import "sync"

type observe struct {
	Kind          string
	Method, Route string
	Status        int
	Dur           float64
}

// Inmem keeps the last max observations plus running cache counters.
// Enough for tests and a debug endpoint; not a metrics backend.
type Inmem struct {
	mu     sync.Mutex
	last   []*observe
	max    int
	totals struct {
		cacheHits, cacheMiss int
	}
}

func NewInmem(max int) *Inmem {
	return &Inmem{
		max: max,
	}
}

func (m *Inmem) push(v *observe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = append(m.last, v)
	if len(m.last) > m.max {
		m.last = m.last[1:]
	}
}

func (m *Inmem) ObserveHTTP(method, route string, status int, durMs float64) {
	m.push(&observe{Kind: "http", Method: method, Route: route, Status: status, Dur: durMs})
}

func (m *Inmem) IncCacheHit() {
	m.mu.Lock()
	m.totals.cacheHits++
	m.mu.Unlock()
}

func (m *Inmem) IncCacheMiss() {
	m.mu.Lock()
	m.totals.cacheMiss++
	m.mu.Unlock()
}

func (m *Inmem) CacheHits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals.cacheHits
}

func (m *Inmem) CacheMisses() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals.cacheMiss
}
