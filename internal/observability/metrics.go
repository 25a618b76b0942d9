package observability

type Metrics interface {
	ObserveHTTP(method, route string, status int, durMs float64)
	IncCacheHit()
	IncCacheMiss()
}

type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) ObserveHTTP(string, string, int, float64) {}
func (Noop) IncCacheHit()                             {}
func (Noop) IncCacheMiss()                            {}
