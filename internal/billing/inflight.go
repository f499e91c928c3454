package billing

import "sync"

// Token marks an operation as in flight until released.
type Token struct {
	op Op
	id uint64
}

// Op returns the operation the token guards.
func (t Token) Op() Op { return t.op }

// Guard hands out at most one outstanding token per operation.
type Guard struct {
	mu     sync.Mutex
	seq    uint64
	active map[Op]uint64
}

// Acquire reserves op. A second Acquire for the same op fails with
// ErrDuplicateDispatch until the first token is released.
func (g *Guard) Acquire(op Op) (Token, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == nil {
		g.active = make(map[Op]uint64)
	}
	if _, busy := g.active[op]; busy {
		return Token{}, ErrDuplicateDispatch
	}
	g.seq++
	g.active[op] = g.seq
	return Token{op: op, id: g.seq}, nil
}

// Release frees the token. Stale or repeated releases are ignored.
func (g *Guard) Release(t Token) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id, ok := g.active[t.op]; ok && id == t.id {
		delete(g.active, t.op)
	}
}

// InFlight reports whether op currently holds a token.
func (g *Guard) InFlight(op Op) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.active[op]
	return ok
}
