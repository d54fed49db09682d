// Package raceguard arbitrates asynchronously produced results so that
// only the most recently initiated derivation for a scope is ever
// applied. Anything resolving under an older token is stale and must be
// discarded: last-issued-wins, not last-resolved-wins.
package raceguard

import "sync/atomic"

// Guard issues monotonically increasing tokens for one scope.
// The zero value is ready to use.
type Guard struct {
	last atomic.Uint64
}

// Issue returns a fresh token and invalidates all previously issued ones.
// Call it before starting asynchronous work whose result may race.
func (g *Guard) Issue() Token {
	return Token{guard: g, n: g.last.Add(1)}
}

// Invalidate marks every outstanding token stale without issuing a new
// one. Used on teardown so in-flight work cannot apply after close.
func (g *Guard) Invalidate() {
	g.last.Add(1)
}

// Token identifies one initiated derivation.
// The zero Token is never current.
type Token struct {
	guard *Guard
	n     uint64
}

// Current reports whether the token is still the most recently issued
// one for its guard. Check it at resolution time, immediately before
// applying the result.
func (t Token) Current() bool {
	return t.guard != nil && t.guard.last.Load() == t.n
}
