// Package session holds the active search criterion and the generation token
// that invalidates asynchronous results issued under an earlier criterion.
package session

import "github.com/wilbur182/filescope/internal/window"

// Criterion is the search filter applied to the listing. Equality is by value.
type Criterion struct {
	Text string
}

// GenerationMessage is implemented by async results that carry the generation
// they were issued under.
type GenerationMessage interface {
	GetGeneration() uint64
}

// Session owns the criterion, the generation and the live store.
type Session struct {
	criterion  Criterion
	generation uint64 // Incremented on criterion change to invalidate stale async messages
	store      *window.Store
}

// New creates a session with the empty criterion at generation 0.
func New() *Session {
	return &Session{store: window.NewStore(0)}
}

// SetCriterion records text as the criterion. A differing value bumps the
// generation and replaces the store; identical text changes nothing. The
// return value reports whether a change happened.
func (s *Session) SetCriterion(text string) bool {
	next := Criterion{Text: text}
	if next == s.criterion {
		return false
	}
	s.criterion = next
	s.generation++
	s.store = window.NewStore(s.generation)
	return true
}

// Reset keeps the criterion but bumps the generation and empties the store,
// so every outstanding result becomes stale. It is used when the data source
// itself changes.
func (s *Session) Reset() {
	s.generation++
	s.store = window.NewStore(s.generation)
}

// Criterion returns the current criterion.
func (s *Session) Criterion() Criterion {
	return s.criterion
}

// Generation returns the current generation.
func (s *Session) Generation() uint64 {
	return s.generation
}

// Store returns the live store. The pointer changes on every criterion change,
// so callers must not retain it across one.
func (s *Session) Store() *window.Store {
	return s.store
}

// IsStale reports whether msg was issued under an earlier generation.
func (s *Session) IsStale(msg GenerationMessage) bool {
	return msg.GetGeneration() != s.generation
}

// IsStale reports whether msg belongs to another generation than s. A nil
// session treats every message as current.
func IsStale(s *Session, msg GenerationMessage) bool {
	if s == nil {
		return false
	}
	return s.IsStale(msg)
}
