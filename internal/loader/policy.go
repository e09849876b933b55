package loader

import "github.com/wilbur182/filescope/internal/session"

// Action is the outcome of an invalidation decision.
type Action int

const (
	// Extend keeps the store and lets new ranges add to it.
	Extend Action = iota
	// Clear drops the store, in-flight bookkeeping and the error string.
	Clear
)

func (a Action) String() string {
	switch a {
	case Extend:
		return "extend"
	case Clear:
		return "clear"
	default:
		return "unknown"
	}
}

// Decide returns Clear only for a genuine criterion change. Scrolling and
// repeated identical criteria extend.
func Decide(current, next session.Criterion) Action {
	if current == next {
		return Extend
	}
	return Clear
}

// invalidate applies a Clear. The session has already replaced its store, so
// IsLoaded is false for every index by the time this runs. Outstanding
// requests are not cancelled; their responses fail the generation check.
func (c *Coordinator) invalidate() {
	c.inflight = make(map[rangeKey]int)
	c.err = ""
}
