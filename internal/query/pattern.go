package query

import (
	"sort"

	"github.com/cogmem/cogmem/internal/types"
)

// PatternSort selects the ordering Pattern applies before truncation.
type PatternSort uint8

const (
	MostRecent PatternSort = iota
	MostConfident
	MostDecayed
	Oldest
)

// PatternParams filters the node set on every field simultaneously. A zero
// value field (nil slice, zero range) is treated as "no constraint".
type PatternParams struct {
	EventTypes    []types.EventType
	MinConfidence float64
	MaxConfidence float64 // 0 means "no upper bound"
	SessionIDs    []types.SessionID
	CreatedAfter  int64
	CreatedBefore int64 // 0 means "no upper bound"
	MinDecayScore float64
	Sort          PatternSort
	MaxResults    int
}

func inEventTypes(types_ []types.EventType, t types.EventType) bool {
	if len(types_) == 0 {
		return true
	}
	for _, x := range types_ {
		if x == t {
			return true
		}
	}
	return false
}

func inSessions(sessions []types.SessionID, s types.SessionID) bool {
	if len(sessions) == 0 {
		return true
	}
	for _, x := range sessions {
		if x == s {
			return true
		}
	}
	return false
}

// Pattern filters nodes by event type, confidence range, session,
// creation window and decay floor, then sorts and truncates the result
// (spec.md §4.E).
func (e *Engine) Pattern(p PatternParams) []types.Event {
	var matches []types.Event
	for _, id := range e.g.AllNodeIDs() {
		ev, err := e.g.GetNode(id)
		if err != nil {
			continue
		}
		if !inEventTypes(p.EventTypes, ev.Type) {
			continue
		}
		if ev.Confidence < p.MinConfidence {
			continue
		}
		if p.MaxConfidence > 0 && ev.Confidence > p.MaxConfidence {
			continue
		}
		if !inSessions(p.SessionIDs, ev.SessionID) {
			continue
		}
		if ev.CreatedAt < p.CreatedAfter {
			continue
		}
		if p.CreatedBefore > 0 && ev.CreatedAt > p.CreatedBefore {
			continue
		}
		if ev.DecayScore < p.MinDecayScore {
			continue
		}
		matches = append(matches, ev)
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		switch p.Sort {
		case MostConfident:
			if a.Confidence != b.Confidence {
				return a.Confidence > b.Confidence
			}
		case MostDecayed:
			if a.DecayScore != b.DecayScore {
				return a.DecayScore < b.DecayScore
			}
		case Oldest:
			if a.CreatedAt != b.CreatedAt {
				return a.CreatedAt < b.CreatedAt
			}
		case MostRecent:
			fallthrough
		default:
			if a.CreatedAt != b.CreatedAt {
				return a.CreatedAt > b.CreatedAt
			}
		}
		return a.ID < b.ID
	})

	if p.MaxResults > 0 && len(matches) > p.MaxResults {
		matches = matches[:p.MaxResults]
	}
	return matches
}
