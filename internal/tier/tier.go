// Package tier implements storage tiering (spec.md §4.J): classifying
// events into Hot/Warm/Cold/Frozen by age, and the per-tier codecs
// (CodecForTier, Compress, Decompress) for Cold and Frozen content.
// Classifying an event does not itself compress or rewrite any stored
// content; nothing here changes what the graph file holds.
package tier

import (
	"time"

	"github.com/cogmem/cogmem/internal/types"
)

// Tier classifies an event by how recently it was created or accessed.
type Tier uint8

const (
	Hot Tier = iota
	Warm
	Cold
	Frozen
)

func (t Tier) String() string {
	switch t {
	case Hot:
		return "hot"
	case Warm:
		return "warm"
	case Cold:
		return "cold"
	case Frozen:
		return "frozen"
	default:
		return "unknown"
	}
}

// Thresholds bounds the age at which an event is demoted to the next
// tier down. Each field is measured from CreatedAt (or LastAccessed, once
// access tracking exists) to now.
type Thresholds struct {
	WarmAfter   time.Duration
	ColdAfter   time.Duration
	FrozenAfter time.Duration
}

// DefaultThresholds matches pkg/config's default tiers section.
var DefaultThresholds = Thresholds{
	WarmAfter:   24 * time.Hour,
	ColdAfter:   7 * 24 * time.Hour,
	FrozenAfter: 30 * 24 * time.Hour,
}

// Classify returns the tier an event belongs in given its age as of now.
func Classify(ev types.Event, now time.Time, th Thresholds) Tier {
	age := now.Sub(time.UnixMicro(ev.CreatedAt))
	switch {
	case age >= th.FrozenAfter:
		return Frozen
	case age >= th.ColdAfter:
		return Cold
	case age >= th.WarmAfter:
		return Warm
	default:
		return Hot
	}
}

// PromotionRule describes what access to an event in a given tier does to
// its placement. Cold events promote back to Warm immediately on any
// access; Frozen events are never promoted by access, and this package
// has no thaw operation (spec.md §4.J "promotion on access").
type PromotionRule struct {
	AutoPromoteCold bool
}

// DefaultPromotionRule matches the spec's "cold promotes on touch, frozen
// needs an explicit thaw" rule.
var DefaultPromotionRule = PromotionRule{AutoPromoteCold: true}

// OnAccess returns the tier an event should move to after being read,
// given its current tier. Frozen never auto-promotes.
func (r PromotionRule) OnAccess(current Tier) Tier {
	if current == Cold && r.AutoPromoteCold {
		return Warm
	}
	return current
}
