package query

import "github.com/cogmem/cogmem/internal/types"

// QualityParams bounds the thresholds a health scan applies and how many
// exemplar node ids to keep per category.
type QualityParams struct {
	LowConfidenceThreshold float64
	StaleDecayThreshold    float64
	MaxExamples            int
}

// QualityReport summarizes graph health: low-confidence events, events
// whose decay score has fallen below the stale threshold, recorded
// Contradicts edges, and Decision nodes with no outgoing CausedBy/Supports
// edge ("orphan decisions" — a decision with no recorded justification).
type QualityReport struct {
	TotalNodes          int
	LowConfidenceCount  int
	StaleDecayCount     int
	ContradictsCount    int
	OrphanDecisionCount int

	LowConfidenceExamples  []types.NodeID
	StaleDecayExamples     []types.NodeID
	OrphanDecisionExamples []types.NodeID
}

// Quality runs a full scan of the graph, tallying health signals bounded
// to MaxExamples exemplars per category (spec.md §4.E).
func (e *Engine) Quality(p QualityParams) QualityReport {
	var report QualityReport
	ids := e.g.AllNodeIDs()
	report.TotalNodes = len(ids)

	addExample := func(examples *[]types.NodeID, id types.NodeID) {
		if p.MaxExamples <= 0 || len(*examples) < p.MaxExamples {
			*examples = append(*examples, id)
		}
	}

	seenContradicts := map[[2]types.NodeID]bool{}

	for _, id := range ids {
		ev, err := e.g.GetNode(id)
		if err != nil {
			continue
		}

		if ev.Confidence < p.LowConfidenceThreshold {
			report.LowConfidenceCount++
			addExample(&report.LowConfidenceExamples, id)
		}
		if ev.DecayScore < p.StaleDecayThreshold {
			report.StaleDecayCount++
			addExample(&report.StaleDecayExamples, id)
		}

		fwd, _ := e.g.EdgesOfType(id, types.Forward, types.EdgeContradicts)
		for _, edge := range fwd {
			key := [2]types.NodeID{edge.Source, edge.Target}
			if !seenContradicts[key] {
				seenContradicts[key] = true
				report.ContradictsCount++
			}
		}

		if ev.Type != types.EventDecision {
			continue
		}
		causedBy, _ := e.g.EdgesOfType(id, types.Forward, types.EdgeCausedBy)
		supports, _ := e.g.EdgesOfType(id, types.Forward, types.EdgeSupports)
		if len(causedBy) == 0 && len(supports) == 0 {
			report.OrphanDecisionCount++
			addExample(&report.OrphanDecisionExamples, id)
		}
	}

	return report
}
