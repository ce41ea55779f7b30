package index

import "github.com/cogmem/cogmem/internal/types"

// ClusterID names a group of events whose feature vectors are mutually
// close under the similarity threshold.
type ClusterID int

// ClusterIndex performs simple online clustering of events by feature
// vector proximity: each event joins the nearest existing cluster whose
// centroid is within SimilarityThreshold cosine similarity, or starts a
// new cluster. The analogical query uses cluster membership as a cheap
// pre-filter before a full similarity scan.
type ClusterIndex struct {
	// SimilarityThreshold is the minimum cosine similarity to an existing
	// centroid for an event to join that cluster instead of starting a
	// new one.
	SimilarityThreshold float64

	centroids []centroidState
	assigned  map[types.NodeID]ClusterID
}

type centroidState struct {
	sum   []float32
	count int
}

func NewClusterIndex() *ClusterIndex {
	return &ClusterIndex{
		SimilarityThreshold: 0.85,
		assigned:            make(map[types.NodeID]ClusterID),
	}
}

func (ix *ClusterIndex) IndexEvent(ev types.Event) {
	ix.Remove(ev.ID)
	if ev.FeatureVec == nil {
		return
	}

	best := -1
	bestScore := -2.0
	for i, c := range ix.centroids {
		if c.count == 0 {
			continue
		}
		mean := meanVector(c.sum, c.count)
		score := Cosine(ev.FeatureVec, mean)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}

	if best >= 0 && bestScore >= ix.SimilarityThreshold {
		ix.addToCluster(best, ev.FeatureVec)
		ix.assigned[ev.ID] = ClusterID(best)
		return
	}

	ix.centroids = append(ix.centroids, newCentroid(ev.FeatureVec))
	ix.assigned[ev.ID] = ClusterID(len(ix.centroids) - 1)
}

func newCentroid(vec []float32) centroidState {
	sum := make([]float32, len(vec))
	copy(sum, vec)
	return centroidState{sum: sum, count: 1}
}

func (ix *ClusterIndex) addToCluster(idx int, vec []float32) {
	c := &ix.centroids[idx]
	for i, v := range vec {
		if i < len(c.sum) {
			c.sum[i] += v
		}
	}
	c.count++
}

func meanVector(sum []float32, count int) []float32 {
	out := make([]float32, len(sum))
	for i, v := range sum {
		out[i] = v / float32(count)
	}
	return out
}

// Remove drops id from its cluster. The centroid is left as-is (removing a
// single contribution from a running-mean centroid is not worth the
// bookkeeping for a best-effort clustering pre-filter); a Rebuild recomputes
// centroids exactly.
func (ix *ClusterIndex) Remove(id types.NodeID) {
	delete(ix.assigned, id)
}

func (ix *ClusterIndex) Rebuild(events []types.Event) {
	ix.centroids = nil
	ix.assigned = make(map[types.NodeID]ClusterID)
	for _, ev := range events {
		ix.IndexEvent(ev)
	}
}

// ClusterOf returns the cluster an event was assigned to, if it has a
// feature vector.
func (ix *ClusterIndex) ClusterOf(id types.NodeID) (ClusterID, bool) {
	c, ok := ix.assigned[id]
	return c, ok
}

// Members returns every node id assigned to cluster c.
func (ix *ClusterIndex) Members(c ClusterID) []types.NodeID {
	out := make([]types.NodeID, 0)
	for id, cid := range ix.assigned {
		if cid == c {
			out = append(out, id)
		}
	}
	return out
}
