package index

import (
	"errors"
	"math"
	"sort"
	"sync"
)

// DistanceMetric selects how vector distance is computed.
type DistanceMetric string

const (
	MetricCosine DistanceMetric = "cosine"
	MetricL2     DistanceMetric = "l2"
)

// ErrDimensionMismatch is returned when a vector's length doesn't match
// the index's fixed dimensionality D.
var ErrDimensionMismatch = errors.New("index: vector dimensionality mismatch")

// VectorIndex is a flat (brute-force) KNN index: every search scans every
// stored vector and keeps the k nearest. No ANN/HNSW library exists
// anywhere in the dependency set this engine draws on, so
// recall is exact rather than approximate — a conservative but correct
// choice for the data sizes a single-process embedded engine targets.
type VectorIndex struct {
	mu      sync.RWMutex
	dim     int
	metric  DistanceMetric
	vectors map[uint64]vecEntry
}

type vecEntry struct {
	LabelID uint32
	Vector  []float32
}

// NewVectorIndex builds an empty index fixed to dimensionality dim.
func NewVectorIndex(dim int, metric DistanceMetric) *VectorIndex {
	if metric == "" {
		metric = MetricCosine
	}
	return &VectorIndex{dim: dim, metric: metric, vectors: make(map[uint64]vecEntry)}
}

// AddVector indexes vector under nodeID, tagged with labelID so candidate
// sets can be scoped by label.
func (vi *VectorIndex) AddVector(nodeID uint64, labelID uint32, vector []float32) error {
	if len(vector) != vi.dim {
		return ErrDimensionMismatch
	}
	cp := append([]float32(nil), vector...)
	vi.mu.Lock()
	defer vi.mu.Unlock()
	vi.vectors[nodeID] = vecEntry{LabelID: labelID, Vector: cp}
	return nil
}

// RemoveVector deletes nodeID's vector.
func (vi *VectorIndex) RemoveVector(nodeID uint64) {
	vi.mu.Lock()
	defer vi.mu.Unlock()
	delete(vi.vectors, nodeID)
}

// Neighbor is one KNN search hit, ordered by ascending distance.
type Neighbor struct {
	NodeID   uint64
	Distance float64
}

// Search returns the k nearest vectors to query. If candidates is
// non-nil, the scan is restricted to that node set. KnnOperator passes
// nil, so a KNN query searches every vector in the index regardless of
// label.
func (vi *VectorIndex) Search(query []float32, k int, candidates map[uint64]struct{}) ([]Neighbor, error) {
	if len(query) != vi.dim {
		return nil, ErrDimensionMismatch
	}
	vi.mu.RLock()
	defer vi.mu.RUnlock()

	results := make([]Neighbor, 0, len(vi.vectors))
	for id, e := range vi.vectors {
		if candidates != nil {
			if _, ok := candidates[id]; !ok {
				continue
			}
		}
		results = append(results, Neighbor{NodeID: id, Distance: vi.distance(query, e.Vector)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (vi *VectorIndex) distance(a, b []float32) float64 {
	switch vi.metric {
	case MetricL2:
		return l2Distance(a, b)
	default:
		return cosineDistance(a, b)
	}
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// cosineDistance returns 1 - cosine_similarity, so 0 means identical
// direction and larger means more dissimilar — consistent with L2's
// "smaller is closer" ordering.
func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// Len returns the number of vectors currently indexed.
func (vi *VectorIndex) Len() int {
	vi.mu.RLock()
	defer vi.mu.RUnlock()
	return len(vi.vectors)
}
