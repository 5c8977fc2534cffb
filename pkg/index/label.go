package index

import "sync"

// LabelIndex maps a LabelId to the exact set of NodeIds carrying that
// label. Scans are deterministic: GetNodesWithLabel always returns the
// same set for the same storage state, never a probabilistic approximation.
//
// This satisfies storage.LabelIndex so a *LabelIndex can be handed to
// storage.Open via storage.WithLabelIndex.
type LabelIndex struct {
	mu     sync.RWMutex
	byNode map[uint32]map[uint64]struct{}
}

// NewLabelIndex builds an empty label index.
func NewLabelIndex() *LabelIndex {
	return &LabelIndex{byNode: make(map[uint32]map[uint64]struct{})}
}

// AddNode records that nodeID carries labelID.
func (li *LabelIndex) AddNode(labelID uint32, nodeID uint64) {
	li.mu.Lock()
	defer li.mu.Unlock()
	set, ok := li.byNode[labelID]
	if !ok {
		set = make(map[uint64]struct{})
		li.byNode[labelID] = set
	}
	set[nodeID] = struct{}{}
}

// RemoveNode removes the (labelID, nodeID) association.
func (li *LabelIndex) RemoveNode(labelID uint32, nodeID uint64) {
	li.mu.Lock()
	defer li.mu.Unlock()
	set, ok := li.byNode[labelID]
	if !ok {
		return
	}
	delete(set, nodeID)
	if len(set) == 0 {
		delete(li.byNode, labelID)
	}
}

// GetNodesWithLabel returns every NodeId currently carrying labelID.
func (li *LabelIndex) GetNodesWithLabel(labelID uint32) []uint64 {
	li.mu.RLock()
	defer li.mu.RUnlock()
	set, ok := li.byNode[labelID]
	if !ok {
		return nil
	}
	out := make([]uint64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Count returns the number of nodes carrying labelID, for the cost model's
// cardinality estimates.
func (li *LabelIndex) Count(labelID uint32) int {
	li.mu.RLock()
	defer li.mu.RUnlock()
	return len(li.byNode[labelID])
}

// HasLabel reports whether nodeID carries labelID, without materializing
// the whole set.
func (li *LabelIndex) HasLabel(labelID uint32, nodeID uint64) bool {
	li.mu.RLock()
	defer li.mu.RUnlock()
	set, ok := li.byNode[labelID]
	if !ok {
		return false
	}
	_, present := set[nodeID]
	return present
}
