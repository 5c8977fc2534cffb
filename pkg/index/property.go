package index

import (
	"sync"

	"github.com/google/btree"

	"github.com/cuemby/nexus/pkg/storage"
)

// propertyIndexKey scopes a property index to one (LabelId, KeyId) pair,
// matching the planner's IndexScan(indexName, label) candidate.
type propertyIndexKey struct {
	LabelID uint32
	KeyID   uint32
}

// item is one entry in a per-(label,key) sorted tree: an orderable
// projection of a property value plus the owning node, used as the tree's
// comparison key so range scans come back already sorted.
type item struct {
	isNum  bool
	num    float64
	str    string
	nodeID uint64
}

func lessItem(a, b item) bool {
	if a.isNum != b.isNum {
		// Numeric values sort before strings; arbitrary but total and
		// deterministic, which is all an index ordering needs to be.
		return a.isNum
	}
	if a.isNum {
		if a.num != b.num {
			return a.num < b.num
		}
	} else if a.str != b.str {
		return a.str < b.str
	}
	return a.nodeID < b.nodeID
}

// toItem projects a property value onto the orderable key space. Values
// that aren't scalar (arrays, objects, null) aren't indexable and toItem's
// ok return is false.
func toItem(v storage.PropertyValue, nodeID uint64) (item, bool) {
	switch v.Kind {
	case storage.KindInt:
		return item{isNum: true, num: float64(v.Int), nodeID: nodeID}, true
	case storage.KindFloat:
		return item{isNum: true, num: v.Float, nodeID: nodeID}, true
	case storage.KindBool:
		b := 0.0
		if v.Bool {
			b = 1.0
		}
		return item{isNum: true, num: b, nodeID: nodeID}, true
	case storage.KindString:
		return item{isNum: false, str: v.Str, nodeID: nodeID}, true
	default:
		return item{}, false
	}
}

// PropertyIndex is a sorted secondary index over one property key per
// label, backed by a B-tree so range scans feed the planner's merge-join
// candidates.
type PropertyIndex struct {
	mu     sync.RWMutex
	trees  map[propertyIndexKey]*btree.BTreeG[item]
	degree int
}

// NewPropertyIndex builds an empty property index. degree is the B-tree's
// branching factor; 32 is a reasonable default for in-memory trees.
func NewPropertyIndex(degree int) *PropertyIndex {
	if degree < 2 {
		degree = 32
	}
	return &PropertyIndex{trees: make(map[propertyIndexKey]*btree.BTreeG[item]), degree: degree}
}

func (pi *PropertyIndex) treeLocked(key propertyIndexKey) *btree.BTreeG[item] {
	t, ok := pi.trees[key]
	if !ok {
		t = btree.NewG(pi.degree, lessItem)
		pi.trees[key] = t
	}
	return t
}

// CreateIndex registers an empty tree for (labelID, keyID) so Has reports
// true immediately after a schema CREATE INDEX statement, before any
// matching node has been indexed.
func (pi *PropertyIndex) CreateIndex(labelID, keyID uint32) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	pi.treeLocked(propertyIndexKey{labelID, keyID})
}

// DropIndex removes the (labelID, keyID) index and all its entries.
func (pi *PropertyIndex) DropIndex(labelID, keyID uint32) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	delete(pi.trees, propertyIndexKey{labelID, keyID})
}

// Add indexes value for (labelID, keyID, nodeID). Non-scalar values are
// silently not indexed — they have no total order and callers should fall
// back to a storage scan for them.
func (pi *PropertyIndex) Add(labelID, keyID uint32, value storage.PropertyValue, nodeID uint64) {
	it, ok := toItem(value, nodeID)
	if !ok {
		return
	}
	pi.mu.Lock()
	defer pi.mu.Unlock()
	pi.treeLocked(propertyIndexKey{labelID, keyID}).ReplaceOrInsert(it)
}

// Remove deletes the (labelID, keyID, nodeID) entry previously indexed
// under value.
func (pi *PropertyIndex) Remove(labelID, keyID uint32, value storage.PropertyValue, nodeID uint64) {
	it, ok := toItem(value, nodeID)
	if !ok {
		return
	}
	pi.mu.Lock()
	defer pi.mu.Unlock()
	key := propertyIndexKey{labelID, keyID}
	t, ok := pi.trees[key]
	if !ok {
		return
	}
	t.Delete(it)
	if t.Len() == 0 {
		delete(pi.trees, key)
	}
}

// Equals returns every NodeId whose (labelID, keyID) property equals value.
func (pi *PropertyIndex) Equals(labelID, keyID uint32, value storage.PropertyValue) []uint64 {
	probe, ok := toItem(value, 0)
	if !ok {
		return nil
	}
	pi.mu.RLock()
	defer pi.mu.RUnlock()
	t, ok := pi.trees[propertyIndexKey{labelID, keyID}]
	if !ok {
		return nil
	}
	var out []uint64
	t.AscendGreaterOrEqual(probe, func(it item) bool {
		if it.isNum != probe.isNum {
			return false
		}
		if it.isNum && it.num != probe.num {
			return false
		}
		if !it.isNum && it.str != probe.str {
			return false
		}
		out = append(out, it.nodeID)
		return true
	})
	return out
}

// Range returns every NodeId whose (labelID, keyID) property falls within
// [min, max], ascending. A nil min or max leaves that side unbounded.
func (pi *PropertyIndex) Range(labelID, keyID uint32, min, max *storage.PropertyValue) []uint64 {
	pi.mu.RLock()
	defer pi.mu.RUnlock()
	t, ok := pi.trees[propertyIndexKey{labelID, keyID}]
	if !ok {
		return nil
	}

	var upperOK func(item) bool
	if max != nil {
		upperItem, ok := toItem(*max, ^uint64(0))
		if !ok {
			return nil
		}
		upperOK = func(it item) bool { return !lessItem(upperItem, it) }
	} else {
		upperOK = func(item) bool { return true }
	}

	var out []uint64
	visit := func(it item) bool {
		if !upperOK(it) {
			return false
		}
		out = append(out, it.nodeID)
		return true
	}

	if min != nil {
		lowerItem, ok := toItem(*min, 0)
		if !ok {
			return nil
		}
		t.AscendGreaterOrEqual(lowerItem, visit)
	} else {
		t.Ascend(visit)
	}
	return out
}

// Has reports whether a (labelID, keyID) index has been created, even if
// no values are currently indexed under it.
func (pi *PropertyIndex) Has(labelID, keyID uint32) bool {
	pi.mu.RLock()
	defer pi.mu.RUnlock()
	_, ok := pi.trees[propertyIndexKey{labelID, keyID}]
	return ok
}

// Len returns the number of entries indexed for (labelID, keyID), used by
// the cost model for selectivity estimates.
func (pi *PropertyIndex) Len(labelID, keyID uint32) int {
	pi.mu.RLock()
	defer pi.mu.RUnlock()
	t, ok := pi.trees[propertyIndexKey{labelID, keyID}]
	if !ok {
		return 0
	}
	return t.Len()
}
