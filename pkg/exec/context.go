package exec

import (
	"github.com/cuemby/nexus/pkg/catalog"
	"github.com/cuemby/nexus/pkg/index"
	"github.com/cuemby/nexus/pkg/storage"
)

// maxUnboundedHops caps a variable-length relationship pattern with no
// declared upper bound (*1.. or *), since an unbounded BFS over a cyclic
// graph never terminates on its own.
const maxUnboundedHops = 15

// Context bundles the storage and index handles operators need to resolve
// a plan against live data, plus the epoch a read is pinned to.
type Context struct {
	Storage   *storage.GraphStorage
	Catalog   *catalog.Catalog
	Labels    *index.LabelIndex
	Props     *index.PropertyIndex
	FullText  *index.FullTextIndex
	Vectors   map[uint32]*index.VectorIndex // keyed by KeyId, one per vector property
	Epoch     uint64
	Params    map[string]any

	// JoinStats accumulates one entry per join operator opened while
	// executing a plan against this Context, in the order each join is
	// opened. Execute copies it onto the resulting ResultSet.
	JoinStats []*JoinStats
}

func (c *Context) vectorIndexFor(keyID uint32) *index.VectorIndex {
	if c.Vectors == nil {
		return nil
	}
	return c.Vectors[keyID]
}
