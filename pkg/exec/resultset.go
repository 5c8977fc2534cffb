package exec

import (
	"sort"

	"github.com/cuemby/nexus/pkg/planner"
	"github.com/cuemby/nexus/pkg/storage"
)

// ResultSet is the tabular output of a compiled query: stable column
// order plus one []any row per output tuple. Scalar storage.PropertyValue
// results are unwrapped to plain Go values (nil, bool, int64, float64,
// string); arrays, objects, NodeRef and RelRef are kept as-is, and the API
// layer is responsible for encoding them into its wire format.
type ResultSet struct {
	Columns []string
	Rows    [][]any
	Trace   *planner.OptimizationTrace

	// RowCount is len(Rows), kept as its own field so callers that only
	// care about the count don't need to hold the rows alive.
	RowCount int

	// JoinStats carries one entry per join operator the compiled plan
	// executed, in execution order.
	JoinStats []*JoinStats
}

// Execute compiles plan and drives it to completion, collecting every
// row into a ResultSet. Column order is taken from the first row
// produced (all rows from a single Project/Aggregate share the same
// keys); an empty result falls back to no columns.
func Execute(plan *planner.Plan, ctx *Context) (*ResultSet, error) {
	op, err := Compile(plan, ctx)
	if err != nil {
		return nil, err
	}
	if err := op.Open(); err != nil {
		return nil, err
	}
	defer op.Close()

	rs := &ResultSet{Trace: &plan.Trace}
	for {
		row, err := op.Next()
		if err == ErrExhausted {
			break
		}
		if err != nil {
			return nil, err
		}
		if rs.Columns == nil {
			rs.Columns = sortedKeys(row)
		}
		values := make([]any, len(rs.Columns))
		for i, col := range rs.Columns {
			v := row[col]
			if pv, ok := v.(storage.PropertyValue); ok {
				switch pv.Kind {
				case storage.KindNull:
					v = nil
				case storage.KindBool:
					v = pv.Bool
				case storage.KindInt:
					v = pv.Int
				case storage.KindFloat:
					v = pv.Float
				case storage.KindString:
					v = pv.Str
				}
			}
			values[i] = v
		}
		rs.Rows = append(rs.Rows, values)
	}
	rs.RowCount = len(rs.Rows)
	rs.JoinStats = ctx.JoinStats
	return rs, nil
}

func sortedKeys(row Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
