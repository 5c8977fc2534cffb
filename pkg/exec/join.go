package exec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cuemby/nexus/pkg/planner"
)

// NewJoinOperator builds the physical join operator the optimizer chose
// for node.Algorithm.
func NewJoinOperator(node *planner.JoinNode, left, right Operator, ctx *Context) (Operator, error) {
	switch node.Algorithm {
	case planner.JoinHash:
		return &HashJoinOperator{node: node, left: left, right: right, ctx: ctx}, nil
	case planner.JoinMerge:
		return &MergeJoinOperator{node: node, left: left, right: right, ctx: ctx}, nil
	case planner.JoinNestedLoop:
		return &NestedLoopJoinOperator{node: node, left: left, right: right, ctx: ctx}, nil
	default:
		return nil, fmt.Errorf("exec: unknown join algorithm %q", node.Algorithm)
	}
}

func joinKey(row Row, vars []string) string {
	var b strings.Builder
	for _, v := range vars {
		bound := row[v]
		switch t := bound.(type) {
		case NodeRef:
			fmt.Fprintf(&b, "n%d|", t.ID)
		case RelRef:
			fmt.Fprintf(&b, "r%d|", t.ID)
		default:
			fmt.Fprintf(&b, "v%v|", AsPropertyValue(bound))
		}
	}
	return b.String()
}

func mergeRows(left, right Row) Row {
	out := left.Clone()
	for k, v := range right {
		out[k] = v
	}
	return out
}

// JoinStats reports the runtime shape of one join operator, filled in at
// Open time (table/bucket geometry) and updated during Next (probe-side
// rejections). Every join operator (nested-loop, hash, merge) appends one
// of these to Context.JoinStats when opened, so a result always carries
// the algorithm the optimizer actually chose plus, for hash joins, the
// detail needed to judge whether the Bloom pre-filter paid for itself.
type JoinStats struct {
	Algorithm       string
	Buckets         int
	TotalEntries    int
	MaxChain        int
	LoadFactor      float64
	BloomEnabled    bool
	BloomFPEstimate float64
	ProbeRejections int
}

// NestedLoopJoinOperator re-scans right for every left row; chosen by
// the optimizer when both sides are small.
type NestedLoopJoinOperator struct {
	node  *planner.JoinNode
	left  Operator
	right Operator
	ctx   *Context

	rightRows []Row
	curLeft   Row
	haveLeft  bool
	rpos      int

	stats *JoinStats
}

func (j *NestedLoopJoinOperator) Open() error {
	if err := j.left.Open(); err != nil {
		return err
	}
	if err := j.right.Open(); err != nil {
		return err
	}
	for {
		row, err := j.right.Next()
		if err == ErrExhausted {
			break
		}
		if err != nil {
			return err
		}
		j.rightRows = append(j.rightRows, row)
	}
	j.stats = &JoinStats{Algorithm: string(planner.JoinNestedLoop), TotalEntries: len(j.rightRows)}
	if j.ctx != nil {
		j.ctx.JoinStats = append(j.ctx.JoinStats, j.stats)
	}
	return nil
}

func (j *NestedLoopJoinOperator) Next() (Row, error) {
	for {
		if !j.haveLeft {
			row, err := j.left.Next()
			if err != nil {
				return nil, err
			}
			j.curLeft, j.haveLeft, j.rpos = row, true, 0
		}
		leftKey := joinKey(j.curLeft, j.node.JoinVars)
		for j.rpos < len(j.rightRows) {
			rr := j.rightRows[j.rpos]
			j.rpos++
			if joinKey(rr, j.node.JoinVars) == leftKey {
				return mergeRows(j.curLeft, rr), nil
			}
		}
		j.haveLeft = false
	}
}

func (j *NestedLoopJoinOperator) Close() error {
	if err := j.left.Close(); err != nil {
		return err
	}
	return j.right.Close()
}

// HashJoinOperator builds a hash table over the right side and probes
// with left rows, consulting a Bloom filter first when UseBloom is set
// to skip the map lookup for rows that certainly don't match.
type HashJoinOperator struct {
	node  *planner.JoinNode
	left  Operator
	right Operator
	ctx   *Context

	table map[string][]Row
	bloom *bloomFilter

	curMatches []Row
	mpos       int

	stats *JoinStats
}

func (j *HashJoinOperator) Open() error {
	if err := j.left.Open(); err != nil {
		return err
	}
	if err := j.right.Open(); err != nil {
		return err
	}
	j.table = make(map[string][]Row)
	var rightRows []Row
	for {
		row, err := j.right.Next()
		if err == ErrExhausted {
			break
		}
		if err != nil {
			return err
		}
		key := joinKey(row, j.node.JoinVars)
		j.table[key] = append(j.table[key], row)
		rightRows = append(rightRows, row)
	}

	j.stats = &JoinStats{
		Algorithm:    string(planner.JoinHash),
		Buckets:      len(j.table),
		TotalEntries: len(rightRows),
	}
	if len(j.table) > 0 {
		j.stats.LoadFactor = float64(len(rightRows)) / float64(len(j.table))
	}
	for _, rows := range j.table {
		if len(rows) > j.stats.MaxChain {
			j.stats.MaxChain = len(rows)
		}
	}

	if j.node.UseBloom {
		j.bloom = newBloomFilter(len(rightRows), 0.01)
		for _, row := range rightRows {
			j.bloom.add([]byte(joinKey(row, j.node.JoinVars)))
		}
		j.stats.BloomEnabled = true
		j.stats.BloomFPEstimate = j.bloom.estimatedFalsePositiveRate(len(rightRows))
	}

	if j.ctx != nil {
		j.ctx.JoinStats = append(j.ctx.JoinStats, j.stats)
	}
	return nil
}

func (j *HashJoinOperator) Next() (Row, error) {
	for {
		if j.mpos < len(j.curMatches) {
			m := j.curMatches[j.mpos]
			j.mpos++
			return m, nil
		}
		leftRow, err := j.left.Next()
		if err != nil {
			return nil, err
		}
		key := joinKey(leftRow, j.node.JoinVars)
		if j.bloom != nil && !j.bloom.mayContain([]byte(key)) {
			j.stats.ProbeRejections++
			j.curMatches, j.mpos = nil, 0
			continue
		}
		matches := j.table[key]
		if len(matches) == 0 {
			j.curMatches, j.mpos = nil, 0
			continue
		}
		out := make([]Row, len(matches))
		for i, rr := range matches {
			out[i] = mergeRows(leftRow, rr)
		}
		j.curMatches, j.mpos = out, 0
	}
}

func (j *HashJoinOperator) Close() error {
	if err := j.left.Close(); err != nil {
		return err
	}
	return j.right.Close()
}

// MergeJoinOperator sorts both sides by join key and walks them in
// lockstep; chosen when the optimizer believes both inputs are already
// ordered and comparably sized.
type MergeJoinOperator struct {
	node  *planner.JoinNode
	left  Operator
	right Operator
	ctx   *Context

	leftRows  []Row
	rightRows []Row
	li, ri    int
	matches   []Row
	mpos      int

	stats *JoinStats
}

func (j *MergeJoinOperator) Open() error {
	if err := j.left.Open(); err != nil {
		return err
	}
	if err := j.right.Open(); err != nil {
		return err
	}
	j.leftRows = drain(j.left)
	j.rightRows = drain(j.right)
	sortByJoinKey(j.leftRows, j.node.JoinVars)
	sortByJoinKey(j.rightRows, j.node.JoinVars)

	j.stats = &JoinStats{
		Algorithm:    string(planner.JoinMerge),
		TotalEntries: len(j.leftRows) + len(j.rightRows),
	}
	if j.ctx != nil {
		j.ctx.JoinStats = append(j.ctx.JoinStats, j.stats)
	}
	return nil
}

func drain(op Operator) []Row {
	var out []Row
	for {
		row, err := op.Next()
		if err != nil {
			break
		}
		out = append(out, row)
	}
	return out
}

func sortByJoinKey(rows []Row, vars []string) {
	sort.SliceStable(rows, func(i, j int) bool {
		return joinKey(rows[i], vars) < joinKey(rows[j], vars)
	})
}

func (j *MergeJoinOperator) Next() (Row, error) {
	for {
		if j.mpos < len(j.matches) {
			m := j.matches[j.mpos]
			j.mpos++
			return m, nil
		}
		if j.li >= len(j.leftRows) || j.ri >= len(j.rightRows) {
			return nil, ErrExhausted
		}
		lk := joinKey(j.leftRows[j.li], j.node.JoinVars)
		rk := joinKey(j.rightRows[j.ri], j.node.JoinVars)
		switch {
		case lk < rk:
			j.li++
		case lk > rk:
			j.ri++
		default:
			// gather every right row sharing this key before advancing
			var group []Row
			start := j.ri
			for j.ri < len(j.rightRows) && joinKey(j.rightRows[j.ri], j.node.JoinVars) == rk {
				group = append(group, j.rightRows[j.ri])
				j.ri++
			}
			var out []Row
			for k := j.li; k < len(j.leftRows) && joinKey(j.leftRows[k], j.node.JoinVars) == lk; k++ {
				for _, rr := range group {
					out = append(out, mergeRows(j.leftRows[k], rr))
				}
			}
			j.ri = start
			for j.ri < len(j.rightRows) && joinKey(j.rightRows[j.ri], j.node.JoinVars) == rk {
				j.ri++
			}
			for j.li < len(j.leftRows) && joinKey(j.leftRows[j.li], j.node.JoinVars) == lk {
				j.li++
			}
			j.matches, j.mpos = out, 0
		}
	}
}

func (j *MergeJoinOperator) Close() error {
	if err := j.left.Close(); err != nil {
		return err
	}
	return j.right.Close()
}
