package planner

import "github.com/cuemby/nexus/pkg/config"

// CostModel holds the scalar weights the optimizer applies to operator
// shapes; defaults match the documented constants.
type CostModel struct {
	SeqScan    float64
	IndexScan  float64
	RandomPage float64
	CPUTuple   float64
	JoinTuple  float64

	EqualitySelectivity float64
	RangeSelectivity    float64
}

// DefaultCostModel returns the documented default cost constants.
func DefaultCostModel() CostModel {
	return CostModel{
		SeqScan:             1.0,
		IndexScan:           0.1,
		RandomPage:          4.0,
		CPUTuple:            0.01,
		JoinTuple:           0.1,
		EqualitySelectivity: 0.1,
		RangeSelectivity:    0.33,
	}
}

// FromConfig builds a CostModel from pkg/config's CostConfig, falling
// back to the documented defaults for any zero-valued field (a YAML file
// that doesn't mention a constant shouldn't silently zero it out).
func FromConfig(cfg config.CostConfig) CostModel {
	d := DefaultCostModel()
	if cfg.SeqScan > 0 {
		d.SeqScan = cfg.SeqScan
	}
	if cfg.IndexScan > 0 {
		d.IndexScan = cfg.IndexScan
	}
	if cfg.RandomPage > 0 {
		d.RandomPage = cfg.RandomPage
	}
	if cfg.CPUTuple > 0 {
		d.CPUTuple = cfg.CPUTuple
	}
	if cfg.Join > 0 {
		d.JoinTuple = cfg.Join
	}
	if cfg.EqualitySelectivity > 0 {
		d.EqualitySelectivity = cfg.EqualitySelectivity
	}
	if cfg.RangeSelectivity > 0 {
		d.RangeSelectivity = cfg.RangeSelectivity
	}
	return d
}

// seqScanCost estimates the cost of a full scan of n rows.
func (c CostModel) seqScanCost(n float64) float64 { return c.SeqScan*n + c.CPUTuple*n }

// indexScanCost estimates the cost of an index lookup returning n rows.
func (c CostModel) indexScanCost(n float64) float64 {
	return c.IndexScan*n + c.RandomPage + c.CPUTuple*n
}

// joinCost estimates the cost of joining inputs of the given cardinality.
func (c CostModel) joinCost(leftCard, rightCard float64) float64 {
	return c.JoinTuple * (leftCard + rightCard)
}
