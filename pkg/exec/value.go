package exec

import (
	"fmt"

	"github.com/cuemby/nexus/pkg/storage"
)

// NodeRef is a bound node variable: its id plus the properties already
// fetched for it, so downstream operators never re-read storage.
type NodeRef struct {
	ID     uint64
	Labels []uint32
	Props  storage.PropertyMap
}

// RelRef is a bound relationship variable.
type RelRef struct {
	ID         uint64
	TypeID     uint32
	Source     uint64
	Target     uint64
	Props      storage.PropertyMap
}

// Row is one bound tuple flowing through the operator tree: variable name
// to whatever it's bound to (NodeRef, RelRef, storage.PropertyValue, or a
// []Row for a collected list).
type Row map[string]any

// Clone makes a shallow copy of r so an operator can extend bindings
// without mutating a row another branch of the plan still holds.
func (r Row) Clone() Row {
	out := make(Row, len(r)+2)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// AsPropertyValue coerces v (typically the result of evaluating an Expr)
// into a storage.PropertyValue for comparison/ordering/projection.
func AsPropertyValue(v any) storage.PropertyValue {
	switch t := v.(type) {
	case storage.PropertyValue:
		return t
	case nil:
		return storage.NullValue()
	case bool:
		return storage.BoolValue(t)
	case int64:
		return storage.IntValue(t)
	case int:
		return storage.IntValue(int64(t))
	case float64:
		return storage.FloatValue(t)
	case string:
		return storage.StringValue(t)
	case NodeRef:
		return storage.IntValue(int64(t.ID))
	case RelRef:
		return storage.IntValue(int64(t.ID))
	case []any:
		arr := make([]storage.PropertyValue, len(t))
		for i, e := range t {
			arr[i] = AsPropertyValue(e)
		}
		return storage.ArrayValue(arr)
	default:
		return storage.StringValue(fmt.Sprintf("%v", t))
	}
}
