package planner

// Resolver is the subset of pkg/catalog's Catalog the planner needs to
// turn label/type/key names into interned IDs. catalog.Catalog satisfies
// this directly.
type Resolver interface {
	GetOrCreateLabel(name string) (uint32, error)
	GetOrCreateType(name string) (uint32, error)
	GetOrCreateKey(name string) (uint32, error)
	GetLabelID(name string) (uint32, bool)
	GetTypeID(name string) (uint32, bool)
	GetKeyID(name string) (uint32, bool)
}
