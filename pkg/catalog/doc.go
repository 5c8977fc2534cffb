// Package catalog is the first layer in Nexus's dependency order:
// every other subsystem references labels, relationship types and property
// keys by the small integer IDs this package hands out, never by name, so
// NodeRecord/RelationshipRecord stay fixed-width and comparisons stay
// branch-free integer comparisons instead of string hashing.
package catalog
