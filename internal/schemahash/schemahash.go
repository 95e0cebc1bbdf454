// Package schemahash computes the 32-bit schema-descriptor hash carried
// on TabletRef/RowsetHandle as schema_hash (spec.md 3). A real schema
// registry derives this from a canonical schema encoding; here it is a
// direct hash of the opaque descriptor bytes using go-metro, the
// fast non-cryptographic hash already in this corpus's dependency graph.
package schemahash

import "github.com/dgryski/go-metro"

// Compute returns the 32-bit schema hash for desc.
func Compute(desc []byte) uint32 {
	return uint32(metro.Hash64(desc, 0))
}
