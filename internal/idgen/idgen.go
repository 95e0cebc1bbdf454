// Package idgen implements the storage-engine's next_rowset_id()
// collaborator (spec.md 6): process-wide, atomic allocation of globally
// unique RowsetIds. A real deployment's generator would be a singleton
// living in the storage engine; here it is an explicit, injectable value
// following spec.md 9's "remove hidden global state" redesign note.
package idgen

import (
	"crypto/rand"
	"io"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/polarsignals/tabletsnap/pkg/types"
)

// Generator hands out fresh, monotonically increasing RowsetIds. It
// wraps ulid's monotonic entropy source behind a mutex, the same shared,
// serialized-allocation role frostdb's granule split path plays when
// minting new granule ids under its own lock.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// New returns a Generator seeded from crypto/rand, wrapped in a
// monotonic reader so ids generated within the same millisecond still
// sort strictly increasing.
func New() *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Next allocates a new, never-before-seen RowsetId.
func (g *Generator) Next() (types.RowsetId, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Now(), g.entropy)
	if err != nil {
		return types.RowsetId{}, err
	}
	return types.RowsetId(id), nil
}
