// Package pathalloc computes unique, time-stamped snapshot directory
// paths. It owns the process-wide monotonic sequence counter described in
// spec.md 4.1, mirroring the way frostdb's GranuleMetadata keeps its
// cardinality/least-row counters in a go.uber.org/atomic field rather than
// behind sync/atomic's lower-level API.
package pathalloc

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/atomic"
)

// Allocator computes snapshot directory paths of the form
// <dataRoot>/snapshot/<YYYYMMDDhhmmss>.<seq>.<timeoutSeconds>.
//
// It does not create the directory -- only the path. Uniqueness within a
// process is guaranteed by the monotonically increasing sequence; two
// Allocate calls landing in the same wall-clock second still get distinct
// paths.
type Allocator struct {
	seq *atomic.Uint64
}

// New returns an Allocator with its sequence counter starting at zero.
func New() *Allocator {
	return &Allocator{seq: atomic.NewUint64(0)}
}

// clockNow is overridable in tests so path collisions across runs can be
// exercised deterministically.
var clockNow = time.Now

// Allocate returns a fresh snapshot directory path under dataRoot,
// reserving the next sequence number.
func (a *Allocator) Allocate(dataRoot string, timeoutSeconds int64) string {
	seq := a.seq.Inc()
	ts := clockNow().UTC().Format("20060102150405")
	name := fmt.Sprintf("%s.%d.%d", ts, seq, timeoutSeconds)
	return filepath.Join(dataRoot, "snapshot", name)
}
