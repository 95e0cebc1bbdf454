package tabletsnap

import (
	"sync"

	"github.com/polarsignals/tabletsnap/internal/rowset"
	"github.com/polarsignals/tabletsnap/internal/schemahash"
	"github.com/polarsignals/tabletsnap/internal/versiongraph"
	"github.com/polarsignals/tabletsnap/pkg/types"
)

// TabletSource is the borrowed, out-of-scope collaborator spec.md 1 calls
// the tablet manager: the thing that owns live tablets and their version
// graphs. The manager only ever borrows a TabletRef for the duration of a
// single call, the same borrow discipline frostdb's ColumnStore.DB/
// DB.Table draw between a long-lived store and its tables.
type TabletSource interface {
	GetTablet(tabletId int64, schemaHash uint32) (TabletRef, error)
}

// HeaderLock is the shared-lock capability the Rowset Selector acquires
// for the duration of selection and header copying (spec.md 4.2, 5).
// *sync.RWMutex satisfies it directly.
type HeaderLock interface {
	RLock()
	RUnlock()
}

// TabletRef is a tablet borrowed for one manager call: its header lock,
// its data directory, its rowset factory, and read accessors over its
// version graph. Concretely typed interfaces here stand in for
// TabletRef.get_header_lock/rowset_with_max_version/get_inc_rowset_by_version/
// capture_consistent_rowsets/generate_tablet_meta_copy_unlocked (spec.md 6).
type TabletRef interface {
	TabletId() int64
	SchemaHash() uint32
	DataDir() string
	HeaderLock() HeaderLock
	RowsetFactory() rowset.Factory

	// RowsetWithMaxVersion returns the visible rowset with the greatest
	// End, if any exist.
	RowsetWithMaxVersion() (types.RowsetHandle, bool)
	// IncRowsetByVersion looks up the single-delta incremental rowset
	// for version v.
	IncRowsetByVersion(v int64) (types.RowsetHandle, bool)
	// CaptureConsistentRowsets returns the shortest covering path for
	// [0, target], delegating to the tablet's version graph.
	CaptureConsistentRowsets(target int64) ([]types.RowsetHandle, error)
	// CopyHeaderLocked returns a deep copy of the live header. Callers
	// must already hold HeaderLock for read.
	CopyHeaderLocked() *types.TabletHeader
}

// InMemoryTabletSource is a fake TabletSource backing tests: tablets are
// registered explicitly and their rowsets kept in an
// internal/versiongraph.Graph, the same role a hand-rolled in-memory
// KV store plays in the teacher's own table_test.go fixtures.
type InMemoryTabletSource struct {
	mu      sync.RWMutex
	tablets map[tabletKey]*InMemoryTabletRef
	factory rowset.Factory
}

type tabletKey struct {
	tabletId   int64
	schemaHash uint32
}

// NewInMemoryTabletSource returns an empty fake tablet source using
// DefaultFactory to open/create rowset files on disk.
func NewInMemoryTabletSource() *InMemoryTabletSource {
	return &InMemoryTabletSource{
		tablets: make(map[tabletKey]*InMemoryTabletRef),
		factory: rowset.DefaultFactory{},
	}
}

// AddTablet registers a tablet rooted at dataDir and returns a handle
// tests can use to populate its visible/incremental rowset lists.
func (s *InMemoryTabletSource) AddTablet(tabletId int64, schemaHash uint32, dataDir string) *InMemoryTabletRef {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := &InMemoryTabletRef{
		tabletId:   tabletId,
		schemaHash: schemaHash,
		dataDir:    dataDir,
		lock:       &sync.RWMutex{},
		graph:      versiongraph.New(),
		factory:    s.factory,
	}
	s.tablets[tabletKey{tabletId, schemaHash}] = ref
	return ref
}

func (s *InMemoryTabletSource) GetTablet(tabletId int64, schemaHash uint32) (TabletRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, ok := s.tablets[tabletKey{tabletId, schemaHash}]
	if !ok {
		return nil, types.Newf("GetTablet", types.KindTabletNotFound, "tablet %d/%d not found", tabletId, schemaHash)
	}
	return ref, nil
}

// InMemoryTabletRef is the fake TabletRef implementation backing
// InMemoryTabletSource.
type InMemoryTabletRef struct {
	tabletId   int64
	schemaHash uint32
	dataDir    string
	lock       *sync.RWMutex
	factory    rowset.Factory

	mu         sync.Mutex
	graph      *versiongraph.Graph
	schemaDesc []byte
	alterTask  *types.AlterTaskInfo
}

func (r *InMemoryTabletRef) TabletId() int64               { return r.tabletId }
func (r *InMemoryTabletRef) SchemaHash() uint32             { return r.schemaHash }
func (r *InMemoryTabletRef) DataDir() string                { return r.dataDir }
func (r *InMemoryTabletRef) HeaderLock() HeaderLock         { return r.lock }
func (r *InMemoryTabletRef) RowsetFactory() rowset.Factory  { return r.factory }

// AddVisible registers a visible rowset in the tablet's version chain.
func (r *InMemoryTabletRef) AddVisible(h types.RowsetHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graph.AddVisible(h)
}

// AddIncremental registers a single-delta incremental rowset.
func (r *InMemoryTabletRef) AddIncremental(h types.RowsetHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graph.AddIncremental(h)
}

// SetSchemaDesc sets the opaque schema descriptor carried in headers. It
// does not touch the tablet's schema_hash -- that is the registry key
// callers looked the tablet up by and must stay caller-controlled.
func (r *InMemoryTabletRef) SetSchemaDesc(b []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemaDesc = append([]byte(nil), b...)
}

// AddTabletWithSchema is a test convenience over AddTablet that derives
// the tablet's registry schema_hash from its descriptor bytes via
// schemahash.Compute, instead of requiring the caller to pick an
// arbitrary value by hand.
func (s *InMemoryTabletSource) AddTabletWithSchema(tabletId int64, schemaDesc []byte, dataDir string) *InMemoryTabletRef {
	hash := schemahash.Compute(schemaDesc)
	ref := s.AddTablet(tabletId, hash, dataDir)
	ref.SetSchemaDesc(schemaDesc)
	return ref
}

// SetAlterTask sets the in-flight alter-task bookkeeping the Materialiser
// must drop from any snapshotted header copy.
func (r *InMemoryTabletRef) SetAlterTask(a *types.AlterTaskInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alterTask = a
}

func (r *InMemoryTabletRef) RowsetWithMaxVersion() (types.RowsetHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	end, ok := r.graph.MaxVisibleEnd()
	if !ok {
		return types.RowsetHandle{}, false
	}
	for _, h := range r.visibleLocked() {
		if h.Version.End == end {
			return h, true
		}
	}
	return types.RowsetHandle{}, false
}

func (r *InMemoryTabletRef) IncRowsetByVersion(v int64) (types.RowsetHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.graph.IncrementalByVersion(v)
}

func (r *InMemoryTabletRef) CaptureConsistentRowsets(target int64) ([]types.RowsetHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.graph.CoveringPath(target)
}

func (r *InMemoryTabletRef) CopyHeaderLocked() *types.TabletHeader {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := &types.TabletHeader{
		TabletId:   r.tabletId,
		SchemaHash: r.schemaHash,
		SchemaDesc: append([]byte(nil), r.schemaDesc...),
		Visible:    r.visibleLocked(),
		AlterTask:  r.alterTask,
	}
	return h.Clone()
}

// visibleLocked must be called with r.mu held.
func (r *InMemoryTabletRef) visibleLocked() []types.RowsetHandle {
	var out []types.RowsetHandle
	if end, ok := r.graph.MaxVisibleEnd(); ok {
		path, err := r.graph.CoveringPath(end)
		if err == nil {
			out = path
		}
	}
	return out
}
