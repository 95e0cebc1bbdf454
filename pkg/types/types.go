// Package types holds the data model shared by every layer of the
// snapshot manager: the root package and its internal/* collaborators.
// Keeping it free of imports from the rest of this module (its only
// third-party import is ulid) avoids import cycles, the same role
// pkg/types plays for internal/snapshot in a sibling recovery engine.
package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// Version is a closed integer interval labelling the contiguous range of
// transactions a rowset covers. Start == End is a single delta.
type Version struct {
	Start int64
	End   int64
}

func (v Version) String() string { return fmt.Sprintf("[%d,%d]", v.Start, v.End) }

// IsSingleDelta reports whether v covers exactly one transaction.
func (v Version) IsSingleDelta() bool { return v.Start == v.End }

// RowsetId is an opaque, globally unique rowset identity backed by a
// ULID: time-sortable, 128 bits, safe to generate without coordination.
type RowsetId ulid.ULID

func (id RowsetId) String() string { return ulid.ULID(id).String() }

func (id RowsetId) IsZero() bool { return id == RowsetId{} }

// RowsetType distinguishes the two physical layouts a rowset's files can
// be stored in.
type RowsetType int

const (
	RowsetLegacy RowsetType = iota
	RowsetModern
)

func (t RowsetType) String() string {
	if t == RowsetModern {
		return "modern"
	}
	return "legacy"
}

// RowsetState mirrors the lifecycle a RowsetHandle can be published
// under. The Rowset Selector does not filter on it.
type RowsetState int

const (
	RowsetVisible RowsetState = iota
	RowsetCompacting
)

// SnapshotFormat is the on-wire format a snapshot is produced in.
type SnapshotFormat int

const (
	SnapshotFormatUnspecified SnapshotFormat = iota
	SnapshotV1
	SnapshotV2
)

func (f SnapshotFormat) String() string {
	switch f {
	case SnapshotV1:
		return "v1"
	case SnapshotV2:
		return "v2"
	default:
		return "unspecified"
	}
}

// RowsetHandle is the unit the Rowset Selector returns: an immutable,
// published view over one rowset's identity and placement. The handle
// never embeds the backing Rowset directly -- it is a borrowed reference,
// resolved against a RowsetFactory when file operations are needed.
type RowsetHandle struct {
	Id              RowsetId
	TabletId        int64
	PartitionId     int64
	SchemaHash      uint32
	Version         Version
	VersionHash     uint64
	State           RowsetState
	Type            RowsetType
	SegmentsOverlap bool
	Empty           bool
}

// RowsetMetaRecord is the serialised form of a RowsetHandle as it appears
// in a TabletHeader's visible or incremental list.
type RowsetMetaRecord = RowsetHandle

// AlterTaskInfo is a placeholder for in-flight schema-change bookkeeping
// that a tablet header carries; the Materialiser always drops it from a
// snapshotted header copy (spec.md 4.3 step 5).
type AlterTaskInfo struct {
	AlterVersion int64
	AlterType    string
}

// TabletHeader is the persisted, authoritative description of a tablet:
// its identity, schema, and the two rowset lists that make up its version
// chain. A snapshot always carries a deep copy of one, never the live
// header itself.
type TabletHeader struct {
	TabletId    int64
	SchemaHash  uint32
	SchemaDesc  []byte // opaque serialised schema descriptor
	Visible     []RowsetMetaRecord
	Incremental []RowsetMetaRecord
	AlterTask   *AlterTaskInfo
}

// Clone returns a deep copy of h. generate_tablet_meta_copy_unlocked must
// be called while still holding the tablet's header lock; Clone itself
// does no locking.
func (h *TabletHeader) Clone() *TabletHeader {
	if h == nil {
		return nil
	}
	out := &TabletHeader{
		TabletId:   h.TabletId,
		SchemaHash: h.SchemaHash,
	}
	if h.SchemaDesc != nil {
		out.SchemaDesc = append([]byte(nil), h.SchemaDesc...)
	}
	if h.Visible != nil {
		out.Visible = append([]RowsetMetaRecord(nil), h.Visible...)
	}
	if h.Incremental != nil {
		out.Incremental = append([]RowsetMetaRecord(nil), h.Incremental...)
	}
	if h.AlterTask != nil {
		cp := *h.AlterTask
		out.AlterTask = &cp
	}
	return out
}

// SnapshotRequest is the ephemeral input to MakeSnapshot. The manager only
// ever mutates AllowIncrementalClone on it.
type SnapshotRequest struct {
	TabletId                 int64
	SchemaHash               uint32
	Version                  *int64
	MissingVersion           []int64
	TimeoutSeconds           int64
	PreferredSnapshotVersion SnapshotFormat

	// AllowIncrementalClone is set to true by MakeSnapshot iff incremental
	// mode was requested and succeeded.
	AllowIncrementalClone bool
}

// IsIncremental reports whether the request asks for incremental-mode
// selection (missing_version present).
func (r *SnapshotRequest) IsIncremental() bool { return len(r.MissingVersion) > 0 }

// SnapshotResult is MakeSnapshot's successful outcome.
type SnapshotResult struct {
	// Path is the canonicalised absolute filesystem path of the snapshot
	// root directory.
	Path string
	// TailIsCumulative flags the "single-delta tail" situation from
	// spec.md 4.3 step 7: the last selected rowset's End equals the
	// requested version but it is not itself a single delta. This is a
	// diagnostic only, never a failure.
	TailIsCumulative bool
}
