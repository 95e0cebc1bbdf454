package tabletsnap

import (
	"github.com/polarsignals/tabletsnap/internal/versiongraph"
	"github.com/polarsignals/tabletsnap/pkg/types"
)

// selection is the Rowset Selector's result (spec.md 4.2): a consistent,
// ordered set of rowset handles plus the header copy taken under the
// same read-lock.
type selection struct {
	rowsets    []types.RowsetHandle
	header     *types.TabletHeader
	incomplete bool // true iff request was incremental mode
}

// selectRowsets implements the Rowset Selector. It holds tablet's header
// lock for read across both the version-graph query and the header
// copy, so the two observations can never straddle a concurrent writer's
// publish.
func selectRowsets(tablet TabletRef, req *types.SnapshotRequest) (*selection, error) {
	lock := tablet.HeaderLock()
	lock.RLock()
	defer lock.RUnlock()

	if req.IsIncremental() {
		return selectIncremental(tablet, req)
	}
	return selectFull(tablet, req)
}

func selectIncremental(tablet TabletRef, req *types.SnapshotRequest) (*selection, error) {
	rowsets := make([]types.RowsetHandle, 0, len(req.MissingVersion))
	for _, v := range req.MissingVersion {
		h, ok := tablet.IncRowsetByVersion(v)
		if !ok {
			return nil, types.Newf("selectRowsets", types.KindVersionNotFound, "no incremental rowset for version %d", v)
		}
		rowsets = append(rowsets, h)
	}
	return &selection{
		rowsets:    rowsets,
		header:     tablet.CopyHeaderLocked(),
		incomplete: true,
	}, nil
}

func selectFull(tablet TabletRef, req *types.SnapshotRequest) (*selection, error) {
	liveMax, hasAny := tablet.RowsetWithMaxVersion()

	var target int64
	switch {
	case req.Version != nil:
		if !hasAny || liveMax.Version.End < *req.Version {
			return nil, types.Newf("selectRowsets", types.KindBadInput, "requested version %d exceeds live version", *req.Version)
		}
		target = *req.Version
	case hasAny:
		target = liveMax.Version.End
	default:
		return nil, types.New("selectRowsets", types.KindVersionNotFound, nil)
	}

	path, err := tablet.CaptureConsistentRowsets(target)
	if err != nil {
		return nil, types.Newf("selectRowsets", types.KindSelectionFailed, "cannot cover [0,%d]: %v", target, err)
	}
	versiongraph.SortByVersion(path)

	return &selection{
		rowsets: path,
		header:  tablet.CopyHeaderLocked(),
	}, nil
}
