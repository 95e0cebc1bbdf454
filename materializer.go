package tabletsnap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/polarsignals/tabletsnap/internal/fsutil"
	"github.com/polarsignals/tabletsnap/internal/headerpb"
	"github.com/polarsignals/tabletsnap/pkg/types"
)

// MakeSnapshot implements spec.md 2/4.3: select a consistent set of
// rowsets, materialise them plus a rewritten header into a fresh
// snapshot directory, and return its canonicalised path.
func (m *Manager) MakeSnapshot(ctx context.Context, source TabletSource, req *types.SnapshotRequest) (types.SnapshotResult, error) {
	reqId := uuid.New().String()
	ctx, span := tracer().Start(ctx, "MakeSnapshot", trace.WithAttributes(tabletAttrs(req.TabletId, req.SchemaHash)...))
	defer span.End()

	start := time.Now()
	res, err := m.makeSnapshot(ctx, source, req)
	m.metrics.snapshotDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		m.metrics.snapshotsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		level.Error(m.logger).Log("msg", "make snapshot failed", "request_id", reqId, "tablet_id", req.TabletId, "schema_hash", req.SchemaHash, "err", err)
		return types.SnapshotResult{}, err
	}
	m.metrics.snapshotsTotal.WithLabelValues("success").Inc()
	level.Info(m.logger).Log("msg", "made snapshot", "request_id", reqId, "tablet_id", req.TabletId, "schema_hash", req.SchemaHash, "path", res.Path)
	return res, nil
}

func (m *Manager) makeSnapshot(ctx context.Context, source TabletSource, req *types.SnapshotRequest) (types.SnapshotResult, error) {
	tablet, err := source.GetTablet(req.TabletId, req.SchemaHash)
	if err != nil {
		return types.SnapshotResult{}, err
	}

	sel, err := selectRowsets(tablet, req)
	if err != nil {
		return types.SnapshotResult{}, err
	}
	m.metrics.snapshotRowsetsLinked.Observe(float64(len(sel.rowsets)))

	timeout := req.TimeoutSeconds
	snapshotIdPath := m.allocator.Allocate(tablet.DataDir(), timeout)
	schemaFullPath := filepath.Join(snapshotIdPath, fmt.Sprint(req.TabletId), fmt.Sprint(req.SchemaHash))
	headerPath := filepath.Join(schemaFullPath, fmt.Sprintf("%d.hdr", req.TabletId))

	teardown := func() {
		if rmErr := fsutil.RemoveAll(snapshotIdPath); rmErr != nil {
			level.Warn(m.logger).Log("msg", "snapshot teardown failed", "path", snapshotIdPath, "err", rmErr)
		}
	}

	if fsutil.Exists(schemaFullPath) {
		if err := fsutil.RemoveAll(schemaFullPath); err != nil {
			return types.SnapshotResult{}, types.New("MakeSnapshot", types.KindCannotCreateDir, err)
		}
	}
	if err := fsutil.MkdirAll(schemaFullPath); err != nil {
		teardown()
		return types.SnapshotResult{}, types.New("MakeSnapshot", types.KindCannotCreateDir, err)
	}

	for _, h := range sel.rowsets {
		rs, err := tablet.RowsetFactory().Open(h, tablet.DataDir())
		if err != nil {
			teardown()
			return types.SnapshotResult{}, types.New("MakeSnapshot", types.KindLinkFailed, err)
		}
		if err := rs.LinkFilesTo(schemaFullPath); err != nil {
			teardown()
			return types.SnapshotResult{}, types.New("MakeSnapshot", types.KindLinkFailed, err)
		}
	}
	if linked, err := linkedBytes(schemaFullPath); err == nil {
		level.Debug(m.logger).Log("msg", "linked rowset files", "tablet_id", req.TabletId, "size", humanize.Bytes(linked))
	}

	header := sel.header
	header.AlterTask = nil
	if sel.incomplete {
		header.Incremental = sel.rowsets
		header.Visible = nil
	} else {
		header.Visible = sel.rowsets
		header.Incremental = nil
	}

	switch req.PreferredSnapshotVersion {
	case types.SnapshotV1:
		var list *[]types.RowsetMetaRecord
		if sel.incomplete {
			list = &header.Incremental
		} else {
			list = &header.Visible
		}
		out, err := normalize(ctx, tablet.RowsetFactory(), *list, tablet.DataDir(), schemaFullPath)
		if err != nil {
			teardown()
			return types.SnapshotResult{}, types.New("MakeSnapshot", types.KindConversionFailed, err)
		}
		*list = out
	case types.SnapshotV2:
		// persisted as-is
	default:
		teardown()
		return types.SnapshotResult{}, types.Newf("MakeSnapshot", types.KindInvalidSnapshotVersion, "unknown format %v", req.PreferredSnapshotVersion)
	}

	if err := headerpb.EnsureDir(schemaFullPath); err != nil {
		teardown()
		return types.SnapshotResult{}, types.New("MakeSnapshot", types.KindCannotCreateDir, err)
	}
	if err := headerpb.Save(headerPath, header); err != nil {
		teardown()
		return types.SnapshotResult{}, types.New("MakeSnapshot", types.KindInitFailed, err)
	}

	tailIsCumulative := false
	if !sel.incomplete && req.Version != nil && len(sel.rowsets) > 0 {
		last := sel.rowsets[len(sel.rowsets)-1]
		if last.Version.End == *req.Version && !last.Version.IsSingleDelta() {
			tailIsCumulative = true
			level.Info(m.logger).Log(
				"msg", "snapshot tail is a cumulative delta, not a single delta",
				"tablet_id", req.TabletId, "version", *req.Version,
			)
		}
	}

	if sel.incomplete {
		req.AllowIncrementalClone = true
	}

	canonical, err := fsutil.Canonicalize(snapshotIdPath)
	if err != nil {
		teardown()
		return types.SnapshotResult{}, types.New("MakeSnapshot", types.KindInitFailed, err)
	}
	return types.SnapshotResult{Path: canonical, TailIsCumulative: tailIsCumulative}, nil
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	return types.KindOf(err).String()
}

// linkedBytes sums the size of every regular file directly under dir,
// used only to produce a human-readable debug log line.
func linkedBytes(dir string) (uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return 0, err
		}
		total += uint64(info.Size())
	}
	return total, nil
}
