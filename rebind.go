package tabletsnap

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/go-kit/log/level"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"

	"github.com/polarsignals/tabletsnap/internal/fsutil"
	"github.com/polarsignals/tabletsnap/internal/headerpb"
	"github.com/polarsignals/tabletsnap/internal/rowset"
	"github.com/polarsignals/tabletsnap/pkg/types"
)

// ConvertRowsetIds implements the Id Rebinder (spec.md 4.5): the
// receiving side of a clone/restore, which reads a snapshot's header,
// allocates fresh rowset ids from the engine-wide generator, re-emits
// every rowset's files under its new id, and rewrites the header to
// reference the new tablet id, schema hash, and ids.
//
// cloneDir's header file is named after newTabletId even though its
// body may still reference the source tablet id -- that naming
// convention is load-bearing (spec.md 9) and is exactly what
// headerPath below encodes.
func (m *Manager) ConvertRowsetIds(ctx context.Context, factory rowset.Factory, cloneDir string, newTabletId int64, newSchemaHash uint32) error {
	ctx, span := tracer().Start(ctx, "ConvertRowsetIds", trace.WithAttributes(tabletAttrs(newTabletId, newSchemaHash)...))
	defer span.End()

	start := time.Now()
	err := m.convertRowsetIds(ctx, factory, cloneDir, newTabletId, newSchemaHash)
	m.metrics.rebindDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		m.metrics.rebindsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		level.Error(m.logger).Log("msg", "convert rowset ids failed", "tablet_id", newTabletId, "schema_hash", newSchemaHash, "err", err)
		return err
	}
	m.metrics.rebindsTotal.WithLabelValues("success").Inc()
	level.Info(m.logger).Log("msg", "converted rowset ids", "tablet_id", newTabletId, "schema_hash", newSchemaHash)
	return nil
}

func (m *Manager) convertRowsetIds(ctx context.Context, factory rowset.Factory, cloneDir string, newTabletId int64, newSchemaHash uint32) error {
	if !fsutil.IsDir(cloneDir) {
		return types.New("ConvertRowsetIds", types.KindDirNotExist, nil)
	}

	headerPath := filepath.Join(cloneDir, fmt.Sprintf("%d.hdr", newTabletId))
	loaded, err := headerpb.Load(headerPath)
	if err != nil {
		return types.New("ConvertRowsetIds", types.KindInitFailed, err)
	}

	working := loaded.Clone()
	working.TabletId = newTabletId
	working.SchemaHash = newSchemaHash
	working.Visible = nil
	working.Incremental = nil

	newVisible, byVersion, err := m.rebindVisible(ctx, factory, cloneDir, loaded.Visible, newTabletId, newSchemaHash)
	if err != nil {
		return types.New("ConvertRowsetIds", types.KindAllocationFailed, err)
	}
	working.Visible = newVisible

	newIncremental, err := m.rebindIncremental(ctx, factory, cloneDir, loaded.Incremental, byVersion, newTabletId, newSchemaHash)
	if err != nil {
		return types.New("ConvertRowsetIds", types.KindAllocationFailed, err)
	}
	working.Incremental = newIncremental

	versions := maps.Keys(byVersion)
	sort.Slice(versions, func(i, j int) bool {
		if versions[i].Start != versions[j].Start {
			return versions[i].Start < versions[j].Start
		}
		return versions[i].End < versions[j].End
	})
	level.Debug(m.logger).Log("msg", "rebind versions processed", "versions", fmt.Sprint(versions))

	if err := headerpb.Save(headerPath, working); err != nil {
		return types.New("ConvertRowsetIds", types.KindInitFailed, err)
	}
	return nil
}

// rebindVisible re-emits every visible rowset under a freshly allocated
// id, running independent rowsets concurrently via errgroup the way the
// teacher bounds concurrent WAL record batches.
func (m *Manager) rebindVisible(ctx context.Context, factory rowset.Factory, dir string, old []types.RowsetMetaRecord, newTabletId int64, newSchemaHash uint32) ([]types.RowsetMetaRecord, map[types.Version]types.RowsetMetaRecord, error) {
	out := make([]types.RowsetMetaRecord, len(old))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, r := range old {
		i, r := i, r
		g.Go(func() error {
			newId, err := m.idGen.Next()
			if err != nil {
				return fmt.Errorf("allocate rowset id: %w", err)
			}
			renamed, err := rowset.RenameRowset(gctx, factory, r, dir, newId)
			if err != nil {
				return fmt.Errorf("rename rowset %s: %w", r.Id, err)
			}
			renamed.TabletId = newTabletId
			renamed.SchemaHash = newSchemaHash
			out[i] = renamed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	byVersion := make(map[types.Version]types.RowsetMetaRecord, len(out))
	for _, r := range out {
		byVersion[r.Version] = r
	}
	return out, byVersion, nil
}

// rebindIncremental re-emits incremental rowsets, skipping re-emission
// for any version already rebound as part of the visible list so both
// occurrences share one new id (spec.md 4.5 step 5, scenario S6).
func (m *Manager) rebindIncremental(ctx context.Context, factory rowset.Factory, dir string, old []types.RowsetMetaRecord, byVersion map[types.Version]types.RowsetMetaRecord, newTabletId int64, newSchemaHash uint32) ([]types.RowsetMetaRecord, error) {
	out := make([]types.RowsetMetaRecord, len(old))
	var mu sync.Mutex // guards byVersion against concurrent writes below

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, r := range old {
		i, r := i, r

		mu.Lock()
		shared, ok := byVersion[r.Version]
		mu.Unlock()
		if ok {
			out[i] = shared
			continue
		}

		g.Go(func() error {
			newId, err := m.idGen.Next()
			if err != nil {
				return fmt.Errorf("allocate rowset id: %w", err)
			}
			renamed, err := rowset.RenameRowset(gctx, factory, r, dir, newId)
			if err != nil {
				return fmt.Errorf("rename rowset %s: %w", r.Id, err)
			}
			renamed.TabletId = newTabletId
			renamed.SchemaHash = newSchemaHash
			out[i] = renamed

			mu.Lock()
			byVersion[r.Version] = renamed
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
