package tabletsnap

import (
	"context"
	"path/filepath"

	"github.com/go-kit/log/level"

	"github.com/polarsignals/tabletsnap/internal/fsutil"
	"github.com/polarsignals/tabletsnap/pkg/types"
)

// DataDirRegistry is the storage-engine collaborator spec.md 6 calls
// StorageEngine.get_stores: the set of data-root directories the engine
// is configured with. ReleaseSnapshot enforces the prefix rule against
// every known root.
type DataDirRegistry interface {
	Stores() ([]string, error)
}

// StaticDataDirRegistry is a fixed-list DataDirRegistry, sufficient for
// single-store deployments and tests.
type StaticDataDirRegistry []string

func (s StaticDataDirRegistry) Stores() ([]string, error) { return []string(s), nil }

// ReleaseSnapshot removes a previously materialised snapshot directory.
// It refuses (IllegalPath) unless path is lexically under
// <root>/snapshot for some root known to registry, so a caller can never
// trick it into unlinking arbitrary filesystem state.
func (m *Manager) ReleaseSnapshot(ctx context.Context, registry DataDirRegistry, path string) error {
	_, span := tracer().Start(ctx, "ReleaseSnapshot")
	defer span.End()

	err := m.releaseSnapshot(registry, path)
	if err != nil {
		span.RecordError(err)
		m.metrics.releasesTotal.WithLabelValues(outcomeLabel(err)).Inc()
		level.Warn(m.logger).Log("msg", "release snapshot failed", "path", path, "err", err)
		return err
	}
	m.metrics.releasesTotal.WithLabelValues("success").Inc()
	level.Info(m.logger).Log("msg", "released snapshot", "path", path)
	return nil
}

func (m *Manager) releaseSnapshot(registry DataDirRegistry, path string) error {
	// path itself may already be gone -- that is the idempotent
	// second-release case, not an illegal one -- so the prefix check
	// below is done against its absolute form rather than requiring it
	// to resolve via EvalSymlinks.
	abs, err := filepath.Abs(path)
	if err != nil {
		return types.New("ReleaseSnapshot", types.KindIllegalPath, err)
	}

	roots, err := registry.Stores()
	if err != nil {
		return types.New("ReleaseSnapshot", types.KindIllegalPath, err)
	}

	allowed := false
	for _, root := range roots {
		canonicalRoot, err := fsutil.Canonicalize(root)
		if err != nil {
			continue
		}
		if fsutil.IsUnder(abs, filepath.Join(canonicalRoot, "snapshot")) {
			allowed = true
			break
		}
	}
	if !allowed {
		return types.Newf("ReleaseSnapshot", types.KindIllegalPath, "path %q is not under any known data root's snapshot tree", path)
	}

	if !fsutil.Exists(abs) {
		return types.New("ReleaseSnapshot", types.KindDirNotExist, nil)
	}

	canonicalPath, err := fsutil.Canonicalize(abs)
	if err != nil {
		return types.New("ReleaseSnapshot", types.KindDirNotExist, err)
	}
	return fsutil.RemoveAll(canonicalPath)
}
