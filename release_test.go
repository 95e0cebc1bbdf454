package tabletsnap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polarsignals/tabletsnap/pkg/types"
)

// TestReleaseSnapshotMultipleRoots checks that a path under the second
// of several configured data roots is still accepted.
func TestReleaseSnapshotMultipleRoots(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()

	src, tabletId, schemaHash := buildFullTablet(t, rootB)
	mgr := newTestManager(t)
	req := &types.SnapshotRequest{TabletId: tabletId, SchemaHash: schemaHash, PreferredSnapshotVersion: types.SnapshotV2}
	res, err := mgr.MakeSnapshot(context.Background(), src, req)
	require.NoError(t, err)

	registry := StaticDataDirRegistry{rootA, rootB}
	require.NoError(t, mgr.ReleaseSnapshot(context.Background(), registry, res.Path))
	require.NoFileExists(t, res.Path)
}

// TestReleaseSnapshotRejectsSiblingOfSnapshotRoot checks that a path
// merely adjacent to (not under) a known root's snapshot tree is
// refused, guarding against a prefix-matching bug that would treat
// "<root>/snapshot-evil" as being under "<root>/snapshot".
func TestReleaseSnapshotRejectsSiblingOfSnapshotRoot(t *testing.T) {
	root := t.TempDir()
	sibling := filepath.Join(root, "snapshot-evil", "payload")
	require.NoError(t, os.MkdirAll(sibling, 0o755))

	mgr := newTestManager(t)
	registry := StaticDataDirRegistry{root}
	err := mgr.ReleaseSnapshot(context.Background(), registry, sibling)
	require.ErrorIs(t, err, types.ErrIllegalPath)
	require.DirExists(t, sibling)
}
