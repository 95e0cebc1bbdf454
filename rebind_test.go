package tabletsnap

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polarsignals/tabletsnap/internal/headerpb"
	"github.com/polarsignals/tabletsnap/internal/rowset"
	"github.com/polarsignals/tabletsnap/pkg/types"
)

// TestConvertRowsetIdsSharesIdAcrossLists is scenario S6: a rowset
// version referenced from both the visible and incremental lists must
// come out of the rebind still referencing the very same new id in
// both places.
func TestConvertRowsetIdsSharesIdAcrossLists(t *testing.T) {
	cloneDir := t.TempDir()

	shared := writeRowset(t, cloneDir, types.RowsetLegacy, 1, 1, 2)
	solo := writeRowset(t, cloneDir, types.RowsetLegacy, 0, 0, 1)

	const newTabletId, newSchemaHash = 99, 55
	header := &types.TabletHeader{
		TabletId:    7,
		SchemaHash:  3,
		Visible:     []types.RowsetMetaRecord{solo, shared},
		Incremental: []types.RowsetMetaRecord{shared},
	}
	headerPath := filepath.Join(cloneDir, fmt.Sprintf("%d.hdr", newTabletId))
	require.NoError(t, headerpb.Save(headerPath, header))

	mgr := newTestManager(t)
	err := mgr.ConvertRowsetIds(context.Background(), rowset.DefaultFactory{}, cloneDir, newTabletId, newSchemaHash)
	require.NoError(t, err)

	rebound, err := headerpb.Load(headerPath)
	require.NoError(t, err)
	require.Equal(t, int64(newTabletId), rebound.TabletId)
	require.Equal(t, uint32(newSchemaHash), rebound.SchemaHash)
	require.Len(t, rebound.Visible, 2)
	require.Len(t, rebound.Incremental, 1)

	var reboundShared types.RowsetMetaRecord
	for _, r := range rebound.Visible {
		if r.Version == shared.Version {
			reboundShared = r
		}
	}
	require.NotEqual(t, types.RowsetId{}, reboundShared.Id)
	require.Equal(t, reboundShared.Id, rebound.Incremental[0].Id)
	require.NotEqual(t, shared.Id, reboundShared.Id)

	for _, r := range rebound.Visible {
		require.Equal(t, int64(newTabletId), r.TabletId)
		require.Equal(t, uint32(newSchemaHash), r.SchemaHash)
		wantRows := 1
		if r.Version == shared.Version {
			wantRows = 2
		}
		require.Equal(t, wantRows, loadRowCount(t, r, cloneDir))
	}
}

// TestConvertRowsetIdsMissingDir covers the failure branch: a clone
// directory that does not exist must fail with KindDirNotExist.
func TestConvertRowsetIdsMissingDir(t *testing.T) {
	mgr := newTestManager(t)
	err := mgr.ConvertRowsetIds(context.Background(), rowset.DefaultFactory{}, filepath.Join(t.TempDir(), "missing"), 1, 1)
	require.ErrorIs(t, err, types.ErrDirNotExist)
}
