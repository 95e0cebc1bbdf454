package tabletsnap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polarsignals/tabletsnap/internal/idgen"
	"github.com/polarsignals/tabletsnap/internal/rowset"
	"github.com/polarsignals/tabletsnap/pkg/types"
)

// writeRowset builds a rowset of the given type under dir covering
// version [start,end], returning its published handle. It is the test
// fixture equivalent of a real tablet's ingestion/compaction path.
func writeRowset(t *testing.T, dir string, typ types.RowsetType, start, end int64, rowCount int) types.RowsetHandle {
	t.Helper()

	gen := idgen.New()
	id, err := gen.Next()
	require.NoError(t, err)

	meta := types.RowsetHandle{
		Id:      id,
		Version: types.Version{Start: start, End: end},
		Type:    typ,
		State:   types.RowsetVisible,
	}

	w, err := rowset.DefaultFactory{}.CreateWriter(meta, dir)
	require.NoError(t, err)
	for i := 0; i < rowCount; i++ {
		require.NoError(t, w.Write(rowset.Row{Key: int64(i), Value: []byte("v")}))
	}
	built, err := w.Build()
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return built
}

// loadRowCount opens and fully reads a rowset, returning its row count.
func loadRowCount(t *testing.T, meta types.RowsetHandle, dir string) int {
	t.Helper()

	rs, err := rowset.DefaultFactory{}.Open(meta, dir)
	require.NoError(t, err)
	reader, err := rs.Load(context.Background())
	require.NoError(t, err)
	defer reader.Close()

	count := 0
	for {
		_, ok, err := reader.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	return count
}
