package rowset

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polarsignals/tabletsnap/internal/idgen"
	"github.com/polarsignals/tabletsnap/pkg/types"
)

func newId(t *testing.T) types.RowsetId {
	t.Helper()
	id, err := idgen.New().Next()
	require.NoError(t, err)
	return id
}

func drain(t *testing.T, r Reader) []Row {
	t.Helper()
	defer r.Close()
	var out []Row
	for {
		row, ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, row)
	}
	return out
}

func TestLegacyRowsetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	meta := types.RowsetHandle{Id: newId(t), Type: types.RowsetLegacy}

	w, err := DefaultFactory{}.CreateWriter(meta, dir)
	require.NoError(t, err)
	for i := int64(0); i < 5; i++ {
		require.NoError(t, w.Write(Row{Key: i, Value: []byte("v")}))
	}
	built, err := w.Build()
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.False(t, built.Empty)
	require.Equal(t, types.RowsetLegacy, built.Type)

	rs, err := DefaultFactory{}.Open(built, dir)
	require.NoError(t, err)
	reader, err := rs.Load(context.Background())
	require.NoError(t, err)
	rows := drain(t, reader)
	require.Len(t, rows, 5)
}

func TestModernRowsetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	meta := types.RowsetHandle{Id: newId(t), Type: types.RowsetModern}

	w, err := DefaultFactory{}.CreateWriter(meta, dir)
	require.NoError(t, err)
	for _, k := range []int64{3, 1, 2} {
		require.NoError(t, w.Write(Row{Key: k, Value: []byte("v")}))
	}
	built, err := w.Build()
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.Equal(t, types.RowsetModern, built.Type)

	rs, err := DefaultFactory{}.Open(built, dir)
	require.NoError(t, err)
	reader, err := rs.Load(context.Background())
	require.NoError(t, err)
	rows := drain(t, reader)
	require.Len(t, rows, 3)

	mr, ok := rs.(*modernRowset)
	require.True(t, ok)
	minKey, maxKey, err := mr.Stats()
	require.NoError(t, err)
	require.Equal(t, int64(1), minKey)
	require.Equal(t, int64(3), maxKey)
}

func TestModernRowsetOverlapsWith(t *testing.T) {
	dir := t.TempDir()

	buildModern := func(keys ...int64) *modernRowset {
		meta := types.RowsetHandle{Id: newId(t), Type: types.RowsetModern}
		w, err := DefaultFactory{}.CreateWriter(meta, dir)
		require.NoError(t, err)
		for _, k := range keys {
			require.NoError(t, w.Write(Row{Key: k, Value: []byte("v")}))
		}
		built, err := w.Build()
		require.NoError(t, err)
		rs, err := DefaultFactory{}.Open(built, dir)
		require.NoError(t, err)
		return rs.(*modernRowset)
	}

	a := buildModern(0, 5)
	b := buildModern(5, 10)
	c := buildModern(11, 20)

	overlap, err := OverlapsWith(a, b)
	require.NoError(t, err)
	require.True(t, overlap)

	overlap, err = OverlapsWith(a, c)
	require.NoError(t, err)
	require.False(t, overlap)
}

func TestLegacyRowsetLinkFilesToAndRemove(t *testing.T) {
	srcDir, dstDir := t.TempDir(), t.TempDir()
	meta := types.RowsetHandle{Id: newId(t), Type: types.RowsetLegacy}

	w, err := DefaultFactory{}.CreateWriter(meta, srcDir)
	require.NoError(t, err)
	require.NoError(t, w.Write(Row{Key: 1, Value: []byte("v")}))
	built, err := w.Build()
	require.NoError(t, err)

	rs, err := DefaultFactory{}.Open(built, srcDir)
	require.NoError(t, err)
	require.NoError(t, rs.LinkFilesTo(dstDir))
	require.FileExists(t, filepath.Join(dstDir, built.Id.String()+"_0.dat"))
	require.FileExists(t, filepath.Join(dstDir, built.Id.String()+"_0.idx"))

	require.NoError(t, rs.Remove())
	require.NoFileExists(t, filepath.Join(srcDir, built.Id.String()+"_0.dat"))
	require.FileExists(t, filepath.Join(dstDir, built.Id.String()+"_0.dat"))
}

func TestConvertModernToLegacy(t *testing.T) {
	dir := t.TempDir()
	meta := types.RowsetHandle{Id: newId(t), Type: types.RowsetModern}

	w, err := DefaultFactory{}.CreateWriter(meta, dir)
	require.NoError(t, err)
	for i := int64(0); i < 4; i++ {
		require.NoError(t, w.Write(Row{Key: i, Value: []byte("v")}))
	}
	built, err := w.Build()
	require.NoError(t, err)

	converted, err := ConvertModernToLegacy(context.Background(), DefaultFactory{}, built, dir, dir)
	require.NoError(t, err)
	require.Equal(t, types.RowsetLegacy, converted.Type)
	require.Equal(t, built.Id, converted.Id)

	rs, err := DefaultFactory{}.Open(converted, dir)
	require.NoError(t, err)
	reader, err := rs.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, drain(t, reader), 4)
}

func TestRenameRowset(t *testing.T) {
	dir := t.TempDir()
	oldMeta := types.RowsetHandle{Id: newId(t), Type: types.RowsetLegacy, Version: types.Version{Start: 1, End: 1}}

	w, err := DefaultFactory{}.CreateWriter(oldMeta, dir)
	require.NoError(t, err)
	require.NoError(t, w.Write(Row{Key: 9, Value: []byte("v")}))
	built, err := w.Build()
	require.NoError(t, err)

	newId := newId(t)
	renamed, err := RenameRowset(context.Background(), DefaultFactory{}, built, dir, newId)
	require.NoError(t, err)
	require.Equal(t, newId, renamed.Id)
	require.Equal(t, built.Version, renamed.Version)

	require.NoFileExists(t, filepath.Join(dir, built.Id.String()+"_0.dat"))
	require.FileExists(t, filepath.Join(dir, renamed.Id.String()+"_0.dat"))

	rs, err := DefaultFactory{}.Open(renamed, dir)
	require.NoError(t, err)
	reader, err := rs.Load(context.Background())
	require.NoError(t, err)
	rows := drain(t, reader)
	require.Len(t, rows, 1)
	require.Equal(t, int64(9), rows[0].Key)
}
