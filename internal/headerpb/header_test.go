package headerpb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polarsignals/tabletsnap/pkg/types"
)

func sampleHeader() *types.TabletHeader {
	return &types.TabletHeader{
		TabletId:   11,
		SchemaHash: 22,
		SchemaDesc: []byte("desc"),
		Visible: []types.RowsetMetaRecord{
			{TabletId: 11, SchemaHash: 22, Version: types.Version{Start: 0, End: 0}},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "11.hdr")
	in := sampleHeader()

	require.NoError(t, Save(path, in))
	out, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestSaveOverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "11.hdr")
	require.NoError(t, Save(path, sampleHeader()))

	second := sampleHeader()
	second.SchemaHash = 99
	require.NoError(t, Save(path, second))

	out, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint32(99), out.SchemaHash)

	require.NoFileExists(t, path+".tmp")
}

func TestLoadRejectsChecksumMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "11.hdr")
	require.NoError(t, Save(path, sampleHeader()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	corrupt := append([]byte(nil), data...)
	corrupt[len(corrupt)/2] ^= 0xFF
	require.NoError(t, os.WriteFile(path, corrupt, filePerms))

	_, err = Load(path)
	require.Error(t, err)
}

func TestLoadRejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "11.hdr")
	require.NoError(t, Save(path, sampleHeader()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)/2], filePerms))

	_, err = Load(path)
	require.Error(t, err)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "11.hdr")
	require.NoError(t, Save(path, sampleHeader()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	corrupt := append([]byte(nil), data...)
	corrupt[0] = 'X'
	require.NoError(t, os.WriteFile(path, corrupt, filePerms))

	_, err = Load(path)
	require.Error(t, err)
}

func TestEnsureDirCreatesMissingParents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	require.NoError(t, EnsureDir(dir))
	require.DirExists(t, dir)
}
