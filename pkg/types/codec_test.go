package types

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

func TestTabletHeaderMarshalRoundTrip(t *testing.T) {
	var id1, id2 ulid.ULID
	copy(id1[:], "0123456789abcdef")
	copy(id2[:], "fedcba9876543210")

	in := &TabletHeader{
		TabletId:   42,
		SchemaHash: 7,
		SchemaDesc: []byte("schema-bytes"),
		AlterTask:  &AlterTaskInfo{AlterVersion: 9, AlterType: "add_column"},
		Visible: []RowsetMetaRecord{
			{
				Id:              RowsetId(id1),
				TabletId:        42,
				PartitionId:     3,
				SchemaHash:      7,
				Version:         Version{Start: 0, End: 0},
				VersionHash:     123456789,
				State:           RowsetVisible,
				Type:            RowsetLegacy,
				SegmentsOverlap: false,
				Empty:           false,
			},
		},
		Incremental: []RowsetMetaRecord{
			{
				Id:              RowsetId(id2),
				TabletId:        42,
				PartitionId:     3,
				SchemaHash:      7,
				Version:         Version{Start: 1, End: 1},
				VersionHash:     987654321,
				State:           RowsetVisible,
				Type:            RowsetModern,
				SegmentsOverlap: true,
				Empty:           true,
			},
		},
	}

	body, err := in.MarshalVT()
	require.NoError(t, err)
	require.Equal(t, len(body), in.SizeVT())

	out := &TabletHeader{}
	require.NoError(t, out.UnmarshalVT(body))
	require.Equal(t, in, out)
}

func TestTabletHeaderMarshalRoundTripEmptyLists(t *testing.T) {
	in := &TabletHeader{TabletId: 1, SchemaHash: 2}

	body, err := in.MarshalVT()
	require.NoError(t, err)

	out := &TabletHeader{}
	require.NoError(t, out.UnmarshalVT(body))
	require.Equal(t, in.TabletId, out.TabletId)
	require.Equal(t, in.SchemaHash, out.SchemaHash)
	require.Nil(t, out.AlterTask)
	require.Empty(t, out.Visible)
	require.Empty(t, out.Incremental)
}

func TestTabletHeaderUnmarshalTruncated(t *testing.T) {
	in := &TabletHeader{TabletId: 1, SchemaHash: 2, SchemaDesc: []byte("x")}
	body, err := in.MarshalVT()
	require.NoError(t, err)

	out := &TabletHeader{}
	err = out.UnmarshalVT(body[:len(body)-2])
	require.Error(t, err)
}
