package types

import (
	"encoding/binary"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// MarshalVT and UnmarshalVT follow the naming the teacher's generated
// snapshot footer code uses (metadata.MarshalVT/footer.UnmarshalVT in
// snapshot.go), even though this codec is hand-written rather than
// generated: there is no .proto source in this module to run protoc-gen-go-vtproto
// against, so TabletHeader's wire form is produced by hand in the same
// length-prefixed, append-only style vtprotobuf itself emits.

// MarshalVT encodes h into its flat binary wire form.
func (h *TabletHeader) MarshalVT() ([]byte, error) {
	buf := make([]byte, 0, 64+len(h.SchemaDesc)+64*(len(h.Visible)+len(h.Incremental)))

	buf = appendInt64(buf, h.TabletId)
	buf = binary.LittleEndian.AppendUint32(buf, h.SchemaHash)
	buf = appendBytes(buf, h.SchemaDesc)

	if h.AlterTask != nil {
		buf = append(buf, 1)
		buf = appendInt64(buf, h.AlterTask.AlterVersion)
		buf = appendBytes(buf, []byte(h.AlterTask.AlterType))
	} else {
		buf = append(buf, 0)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(h.Visible)))
	for _, rs := range h.Visible {
		buf = rs.marshalInto(buf)
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(h.Incremental)))
	for _, rs := range h.Incremental {
		buf = rs.marshalInto(buf)
	}
	return buf, nil
}

// SizeVT reports the encoded length of h. It measures by encoding h in
// full with MarshalVT.
func (h *TabletHeader) SizeVT() int {
	b, _ := h.MarshalVT()
	return len(b)
}

// UnmarshalVT decodes data produced by MarshalVT back into h.
func (h *TabletHeader) UnmarshalVT(data []byte) error {
	r := &reader{buf: data}

	tabletId, err := r.int64()
	if err != nil {
		return fmt.Errorf("tablet header: tablet id: %w", err)
	}
	schemaHash, err := r.uint32()
	if err != nil {
		return fmt.Errorf("tablet header: schema hash: %w", err)
	}
	schemaDesc, err := r.bytes()
	if err != nil {
		return fmt.Errorf("tablet header: schema desc: %w", err)
	}

	hasAlter, err := r.byte()
	if err != nil {
		return fmt.Errorf("tablet header: alter task flag: %w", err)
	}
	var alterTask *AlterTaskInfo
	if hasAlter == 1 {
		alterVersion, err := r.int64()
		if err != nil {
			return fmt.Errorf("tablet header: alter version: %w", err)
		}
		alterType, err := r.bytes()
		if err != nil {
			return fmt.Errorf("tablet header: alter type: %w", err)
		}
		alterTask = &AlterTaskInfo{AlterVersion: alterVersion, AlterType: string(alterType)}
	}

	visible, err := r.rowsetList()
	if err != nil {
		return fmt.Errorf("tablet header: visible list: %w", err)
	}
	incremental, err := r.rowsetList()
	if err != nil {
		return fmt.Errorf("tablet header: incremental list: %w", err)
	}

	h.TabletId = tabletId
	h.SchemaHash = schemaHash
	h.SchemaDesc = schemaDesc
	h.AlterTask = alterTask
	h.Visible = visible
	h.Incremental = incremental
	return nil
}

func (rs RowsetMetaRecord) marshalInto(buf []byte) []byte {
	id := ulid.ULID(rs.Id)
	buf = append(buf, id[:]...)
	buf = appendInt64(buf, rs.TabletId)
	buf = appendInt64(buf, rs.PartitionId)
	buf = binary.LittleEndian.AppendUint32(buf, rs.SchemaHash)
	buf = appendInt64(buf, rs.Version.Start)
	buf = appendInt64(buf, rs.Version.End)
	buf = binary.LittleEndian.AppendUint64(buf, rs.VersionHash)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(rs.State))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(rs.Type))
	var flags byte
	if rs.SegmentsOverlap {
		flags |= 1
	}
	if rs.Empty {
		flags |= 2
	}
	return append(buf, flags)
}

// reader walks a MarshalVT-encoded buffer front to back.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("truncated: need %d bytes at offset %d, have %d", n, r.pos, len(r.buf))
	}
	return nil
}

func (r *reader) byte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) int64() (int64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := int64(binary.LittleEndian.Uint64(r.buf[r.pos:]))
	r.pos += 8
	return v, nil
}

func (r *reader) uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) uint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *reader) bytes() ([]byte, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	b := append([]byte(nil), r.buf[r.pos:r.pos+int(n)]...)
	r.pos += int(n)
	return b, nil
}

func (r *reader) rowsetList() ([]RowsetMetaRecord, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]RowsetMetaRecord, 0, n)
	for i := uint32(0); i < n; i++ {
		rs, err := r.rowset()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, rs)
	}
	return out, nil
}

func (r *reader) rowset() (RowsetMetaRecord, error) {
	if err := r.need(16); err != nil {
		return RowsetMetaRecord{}, err
	}
	var id ulid.ULID
	copy(id[:], r.buf[r.pos:r.pos+16])
	r.pos += 16

	tabletId, err := r.int64()
	if err != nil {
		return RowsetMetaRecord{}, err
	}
	partitionId, err := r.int64()
	if err != nil {
		return RowsetMetaRecord{}, err
	}
	schemaHash, err := r.uint32()
	if err != nil {
		return RowsetMetaRecord{}, err
	}
	start, err := r.int64()
	if err != nil {
		return RowsetMetaRecord{}, err
	}
	end, err := r.int64()
	if err != nil {
		return RowsetMetaRecord{}, err
	}
	versionHash, err := r.uint64()
	if err != nil {
		return RowsetMetaRecord{}, err
	}
	state, err := r.uint32()
	if err != nil {
		return RowsetMetaRecord{}, err
	}
	typ, err := r.uint32()
	if err != nil {
		return RowsetMetaRecord{}, err
	}
	flags, err := r.byte()
	if err != nil {
		return RowsetMetaRecord{}, err
	}

	return RowsetMetaRecord{
		Id:              RowsetId(id),
		TabletId:        tabletId,
		PartitionId:     partitionId,
		SchemaHash:      schemaHash,
		Version:         Version{Start: start, End: end},
		VersionHash:     versionHash,
		State:           RowsetState(state),
		Type:            RowsetType(typ),
		SegmentsOverlap: flags&1 != 0,
		Empty:           flags&2 != 0,
	}, nil
}

func appendInt64(buf []byte, v int64) []byte {
	return binary.LittleEndian.AppendUint64(buf, uint64(v))
}

func appendBytes(buf, b []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}
