package rowset

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// rowsetHasher streams row content into an xxhash digest, used to derive
// RowsetHandle.VersionHash the way frostdb hashes dynamic columns for
// cheap structural comparisons.
type rowsetHasher struct {
	d *xxhash.Digest
}

func newRowsetHasher() *rowsetHasher {
	return &rowsetHasher{d: xxhash.New()}
}

func (h *rowsetHasher) writeInt64(v int64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, _ = h.d.Write(buf[:])
}

func (h *rowsetHasher) writeBytes(b []byte) {
	_, _ = h.d.Write(b)
}

func (h *rowsetHasher) Sum64() uint64 {
	return h.d.Sum64()
}
