package rowset

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/polarsignals/tabletsnap/internal/fsutil"
)

// prow is the parquet-mapped shape of Row. The real storage engine's
// column family defines the actual row schema out of scope of this
// subsystem (spec.md 1); this stand-in is enough to prove the codec
// preserves row content, ordering and count across a rebind.
type prow struct {
	Key   int64  `parquet:"key"`
	Value []byte `parquet:"value"`
}

func toRows(rows []Row) []prow {
	out := make([]prow, len(rows))
	for i, r := range rows {
		out[i] = prow{Key: r.Key, Value: r.Value}
	}
	return out
}

func fromRows(rows []prow) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = Row{Key: r.Key, Value: r.Value}
	}
	return out
}

// writeParquet writes rows to path using the given compression codec,
// creating dir if needed.
func writeParquet(dir, path string, rows []Row, compression parquet.Compression) error {
	if err := fsutil.MkdirAll(dir); err != nil {
		return fmt.Errorf("create rowset dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create data file: %w", err)
	}
	defer f.Close()

	opts := []parquet.WriterOption{parquet.SchemaOf(prow{})}
	if compression != nil {
		opts = append(opts, compression)
	}
	if err := parquet.Write[prow](f, toRows(rows), opts...); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	return f.Sync()
}

// readParquet reads back every row in path in storage order.
func readParquet(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	prows, err := parquet.Read[prow](f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("read parquet rows: %w", err)
	}
	return fromRows(prows), nil
}

// sliceReader adapts an in-memory []Row to the Reader interface so
// Load() can return a cursor without keeping the parquet file open for
// the lifetime of the read.
type sliceReader struct {
	rows []Row
	pos  int
}

func (r *sliceReader) Next() (Row, bool, error) {
	if r.pos >= len(r.rows) {
		return Row{}, false, nil
	}
	row := r.rows[r.pos]
	r.pos++
	return row, true, nil
}

func (r *sliceReader) Close() error { return nil }

// versionHash hashes the ordered row keys and values with xxhash, the
// way frostdb's granule index hashes dynamic columns for quick
// comparisons; it gives RowsetHandle.VersionHash a cheap, stable digest
// of the rowset's actual content.
func versionHash(rows []Row) uint64 {
	h := newRowsetHasher()
	for _, r := range rows {
		h.writeInt64(r.Key)
		h.writeBytes(r.Value)
	}
	return h.Sum64()
}
