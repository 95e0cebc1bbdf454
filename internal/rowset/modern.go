package rowset

import (
	"context"
	"errors"

	"github.com/parquet-go/parquet-go"

	"github.com/polarsignals/tabletsnap/internal/fsutil"
	"github.com/polarsignals/tabletsnap/pkg/types"
)

// errNoId is returned by a Writer.Build call that never had a target id
// assigned via its meta.
var errNoId = errors.New("rowset writer: no id assigned")

// modernRowset is the beta-era physical layout: a snappy-compressed
// parquet data file plus an index file carrying row-count and key
// statistics, mirroring parts.arrowPart's richer Least()/Most() support
// in parts/arrow.go.
type modernRowset struct {
	meta types.RowsetHandle
	dir  string
}

func openModern(meta types.RowsetHandle, dir string) (Rowset, error) {
	return &modernRowset{meta: meta, dir: dir}, nil
}

func (r *modernRowset) Meta() types.RowsetHandle { return r.meta }

func (r *modernRowset) LinkFilesTo(dstDir string) error {
	return linkPair(r.dir, dstDir, r.meta.Id)
}

func (r *modernRowset) Remove() error {
	return removePair(r.dir, r.meta.Id)
}

func (r *modernRowset) Load(ctx context.Context) (Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.meta.Empty || !fsutil.Exists(dataPath(r.dir, r.meta.Id)) {
		return &sliceReader{}, nil
	}
	rows, err := readParquet(dataPath(r.dir, r.meta.Id))
	if err != nil {
		return nil, err
	}
	return &sliceReader{rows: rows}, nil
}

// Stats returns the modern rowset's persisted min/max key, used by
// OverlapsWith to compare key ranges without a full row scan.
func (r *modernRowset) Stats() (minKey, maxKey int64, err error) {
	idx, err := readModernIndex(idxPath(r.dir, r.meta.Id))
	if err != nil {
		return 0, 0, err
	}
	return idx.MinKey, idx.MaxKey, nil
}

// OverlapsWith reports whether two modern rowsets' key ranges intersect,
// the direct analogue of parts.arrowPart.OverlapsWith in parts/arrow.go.
func OverlapsWith(a, b *modernRowset) (bool, error) {
	aMin, aMax, err := a.Stats()
	if err != nil {
		return false, err
	}
	bMin, bMax, err := b.Stats()
	if err != nil {
		return false, err
	}
	return aMin <= bMax && bMin <= aMax, nil
}

type modernWriter struct {
	meta   types.RowsetHandle
	dir    string
	rows   []Row
	minKey int64
	maxKey int64
	seen   bool
}

func newModernWriter(meta types.RowsetHandle, dir string) *modernWriter {
	m := meta
	m.Type = types.RowsetModern
	return &modernWriter{meta: m, dir: dir}
}

func (w *modernWriter) Write(r Row) error {
	w.rows = append(w.rows, r)
	if !w.seen || r.Key < w.minKey {
		w.minKey = r.Key
	}
	if !w.seen || r.Key > w.maxKey {
		w.maxKey = r.Key
	}
	w.seen = true
	return nil
}

func (w *modernWriter) Close() error { return nil }

func (w *modernWriter) Build() (types.RowsetHandle, error) {
	if w.meta.Id.IsZero() {
		return types.RowsetHandle{}, errNoId
	}
	if err := writeParquet(w.dir, dataPath(w.dir, w.meta.Id), w.rows, parquet.Snappy); err != nil {
		return types.RowsetHandle{}, err
	}
	if err := writeModernIndex(idxPath(w.dir, w.meta.Id), len(w.rows), w.minKey, w.maxKey); err != nil {
		return types.RowsetHandle{}, err
	}
	out := w.meta
	out.Empty = len(w.rows) == 0
	out.VersionHash = versionHash(w.rows)
	return out, nil
}
