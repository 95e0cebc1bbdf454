package rowset

import (
	"context"

	"github.com/parquet-go/parquet-go"

	"github.com/polarsignals/tabletsnap/internal/fsutil"
	"github.com/polarsignals/tabletsnap/pkg/types"
)

// legacyRowset is the alpha-era physical layout: a single uncompressed
// parquet data file plus a row-count index file.
type legacyRowset struct {
	meta types.RowsetHandle
	dir  string
}

func openLegacy(meta types.RowsetHandle, dir string) (Rowset, error) {
	return &legacyRowset{meta: meta, dir: dir}, nil
}

func (r *legacyRowset) Meta() types.RowsetHandle { return r.meta }

func (r *legacyRowset) LinkFilesTo(dstDir string) error {
	return linkPair(r.dir, dstDir, r.meta.Id)
}

func (r *legacyRowset) Remove() error {
	return removePair(r.dir, r.meta.Id)
}

func (r *legacyRowset) Load(ctx context.Context) (Reader, error) {
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

// legacyWriter accumulates rows in memory and flushes both the data and
// index files on Build, the same "hold buffer, write once" pattern
// frostdb's schema.GetWriter/PutWriter pool uses around parquet.CopyRows.
type legacyWriter struct {
	meta types.RowsetHandle
	dir  string
	rows []Row
}

func newLegacyWriter(meta types.RowsetHandle, dir string) *legacyWriter {
	m := meta
	m.Type = types.RowsetLegacy
	return &legacyWriter{meta: m, dir: dir}
}

func (w *legacyWriter) Write(r Row) error {
	w.rows = append(w.rows, r)
	return nil
}

func (w *legacyWriter) Close() error { return nil }

func (w *legacyWriter) Build() (types.RowsetHandle, error) {
	if w.meta.Id.IsZero() {
		return types.RowsetHandle{}, errNoId
	}
	if err := writeParquet(w.dir, dataPath(w.dir, w.meta.Id), w.rows, parquet.Uncompressed); err != nil {
		return types.RowsetHandle{}, err
	}
	if err := writeLegacyIndex(idxPath(w.dir, w.meta.Id), len(w.rows)); err != nil {
		return types.RowsetHandle{}, err
	}
	out := w.meta
	out.Empty = len(w.rows) == 0
	out.VersionHash = versionHash(w.rows)
	return out, nil
}
