// Package rowset implements the two physical rowset layouts (Legacy,
// Modern) behind one capability interface, the same polymorphism
// frostdb's parts.Part draws between an arrow-backed and a
// parquet-serialized-buffer-backed part (parts/arrow.go): callers only
// ever see the Rowset interface; Format Normaliser is the sole caller
// that switches on the concrete type (spec.md 9, "Polymorphism over
// rowset types").
package rowset

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/polarsignals/tabletsnap/internal/fsutil"
	"github.com/polarsignals/tabletsnap/pkg/types"
)

// Row is the minimal payload a rowset carries: an ordering key plus an
// opaque value. The concrete row shape a real storage engine's column
// family defines is an out-of-scope collaborator (spec.md 1); this is
// the smallest stand-in that still exercises ordering, overlap and
// round-trip row count through the codec.
type Row struct {
	Key   int64
	Value []byte
}

// Reader streams rows out of a rowset in key order.
type Reader interface {
	// Next returns the next row, or ok=false once exhausted.
	Next() (row Row, ok bool, err error)
	Close() error
}

// Writer accepts rows in key order and produces a new Rowset on Build.
type Writer interface {
	Write(Row) error
	// Build finalises the writer's output files and returns the
	// resulting rowset's handle. Build must be called exactly once.
	Build() (types.RowsetHandle, error)
	Close() error
}

// Rowset is the capability set both physical layouts implement:
// link_files_to / load(use_cache) / remove / rowset_meta from spec.md 6.
type Rowset interface {
	Meta() types.RowsetHandle
	// LinkFilesTo hard-links this rowset's data and index files into
	// dstDir, preserving the current id in the filenames.
	LinkFilesTo(dstDir string) error
	// Load opens a Reader over the rowset's rows. Loading never
	// consults a file-descriptor or index cache (spec.md 4.5's
	// rename_rowset contract: the incoming directory's fds may be stale
	// or conflict with other tablets).
	Load(ctx context.Context) (Reader, error)
	// Remove deletes this rowset's files from its directory.
	Remove() error
}

// Factory resolves RowsetHandles to concrete Rowset values and builds
// new rowset writers, mirroring spec.md 6's RowsetFactory contract
// (create_rowset, create_rowset_writer).
type Factory interface {
	// Open returns the Rowset backing meta, whose files live in dir.
	Open(meta types.RowsetHandle, dir string) (Rowset, error)
	// CreateWriter returns a Writer that will emit a new rowset under
	// dir, carrying forward everything from meta except Id (the caller
	// sets meta.Id to the id the writer should build under) and rows
	// (supplied by the caller via Write).
	CreateWriter(meta types.RowsetHandle, dir string) (Writer, error)
}

func dataPath(dir string, id types.RowsetId) string {
	return filepath.Join(dir, fmt.Sprintf("%s_0.dat", id))
}

func idxPath(dir string, id types.RowsetId) string {
	return filepath.Join(dir, fmt.Sprintf("%s_0.idx", id))
}

// linkPair hard-links both files of a rowset named by id from srcDir
// into dstDir, keeping the filenames (and therefore the id) unchanged.
func linkPair(srcDir, dstDir string, id types.RowsetId) error {
	for _, f := range []func(string, types.RowsetId) string{dataPath, idxPath} {
		src := f(srcDir, id)
		dst := f(dstDir, id)
		if !fsutil.Exists(src) {
			continue // an empty rowset may have no index file
		}
		if err := fsutil.HardLink(src, dst); err != nil {
			return fmt.Errorf("link %s: %w", filepath.Base(src), err)
		}
	}
	return nil
}

func removePair(dir string, id types.RowsetId) error {
	if err := fsutil.RemoveAll(dataPath(dir, id)); err != nil {
		return err
	}
	return fsutil.RemoveAll(idxPath(dir, id))
}

// DefaultFactory is the Factory implementation used throughout this
// module: Open dispatches on meta.Type, CreateWriter builds the type
// requested by meta.Type.
type DefaultFactory struct{}

func (DefaultFactory) Open(meta types.RowsetHandle, dir string) (Rowset, error) {
	switch meta.Type {
	case types.RowsetModern:
		return openModern(meta, dir)
	default:
		return openLegacy(meta, dir)
	}
}

func (DefaultFactory) CreateWriter(meta types.RowsetHandle, dir string) (Writer, error) {
	switch meta.Type {
	case types.RowsetModern:
		return newModernWriter(meta, dir), nil
	default:
		return newLegacyWriter(meta, dir), nil
	}
}
