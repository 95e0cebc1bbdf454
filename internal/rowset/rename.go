package rowset

import (
	"context"
	"fmt"

	"github.com/polarsignals/tabletsnap/pkg/types"
)

// RenameRowset implements the rename_rowset contract from spec.md 4.5:
// open the existing rowset under oldMeta (never consulting a
// file-descriptor or index cache -- this implementation has none to
// begin with, so that requirement is automatically satisfied), stream
// every row into a writer created under newId with everything else
// (partition, schema hash, type, state, version, version hash, overlap
// flag) carried forward unchanged, build the result, then delete the
// old rowset's files. Failures at any substep propagate unchanged and
// leave the old files in place; only a fully successful rename removes
// them.
func RenameRowset(ctx context.Context, f Factory, oldMeta types.RowsetHandle, dir string, newId types.RowsetId) (types.RowsetHandle, error) {
	oldRowset, err := f.Open(oldMeta, dir)
	if err != nil {
		return types.RowsetHandle{}, fmt.Errorf("open rowset %s: %w", oldMeta.Id, err)
	}
	reader, err := oldRowset.Load(ctx)
	if err != nil {
		return types.RowsetHandle{}, fmt.Errorf("load rowset %s: %w", oldMeta.Id, err)
	}
	defer reader.Close()

	newMeta := oldMeta
	newMeta.Id = newId
	writer, err := f.CreateWriter(newMeta, dir)
	if err != nil {
		return types.RowsetHandle{}, fmt.Errorf("create writer for rowset %s: %w", newId, err)
	}
	defer writer.Close()

	for {
		if err := ctx.Err(); err != nil {
			return types.RowsetHandle{}, err
		}
		row, ok, err := reader.Next()
		if err != nil {
			return types.RowsetHandle{}, fmt.Errorf("read row from rowset %s: %w", oldMeta.Id, err)
		}
		if !ok {
			break
		}
		if err := writer.Write(row); err != nil {
			return types.RowsetHandle{}, fmt.Errorf("write row to rowset %s: %w", newId, err)
		}
	}

	built, err := writer.Build()
	if err != nil {
		return types.RowsetHandle{}, fmt.Errorf("build rowset %s: %w", newId, err)
	}
	built.SegmentsOverlap = oldMeta.SegmentsOverlap
	built.State = oldMeta.State

	if err := oldRowset.Remove(); err != nil {
		return types.RowsetHandle{}, fmt.Errorf("remove old rowset %s: %w", oldMeta.Id, err)
	}

	return built, nil
}
