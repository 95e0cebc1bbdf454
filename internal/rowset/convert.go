package rowset

import (
	"context"
	"fmt"

	"github.com/polarsignals/tabletsnap/pkg/types"
)

// ConvertModernToLegacy re-emits a Modern-layout rowset's data under
// dstDir in the Legacy physical layout, keeping the same id. It is the
// RowsetConverter.convert_beta_to_alpha collaborator from spec.md 6,
// invoked by the Format Normaliser (spec.md 4.4) when a V1 snapshot is
// requested.
func ConvertModernToLegacy(ctx context.Context, f Factory, meta types.RowsetHandle, srcDir, dstDir string) (types.RowsetHandle, error) {
	if meta.Type != types.RowsetModern {
		return types.RowsetHandle{}, fmt.Errorf("convert beta to alpha: rowset %s is not modern", meta.Id)
	}

	src, err := f.Open(meta, srcDir)
	if err != nil {
		return types.RowsetHandle{}, fmt.Errorf("open source rowset: %w", err)
	}
	reader, err := src.Load(ctx)
	if err != nil {
		return types.RowsetHandle{}, fmt.Errorf("load source rowset: %w", err)
	}
	defer reader.Close()

	legacyMeta := meta
	legacyMeta.Type = types.RowsetLegacy
	w, err := f.CreateWriter(legacyMeta, dstDir)
	if err != nil {
		return types.RowsetHandle{}, fmt.Errorf("create legacy writer: %w", err)
	}
	defer w.Close()

	for {
		if err := ctx.Err(); err != nil {
			return types.RowsetHandle{}, err
		}
		row, ok, err := reader.Next()
		if err != nil {
			return types.RowsetHandle{}, fmt.Errorf("read row during conversion: %w", err)
		}
		if !ok {
			break
		}
		if err := w.Write(row); err != nil {
			return types.RowsetHandle{}, fmt.Errorf("write converted row: %w", err)
		}
	}

	return w.Build()
}
