package tabletsnap

import (
	"context"
	"fmt"

	"github.com/polarsignals/tabletsnap/internal/rowset"
	"github.com/polarsignals/tabletsnap/pkg/types"
)

// normalize implements the Format Normaliser (spec.md 4.4): for every
// Modern rowset in metas, re-emit its data in the Legacy layout under
// dstDir via rowset.ConvertModernToLegacy; Legacy entries pass through
// unchanged. Returns a fresh slice only when at least one conversion
// happened, mirroring the spec's "if any conversion happened, replace
// the corresponding sub-list" wording -- callers that get back the same
// slice know nothing needed rewriting.
func normalize(ctx context.Context, factory rowset.Factory, metas []types.RowsetHandle, srcDir, dstDir string) ([]types.RowsetHandle, error) {
	var converted []types.RowsetHandle
	changed := false

	for i, m := range metas {
		if m.Type != types.RowsetModern {
			if changed {
				converted = append(converted, m)
			}
			continue
		}

		// The Materialiser has already hard-linked m's files into dstDir
		// under its original id, sharing an inode with the source rowset
		// under srcDir. Re-emitting under that same id would otherwise
		// have the legacy writer's O_CREATE|O_TRUNC truncate the shared
		// inode in place, corrupting the live source. Unlinking the
		// dstDir copy first drops only this directory's link to it.
		if linked, err := factory.Open(m, dstDir); err == nil {
			if err := linked.Remove(); err != nil {
				return nil, fmt.Errorf("unlink linked copy of rowset %s: %w", m.Id, err)
			}
		}

		out, err := rowset.ConvertModernToLegacy(ctx, factory, m, srcDir, dstDir)
		if err != nil {
			return nil, fmt.Errorf("normalize rowset %s: %w", m.Id, err)
		}
		if !changed {
			converted = append(converted, metas[:i]...)
			changed = true
		}
		converted = append(converted, out)
	}

	if !changed {
		return metas, nil
	}
	return converted, nil
}
