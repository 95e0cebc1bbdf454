// Package versiongraph implements the Rowset Selector's "shortest
// covering path" search (spec.md 4.2): given a tablet's visible rowsets,
// find the minimal-length sequence of version intervals that partitions
// [0, V] with no gaps. The rowsets are indexed in a google/btree.BTree
// ordered by Version.Start, the same structure frostdb's Granule.Index()
// uses to keep parts ordered for range queries (granule.go), and the
// resulting path's coverage is double-checked with a roaring.Bitmap so a
// silent gap can never slip through a greedy-algorithm bug.
package versiongraph

import (
	"sort"

	"github.com/RoaringBitmap/roaring"
	"github.com/google/btree"

	"github.com/polarsignals/tabletsnap/pkg/types"
)

// item adapts a RowsetHandle to btree.Item, ordered by version start and,
// for ties, by the widest interval first so Ascend naturally prefers
// wider rowsets when the greedy search below breaks ties.
type item struct {
	h types.RowsetHandle
}

func (a item) Less(than btree.Item) bool {
	b := than.(item)
	if a.h.Version.Start != b.h.Version.Start {
		return a.h.Version.Start < b.h.Version.Start
	}
	return a.h.Version.End > b.h.Version.End
}

// Graph indexes one tablet's visible rowsets plus its standalone
// incremental (single-delta) rowsets, keyed by version.
type Graph struct {
	visible     *btree.BTree
	incremental map[int64]types.RowsetHandle
	maxEnd      int64
	hasAny      bool
}

// New returns an empty Graph. degree matches frostdb's NewGranule btree
// degree of 2, tuned for the small fan-out typical of a tablet's rowset
// count rather than a wide index.
func New() *Graph {
	return &Graph{
		visible:     btree.New(2),
		incremental: make(map[int64]types.RowsetHandle),
	}
}

// AddVisible indexes a visible rowset handle.
func (g *Graph) AddVisible(h types.RowsetHandle) {
	g.visible.ReplaceOrInsert(item{h})
	if !g.hasAny || h.Version.End > g.maxEnd {
		g.maxEnd = h.Version.End
		g.hasAny = true
	}
}

// AddIncremental indexes a single-delta incremental rowset by its
// version (start == end).
func (g *Graph) AddIncremental(h types.RowsetHandle) {
	g.incremental[h.Version.Start] = h
}

// MaxVisibleEnd returns the tablet's highest visible end-version, and
// false if no visible rowset has been added.
func (g *Graph) MaxVisibleEnd() (int64, bool) {
	return g.maxEnd, g.hasAny
}

// IncrementalByVersion returns the incremental rowset for the single
// delta v, if one was registered.
func (g *Graph) IncrementalByVersion(v int64) (types.RowsetHandle, bool) {
	h, ok := g.incremental[v]
	return h, ok
}

// CoveringPath returns the shortest sequence of visible rowsets whose
// version intervals partition [0, target] with no gaps, preferring the
// candidate that reaches furthest at each step (on a tie, the btree-
// earlier one, i.e. the one with the smaller Start). It
// returns ErrGap if no such path exists.
func (g *Graph) CoveringPath(target int64) ([]types.RowsetHandle, error) {
	if target < 0 {
		return nil, errGap
	}

	var ordered []types.RowsetHandle
	g.visible.Ascend(func(i btree.Item) bool {
		ordered = append(ordered, i.(item).h)
		return true
	})

	var path []types.RowsetHandle
	covered := int64(-1) // [0, covered] already covered; -1 means nothing yet
	idx := 0
	for covered < target {
		bestIdx := -1
		bestEnd := covered
		// Every rowset whose Start falls within the already-covered
		// frontier is a candidate for extending it; among them only the
		// one with the greatest End can ever matter again, so it is
		// safe to consume the whole window in one pass.
		for idx < len(ordered) && ordered[idx].Version.Start <= covered+1 {
			if ordered[idx].Version.End > bestEnd {
				bestEnd = ordered[idx].Version.End
				bestIdx = idx
			}
			idx++
		}
		if bestIdx == -1 {
			return nil, errGap
		}
		path = append(path, ordered[bestIdx])
		covered = bestEnd
	}

	if err := verifyCoverage(path, target); err != nil {
		return nil, err
	}
	return path, nil
}

// verifyCoverage cross-checks a candidate path with a roaring bitmap: the
// union of [Start, End] ranges must have exactly target+1 set bits, i.e.
// cover [0, target] with no gaps (overlaps are fine; the OR is idempotent).
func verifyCoverage(path []types.RowsetHandle, target int64) error {
	bm := roaring.New()
	for _, h := range path {
		bm.AddRange(uint64(h.Version.Start), uint64(h.Version.End)+1)
	}
	if bm.GetCardinality() != uint64(target+1) {
		return errGap
	}
	if bm.Minimum() != 0 || uint64(bm.Maximum()) != uint64(target) {
		return errGap
	}
	return nil
}

// SortByVersion orders handles ascending by start version, descending by
// end on ties -- used when the selector needs a deterministic list for
// logging or for building a header's visible list.
func SortByVersion(handles []types.RowsetHandle) {
	sort.Slice(handles, func(i, j int) bool {
		if handles[i].Version.Start != handles[j].Version.Start {
			return handles[i].Version.Start < handles[j].Version.Start
		}
		return handles[i].Version.End > handles[j].Version.End
	})
}

type gapError struct{}

func (gapError) Error() string { return "version graph cannot cover requested range: gap found" }

var errGap = gapError{}

// ErrGap is returned by CoveringPath when the visible rowsets cannot
// cover [0, target] without a gap.
var ErrGap error = errGap
