package pathalloc

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestAllocateIsUniqueWithinSameClockTick(t *testing.T) {
	restore := clockNow
	clockNow = func() time.Time { return fixedNow }
	defer func() { clockNow = restore }()

	a := New()
	p1 := a.Allocate("/data", 30)
	p2 := a.Allocate("/data", 30)
	require.NotEqual(t, p1, p2)
}

func TestAllocatePathShape(t *testing.T) {
	restore := clockNow
	clockNow = func() time.Time { return fixedNow }
	defer func() { clockNow = restore }()

	a := New()
	p := a.Allocate("/data/root", 45)
	require.Equal(t, filepath.Join("/data/root", "snapshot"), filepath.Dir(p))
	require.Contains(t, filepath.Base(p), ".45")
}
