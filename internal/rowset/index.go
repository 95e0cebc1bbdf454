package rowset

import (
	"encoding/binary"
	"fmt"
	"os"
)

// legacyIndex is the alpha-era index file: just a row count, matching
// the single-segment, no-statistics index layout of the older physical
// format this module rewinds Modern rowsets to.
type legacyIndex struct {
	NumRows uint32
}

func writeLegacyIndex(path string, numRows int) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(numRows))
	return os.WriteFile(path, buf[:], 0o640)
}

func readLegacyIndex(path string) (legacyIndex, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return legacyIndex{}, err
	}
	if len(b) < 4 {
		return legacyIndex{}, fmt.Errorf("legacy index %s: truncated", path)
	}
	return legacyIndex{NumRows: binary.LittleEndian.Uint32(b[:4])}, nil
}

// modernIndex additionally carries min/max key statistics, the richer
// beta-format index that lets OverlapsWith compare two rowsets' key
// ranges without re-reading the data file.
type modernIndex struct {
	NumRows uint32
	MinKey  int64
	MaxKey  int64
}

func writeModernIndex(path string, numRows int, minKey, maxKey int64) error {
	buf := make([]byte, 20)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(numRows))
	binary.LittleEndian.PutUint64(buf[4:12], uint64(minKey))
	binary.LittleEndian.PutUint64(buf[12:20], uint64(maxKey))
	return os.WriteFile(path, buf, 0o640)
}

func readModernIndex(path string) (modernIndex, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return modernIndex{}, err
	}
	if len(b) < 20 {
		return modernIndex{}, fmt.Errorf("modern index %s: truncated", path)
	}
	return modernIndex{
		NumRows: binary.LittleEndian.Uint32(b[0:4]),
		MinKey:  int64(binary.LittleEndian.Uint64(b[4:12])),
		MaxKey:  int64(binary.LittleEndian.Uint64(b[12:20])),
	}, nil
}
