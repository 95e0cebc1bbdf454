// Package headerpb persists a types.TabletHeader to and loads it back
// from a single file, using the same magic/version/checksum footer
// framing the teacher's snapshot.go applies to whole-database snapshots
// (writeSnapshot/readFooter), shrunk to a single self-contained record
// since a tablet header carries no preceding data section of its own --
// rowset bytes live in their own hard-linked files, not inside the
// header.
//
// File layout:
//
//	4-byte magic "TSPH"
//	<MarshalVT-encoded TabletHeader body>
//	4-byte body length (little endian)
//	4-byte format version (little endian)
//	4-byte CRC-32C checksum over everything preceding it (little endian)
//	4-byte magic "TSPH"
package headerpb

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"

	"github.com/polarsignals/tabletsnap/pkg/types"
)

const (
	magic = "TSPH"

	// version 1: initial header format with checksum and version footer.
	version        = 1
	minReadVersion = version

	dirPerms  = os.FileMode(0o755)
	filePerms = os.FileMode(0o640)
)

type offsetWriter struct {
	w        io.Writer
	checksum hash.Hash32
}

func newOffsetWriter(w io.Writer) *offsetWriter {
	return &offsetWriter{w: w, checksum: crc32.New(crc32.MakeTable(crc32.Castagnoli))}
}

func (w *offsetWriter) Write(p []byte) (int, error) {
	if _, err := w.checksum.Write(p); err != nil {
		return 0, fmt.Errorf("header checksum: %w", err)
	}
	return w.w.Write(p)
}

// Save atomically persists h to path: it writes to a temp file in the
// same directory and renames over path only once the write and fsync
// have both succeeded, so a reader never observes a partially written
// header.
func Save(path string, h *types.TabletHeader) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerms)
	if err != nil {
		return fmt.Errorf("create header temp file: %w", err)
	}

	writeErr := func() error {
		defer f.Close()
		if err := writeHeader(f, h); err != nil {
			return err
		}
		return f.Sync()
	}()
	if writeErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("write header %s: %w", path, writeErr)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename header into place %s: %w", path, err)
	}
	return nil
}

func writeHeader(w io.Writer, h *types.TabletHeader) error {
	offW := newOffsetWriter(w)

	if _, err := offW.Write([]byte(magic)); err != nil {
		return err
	}
	body, err := h.MarshalVT()
	if err != nil {
		return fmt.Errorf("marshal tablet header: %w", err)
	}
	if _, err := offW.Write(body); err != nil {
		return err
	}
	if _, err := offW.Write(binary.LittleEndian.AppendUint32(nil, uint32(len(body)))); err != nil {
		return err
	}
	if _, err := offW.Write(binary.LittleEndian.AppendUint32(nil, version)); err != nil {
		return err
	}
	if _, err := w.Write(binary.LittleEndian.AppendUint32(nil, offW.checksum.Sum32())); err != nil {
		return err
	}
	_, err = w.Write([]byte(magic))
	return err
}

// Load reads and validates a header file previously written by Save.
func Load(path string) (*types.TabletHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open header %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat header %s: %w", path, err)
	}
	return readHeader(f, info.Size())
}

func readHeader(r io.ReaderAt, size int64) (*types.TabletHeader, error) {
	const footerTrailerLen = 16 // body-length(4) + version(4) + checksum(4) + magic(4)
	if size < int64(len(magic))+footerTrailerLen {
		return nil, fmt.Errorf("header file too small: %d bytes", size)
	}

	var head [4]byte
	if _, err := r.ReadAt(head[:], 0); err != nil {
		return nil, fmt.Errorf("read leading magic: %w", err)
	}
	if string(head[:]) != magic {
		return nil, fmt.Errorf("invalid header magic: %q", head[:])
	}

	var trailer [footerTrailerLen]byte
	if _, err := r.ReadAt(trailer[:], size-footerTrailerLen); err != nil {
		return nil, fmt.Errorf("read footer: %w", err)
	}
	if string(trailer[12:]) != magic {
		return nil, fmt.Errorf("invalid trailing magic: %q", trailer[12:])
	}

	bodyLen := binary.LittleEndian.Uint32(trailer[0:4])
	ver := binary.LittleEndian.Uint32(trailer[4:8])
	wantChecksum := binary.LittleEndian.Uint32(trailer[8:12])

	if ver > version {
		return nil, fmt.Errorf("cannot read header version %d: max supported %d", ver, version)
	}
	if ver < minReadVersion {
		return nil, fmt.Errorf("cannot read header version %d: min supported %d", ver, minReadVersion)
	}

	// Checksum covers everything but the trailing checksum+magic (the
	// last 8 bytes), matching the teacher's snapshot footer convention.
	checksumWriter := crc32.New(crc32.MakeTable(crc32.Castagnoli))
	if _, err := io.Copy(checksumWriter, io.NewSectionReader(r, 0, size-8)); err != nil {
		return nil, fmt.Errorf("compute checksum: %w", err)
	}
	if gotChecksum := checksumWriter.Sum32(); gotChecksum != wantChecksum {
		return nil, fmt.Errorf("header file corrupt: checksum mismatch: want %x, got %x", wantChecksum, gotChecksum)
	}

	wantBodyLen := size - int64(len(magic)) - footerTrailerLen
	if int64(bodyLen) != wantBodyLen {
		return nil, fmt.Errorf("header file corrupt: body length mismatch: footer says %d, file implies %d", bodyLen, wantBodyLen)
	}

	body := make([]byte, bodyLen)
	if _, err := r.ReadAt(body, int64(len(magic))); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	h := &types.TabletHeader{}
	if err := h.UnmarshalVT(body); err != nil {
		return nil, fmt.Errorf("unmarshal tablet header: %w", err)
	}
	return h, nil
}

// EnsureDir creates the directory a header file will live in.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, dirPerms)
}
