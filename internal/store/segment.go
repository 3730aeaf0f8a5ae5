package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tysonmote/gommap"
)

// segment is one fixed-size, memory-mapped slice of the log holding
// newline-terminated text records directly.
type segment struct {
	file *os.File
	mmap gommap.MMap
	size uint64 // segmentSize, fixed for the file's lifetime once mapped
}

func segmentPath(dir, baseName string, index uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%05d.log", baseName, index))
}

// createOrOpenSegment opens (creating if absent) the segment file at index,
// grows it to exactly segmentSize bytes, and maps it read/write.
func createOrOpenSegment(dir, baseName string, index uint64, segmentSize uint64) (*segment, error) {
	f, err := os.OpenFile(segmentPath(dir, baseName, index), os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if uint64(fi.Size()) != segmentSize {
		if err := f.Truncate(int64(segmentSize)); err != nil {
			f.Close()
			return nil, err
		}
	}

	m, err := gommap.Map(f.Fd(), gommap.PROT_READ|gommap.PROT_WRITE, gommap.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &segment{file: f, mmap: m, size: segmentSize}, nil
}

// openSegmentReadOnly maps an existing, already-sealed-or-active segment
// for reading without taking out a write mapping. Used by ReadNext and
// ReadAll for segments other than the active one; neither mutates a
// segment's bytes.
func openSegmentReadOnly(dir, baseName string, index uint64) (*segment, error) {
	f, err := os.Open(segmentPath(dir, baseName, index))
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	m, err := gommap.Map(f.Fd(), gommap.PROT_READ, gommap.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &segment{file: f, mmap: m, size: uint64(fi.Size())}, nil
}

// writeAt copies p into the mapped region starting at off. The caller
// guarantees off+len(p) <= size.
func (s *segment) writeAt(off uint64, p []byte) {
	copy(s.mmap[off:off+uint64(len(p))], p)
}

// flush synchronously pushes the mapped view's dirty pages to disk.
func (s *segment) flush() error {
	return s.mmap.Sync(gommap.MS_SYNC)
}

// close unmaps and closes the underlying file without truncating it -
// segment files are always exactly segmentSize bytes.
func (s *segment) close() error {
	if err := s.mmap.UnsafeUnmap(); err != nil {
		return err
	}
	return s.file.Close()
}
