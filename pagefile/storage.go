// Storage provides an interface for accessing the filesystem. This allows a
// pagefile.File to run on an in memory buffer if desired. Adapted from
// github.com/chirst/cdb/pager/storage.go; this version drops the
// journal/crash-recovery machinery (MALH explicitly has no crash recovery
// non-goal) and instead exposes the raw file descriptor needed for advisory
// locking.
package pagefile

import (
	"fmt"
	"os"

	"github.com/relhash/malh/page"
)

type storage interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Close() error
	// fd returns the OS file descriptor backing this storage, for advisory
	// locking, and false if this storage has no such descriptor (i.e. it is
	// in-memory).
	fd() (uintptr, bool)
}

type memoryStorage struct {
	buf []byte
}

func newMemoryStorage() storage {
	return &memoryStorage{}
}

func (m *memoryStorage) WriteAt(p []byte, off int64) (int, error) {
	end := int(off) + len(p)
	for len(m.buf) < end {
		m.buf = append(m.buf, make([]byte, page.Size)...)
	}
	copy(m.buf[off:end], p)
	return len(p), nil
}

func (m *memoryStorage) ReadAt(p []byte, off int64) (int, error) {
	end := int(off) + len(p)
	for len(m.buf) < end {
		m.buf = append(m.buf, make([]byte, page.Size)...)
	}
	copy(p, m.buf[off:end])
	return len(p), nil
}

func (m *memoryStorage) Close() error { return nil }

func (m *memoryStorage) fd() (uintptr, bool) { return 0, false }

type fileStorage struct {
	file *os.File
}

// newFileStorage opens path for read/write access. When mustExist is false
// the file is created if it does not already exist (used by newRelation);
// when true a missing file is returned as an error (used by openRelation).
func newFileStorage(path string, mustExist bool) (storage, error) {
	flags := os.O_RDWR
	if !mustExist {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("pagefile: opening %s: %w", path, err)
	}
	return &fileStorage{file: f}, nil
}

func (s *fileStorage) ReadAt(p []byte, off int64) (int, error) {
	return s.file.ReadAt(p, off)
}

func (s *fileStorage) WriteAt(p []byte, off int64) (int, error) {
	return s.file.WriteAt(p, off)
}

func (s *fileStorage) Close() error {
	return s.file.Close()
}

func (s *fileStorage) fd() (uintptr, bool) {
	return s.file.Fd(), true
}
