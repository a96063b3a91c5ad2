// Package pagefile implements the append-only page array backing a
// relation's primary data file and overflow file. It provides the
// get/put/append-page operations spec.md §4.3 calls for, plus nextTuple to
// read a single tuple record directly out of a page on disk.
//
// Adapted from github.com/chirst/cdb/pager: same page-cache-over-a-storage-
// interface shape, but with the dirty-page/journal machinery removed (MALH
// has no crash-recovery non-goal to honor) and writes applied immediately.
package pagefile

import (
	"fmt"

	"github.com/relhash/malh/page"
	"github.com/relhash/malh/pagefile/cache"
)

const cacheSize = 1000

// File is one of a relation's two page arrays (primary or overflow).
type File struct {
	store    storage
	cache    *cache.PageCache
	lock     lock
	nextID   int32
	readOnly bool
}

// New opens or creates the page array at path. If useMemory is true, path
// is ignored and the array lives only in memory for the lifetime of the
// process. If mustExist is true the file must already exist (used when
// opening an existing relation); otherwise it is created if missing, and an
// existing file is opened as it is.
func New(useMemory bool, path string, mustExist bool) (*File, error) {
	var s storage
	var err error
	if useMemory {
		s = newMemoryStorage()
	} else {
		s, err = newFileStorage(path, mustExist)
	}
	if err != nil {
		return nil, err
	}
	var l lock
	if fd, ok := s.fd(); ok {
		l = newPlatformLock(fd)
	} else {
		l = &memoryLock{}
	}
	return &File{
		store:  s,
		cache:  cache.New(cacheSize),
		lock:   l,
		nextID: 0,
	}, nil
}

// Close releases the underlying storage.
func (f *File) Close() error {
	return f.store.Close()
}

// Lock acquires an exclusive, cross-process advisory lock for write access.
func (f *File) Lock() error { return f.lock.Lock() }

// Unlock releases a lock acquired by Lock.
func (f *File) Unlock() { f.lock.Unlock() }

// RLock acquires a shared, cross-process advisory lock for read access.
func (f *File) RLock() error { return f.lock.RLock() }

// RUnlock releases a lock acquired by RLock.
func (f *File) RUnlock() { f.lock.RUnlock() }

// AddPage appends a new, empty page to the file and returns its id.
func (f *File) AddPage() (int32, error) {
	id := f.nextID
	f.nextID++
	p := page.New()
	if err := f.writeAt(id, p.Bytes()); err != nil {
		return 0, fmt.Errorf("pagefile: allocating page %d: %w", id, err)
	}
	f.cache.Add(id, p.Bytes())
	return id, nil
}

// SetNextID seeds the file's next-page-id counter. Used by OpenRelation to
// resume allocation after npages pages have already been written by a
// previous process.
func (f *File) SetNextID(n int32) {
	f.nextID = n
}

// GetPage returns the page with the given id, reading through the cache.
func (f *File) GetPage(id int32) (*page.Page, error) {
	if cached, hit := f.cache.Get(id); hit {
		buf := make([]byte, page.Size)
		copy(buf, cached)
		return page.Wrap(buf), nil
	}
	buf := make([]byte, page.Size)
	if _, err := f.store.ReadAt(buf, int64(id)*page.Size); err != nil {
		return nil, fmt.Errorf("pagefile: reading page %d: %w", id, err)
	}
	cp := make([]byte, page.Size)
	copy(cp, buf)
	f.cache.Add(id, cp)
	return page.Wrap(buf), nil
}

// PutPage writes p back as page id, immediately (there is no write-back
// cache: the bytes are handed to the storage before PutPage returns). A
// failed or short write is returned as an error; it is not retried and
// does not abort the process.
func (f *File) PutPage(id int32, p *page.Page) error {
	if err := f.writeAt(id, p.Bytes()); err != nil {
		return fmt.Errorf("pagefile: writing page %d: %w", id, err)
	}
	cp := make([]byte, page.Size)
	copy(cp, p.Bytes())
	f.cache.Add(id, cp)
	return nil
}

func (f *File) writeAt(id int32, buf []byte) error {
	_, err := f.store.WriteAt(buf, int64(id)*page.Size)
	return err
}

// NextTuple reads the tuple at byte offset off within page id and returns
// it along with the offset of the tuple immediately following it.
func (f *File) NextTuple(id int32, off int) (tuple string, next int, err error) {
	p, err := f.GetPage(id)
	if err != nil {
		return "", 0, err
	}
	tuple, next = p.TupleAt(off)
	return tuple, next, nil
}
