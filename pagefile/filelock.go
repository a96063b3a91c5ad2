package pagefile

import (
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sys/unix"
)

// lock is a cross-process RWMutex-alike. It is implemented by memoryLock
// when a File has no backing descriptor, and by flockLock when it does.
// Adapted from github.com/chirst/cdb/pager/filelock.go, swapping the raw
// syscall.Flock calls for golang.org/x/sys/unix.Flock, the way
// Giulio2002/gdbx uses x/sys for portable low-level access to its backing
// storage engines.
type lock interface {
	Lock() error
	Unlock()
	RLock() error
	RUnlock()
}

// memoryLock backs a File with no file descriptor (useMemory == true). A
// single process never needs cross-process exclusion over its own memory
// buffer, so this degrades to a plain in-process RWMutex.
type memoryLock struct {
	l sync.RWMutex
}

func (m *memoryLock) Lock() error  { m.l.Lock(); return nil }
func (m *memoryLock) Unlock()      { m.l.Unlock() }
func (m *memoryLock) RLock() error { m.l.RLock(); return nil }
func (m *memoryLock) RUnlock()     { m.l.RUnlock() }

// newPlatformLock returns a lock implementation for the detected platform.
func newPlatformLock(fd uintptr) lock {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		panic(fmt.Sprintf("pagefile: file lock does not support %s", runtime.GOOS))
	}
	return &flockLock{fd: int(fd)}
}

// flockLock is an advisory, cross-process lock built on flock(2). It allows
// many readers or one writer but, like the teacher's implementation, does
// not prevent writer starvation, and treats an unlock failure as
// unrecoverable.
type flockLock struct {
	fd int
	// procLock additionally serializes goroutines within this process,
	// since flock only arbitrates across processes.
	procLock sync.RWMutex
}

func (l *flockLock) Lock() error {
	l.procLock.Lock()
	if err := unix.Flock(l.fd, unix.LOCK_EX); err != nil {
		l.procLock.Unlock()
		return fmt.Errorf("pagefile: LOCK_EX: %w", err)
	}
	return nil
}

func (l *flockLock) Unlock() {
	if err := unix.Flock(l.fd, unix.LOCK_UN); err != nil {
		panic(fmt.Sprintf("pagefile: LOCK_UN: %s", err))
	}
	l.procLock.Unlock()
}

func (l *flockLock) RLock() error {
	l.procLock.RLock()
	if err := unix.Flock(l.fd, unix.LOCK_SH); err != nil {
		l.procLock.RUnlock()
		return fmt.Errorf("pagefile: LOCK_SH: %w", err)
	}
	return nil
}

func (l *flockLock) RUnlock() {
	if err := unix.Flock(l.fd, unix.LOCK_UN); err != nil {
		panic(fmt.Sprintf("pagefile: RUnlock LOCK_UN: %s", err))
	}
	l.procLock.RUnlock()
}
