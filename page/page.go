// Package page implements the fixed-size page buffer used by both the
// primary data file and the overflow file: a small header (tuple count,
// free space, overflow pointer) followed by a packed sequence of
// null-terminated tuple records. This is the MALH analogue of the
// b-tree page layout in github.com/chirst/cdb/pager; the header shape and
// growth-from-the-front packing are new (MALH pages never need ordered
// key offsets the way a b-tree page does), but the byte-level accessor
// style (binary.LittleEndian reads/writes over a raw []byte) is the
// teacher's.
package page

import (
	"encoding/binary"
	"errors"
)

const (
	// Size is the fixed size, in bytes, of every page in both the primary
	// and overflow files.
	Size = 1024

	ntuplesOffset   = 0
	ntuplesSize     = 4
	freeSpaceOffset = ntuplesOffset + ntuplesSize
	freeSpaceSize   = 4
	ovflowOffset    = freeSpaceOffset + freeSpaceSize
	ovflowSize      = 4
	// HeaderSize is the number of header bytes preceding the tuple region.
	HeaderSize = ovflowOffset + ovflowSize

	// NoPage is the sentinel page id meaning "no such page" - terminates an
	// overflow chain and marks a page with no overflow yet.
	NoPage int32 = -1
)

// ErrFull is returned by Add when a tuple does not fit in the remaining
// free space of the page.
var ErrFull = errors.New("page: tuple does not fit in remaining free space")

// Page is a Size-byte buffer: a header plus a tuple region packed from the
// start of the page forward in insertion order.
type Page struct {
	content []byte
}

// New returns an empty page with a full-size free tuple region and no
// overflow page.
func New() *Page {
	p := &Page{content: make([]byte, Size)}
	p.setFreeSpace(Size - HeaderSize)
	p.SetOvflow(NoPage)
	return p
}

// Wrap adapts an existing Size-byte buffer (as read from a pagefile) into a
// Page without copying. Callers must not further mutate b outside of the
// returned Page.
func Wrap(b []byte) *Page {
	if len(b) != Size {
		panic("page: Wrap requires a buffer of exactly Size bytes")
	}
	return &Page{content: b}
}

// Bytes returns the raw backing buffer, suitable for writing back to a
// pagefile.
func (p *Page) Bytes() []byte {
	return p.content
}

// NTuples returns the number of tuples currently stored on the page.
func (p *Page) NTuples() int {
	return int(binary.LittleEndian.Uint32(p.content[ntuplesOffset : ntuplesOffset+ntuplesSize]))
}

func (p *Page) setNTuples(n int) {
	binary.LittleEndian.PutUint32(p.content[ntuplesOffset:ntuplesOffset+ntuplesSize], uint32(n))
}

// FreeSpace returns the number of unused bytes remaining in the tuple
// region.
func (p *Page) FreeSpace() int {
	return int(binary.LittleEndian.Uint32(p.content[freeSpaceOffset : freeSpaceOffset+freeSpaceSize]))
}

func (p *Page) setFreeSpace(n int) {
	binary.LittleEndian.PutUint32(p.content[freeSpaceOffset:freeSpaceOffset+freeSpaceSize], uint32(n))
}

// Ovflow returns the id of this page's overflow page, or NoPage if it has
// none.
func (p *Page) Ovflow() int32 {
	return int32(binary.LittleEndian.Uint32(p.content[ovflowOffset : ovflowOffset+ovflowSize]))
}

// SetOvflow sets this page's overflow pointer.
func (p *Page) SetOvflow(id int32) {
	binary.LittleEndian.PutUint32(p.content[ovflowOffset:ovflowOffset+ovflowSize], uint32(id))
}

// usedRegion returns how many bytes of the tuple region are occupied.
func (p *Page) usedRegion() int {
	return Size - HeaderSize - p.FreeSpace()
}

// Add appends tuple, null-terminated, to the end of the used tuple region.
// It returns ErrFull if the tuple (plus its terminator) does not fit in the
// remaining free space; the page is left unchanged in that case.
func (p *Page) Add(tuple string) error {
	need := len(tuple) + 1
	if need > p.FreeSpace() {
		return ErrFull
	}
	start := HeaderSize + p.usedRegion()
	copy(p.content[start:start+len(tuple)], tuple)
	p.content[start+len(tuple)] = 0
	p.setFreeSpace(p.FreeSpace() - need)
	p.setNTuples(p.NTuples() + 1)
	return nil
}

// TupleAt reads the null-terminated tuple starting at byte offset off
// within the tuple region (i.e. at absolute offset HeaderSize+off) and
// returns it without its terminator, plus the offset immediately
// following the terminator (useful to advance a scan cursor).
func (p *Page) TupleAt(off int) (tuple string, next int) {
	start := HeaderSize + off
	end := start
	for end < len(p.content) && p.content[end] != 0 {
		end++
	}
	return string(p.content[start:end]), off + (end - start) + 1
}
