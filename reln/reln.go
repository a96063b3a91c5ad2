// Package reln implements the Relation: the top-level linear-hashed bucket
// address space (depth, split pointer, page counts), insertion with
// load-factor-driven splitting, and bucket addressing. Grounded on
// original_source/reln.c (newRelation, openRelation, closeRelation,
// addToRelation, splitRelation, relationStats) and structurally on
// github.com/chirst/cdb/kv (KV wraps a pager the way Reln wraps two
// pagefile.Files; New/parseSchema mirrors NewRelation/openRelation).
package reln

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/relhash/malh/bits"
	"github.com/relhash/malh/chash"
	"github.com/relhash/malh/page"
	"github.com/relhash/malh/pagefile"
	"github.com/relhash/malh/tuple"
)

// Mode is the access mode a relation was opened with.
type Mode int

const (
	// ModeRead opens a relation for querying only; AddToRelation and Close
	// never write the metadata file.
	ModeRead Mode = iota
	// ModeWrite opens a relation for insertion; Close flushes metadata.
	ModeWrite
)

// Reln is an open relation: its metadata plus its two page files.
type Reln struct {
	name      string
	useMemory bool
	mode      Mode

	nattrs  int
	depth   uint
	sp      int32
	npages  int32
	novflow int32
	ntups   int64
	cv      chash.Vector

	data   *pagefile.File
	ovflow *pagefile.File
}

// memState is what a memory-backed relation registers under its name so a
// later OpenRelation(useMemory: true, ...) in the same process can find the
// same backing page files again - memory relations have no disk file an
// independent Open could re-read.
type memState struct {
	meta   infoRecord
	data   *pagefile.File
	ovflow *pagefile.File
}

var memRegistry = struct {
	mu sync.Mutex
	m  map[string]*memState
}{m: map[string]*memState{}}

func infoPath(name string) string   { return name + ".info" }
func dataPath(name string) string   { return name + ".data" }
func ovflowPath(name string) string { return name + ".ovflow" }

// NewRelation creates the backing files for a new, empty relation with
// npages0 primary pages already allocated at depth depth0 (sp starts at 0;
// npages0 must equal 1<<depth0, so the npages == 2^d + sp invariant holds
// from the start, and any other value is rejected with an error) and
// returns it open for writing.
func NewRelation(useMemory bool, name string, nattrs int, npages0 int32, depth0 uint, cvSpec string) (*Reln, error) {
	if nattrs < 1 {
		return nil, fmt.Errorf("reln: nattrs must be >= 1, got %d", nattrs)
	}
	if npages0 != int32(1)<<depth0 {
		return nil, fmt.Errorf("reln: npages0 (%d) must equal 2^depth0 (%d) at creation", npages0, int32(1)<<depth0)
	}
	cv, err := chash.ParseVector(cvSpec, nattrs)
	if err != nil {
		return nil, err
	}
	if !useMemory && ExistsRelation(name) {
		return nil, fmt.Errorf("reln: relation %q already exists", name)
	}

	dataFile, err := pagefile.New(useMemory, dataPath(name), false)
	if err != nil {
		return nil, err
	}
	ovflowFile, err := pagefile.New(useMemory, ovflowPath(name), false)
	if err != nil {
		return nil, err
	}
	for i := int32(0); i < npages0; i++ {
		if _, err := dataFile.AddPage(); err != nil {
			return nil, fmt.Errorf("reln: allocating initial page %d: %w", i, err)
		}
	}

	r := &Reln{
		name:      name,
		useMemory: useMemory,
		mode:      ModeWrite,
		nattrs:    nattrs,
		depth:     depth0,
		sp:        0,
		npages:    npages0,
		ntups:     0,
		cv:        cv,
		data:      dataFile,
		ovflow:    ovflowFile,
	}
	if err := r.data.Lock(); err != nil {
		return nil, err
	}

	if useMemory {
		memRegistry.mu.Lock()
		memRegistry.m[name] = &memState{meta: r.toInfo(), data: dataFile, ovflow: ovflowFile}
		memRegistry.mu.Unlock()
		return r, nil
	}
	if err := writeInfo(infoPath(name), r.toInfo()); err != nil {
		return nil, err
	}
	return r, nil
}

// ExistsRelation reports whether a relation named name has already been
// created, either on disk or (within this process) in memory.
func ExistsRelation(name string) bool {
	memRegistry.mu.Lock()
	_, ok := memRegistry.m[name]
	memRegistry.mu.Unlock()
	if ok {
		return true
	}
	_, err := os.Stat(infoPath(name))
	return err == nil
}

// OpenRelation opens an existing relation for reading or writing.
func OpenRelation(useMemory bool, name string, mode Mode) (*Reln, error) {
	if useMemory {
		memRegistry.mu.Lock()
		st, ok := memRegistry.m[name]
		memRegistry.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("reln: no in-memory relation named %q", name)
		}
		r := fromInfo(st.meta)
		r.name = name
		r.useMemory = true
		r.mode = mode
		r.data = st.data
		r.ovflow = st.ovflow
		if mode == ModeWrite {
			if err := r.data.Lock(); err != nil {
				return nil, err
			}
		} else if err := r.data.RLock(); err != nil {
			return nil, err
		}
		return r, nil
	}

	info, err := readInfo(infoPath(name))
	if err != nil {
		return nil, err
	}
	r := fromInfo(info)
	r.name = name
	r.mode = mode

	dataFile, err := pagefile.New(false, dataPath(name), true)
	if err != nil {
		return nil, err
	}
	ovflowFile, err := pagefile.New(false, ovflowPath(name), true)
	if err != nil {
		return nil, err
	}
	dataFile.SetNextID(r.npages)
	ovflowFile.SetNextID(r.novflow)
	r.data = dataFile
	r.ovflow = ovflowFile

	if mode == ModeWrite {
		if err := r.data.Lock(); err != nil {
			return nil, err
		}
	} else if err := r.data.RLock(); err != nil {
		return nil, err
	}
	return r, nil
}

// Close releases the relation's files, flushing metadata first if it was
// opened for writing.
func (r *Reln) Close() error {
	if r.mode == ModeWrite {
		r.data.Unlock()
		if r.useMemory {
			memRegistry.mu.Lock()
			if st, ok := memRegistry.m[r.name]; ok {
				st.meta = r.toInfo()
			}
			memRegistry.mu.Unlock()
		} else if err := writeInfo(infoPath(r.name), r.toInfo()); err != nil {
			return err
		}
	} else {
		r.data.RUnlock()
	}
	if r.useMemory {
		return nil
	}
	if err := r.data.Close(); err != nil {
		return err
	}
	return r.ovflow.Close()
}

// Nattrs, Depth, SplitPointer, NPages and NTuples expose the relation's
// current state, mirroring the accessors reln.c gives the rest of the
// system (nattrs, depth, splitp, npages, ntuples).
func (r *Reln) Nattrs() int                { return r.nattrs }
func (r *Reln) Depth() uint                { return r.depth }
func (r *Reln) SplitPointer() int32        { return r.sp }
func (r *Reln) NPages() int32              { return r.npages }
func (r *Reln) NTuples() int64             { return r.ntups }
func (r *Reln) ChoiceVector() chash.Vector { return r.cv }

// capacity returns C, the nominal primary-page tuple capacity used to
// drive splitting, per spec.md §4.6.
func (r *Reln) capacity() int {
	return page.Size / (10 * r.nattrs)
}

// bucketOf returns the primary bucket id a composite hash addresses, per
// spec.md §4.6.
func (r *Reln) bucketOf(h uint32) int32 {
	b := int32(bits.LoBits(h, r.depth))
	if b < r.sp {
		b = int32(bits.LoBits(h, r.depth+1))
	}
	return b
}

// AddToRelation inserts tuple t, splitting bucket sp first if the
// load-factor trigger fires, and returns the primary bucket id it was
// filed under.
func (r *Reln) AddToRelation(t string) (int32, error) {
	if r.mode != ModeWrite {
		return 0, fmt.Errorf("reln: %q is not open for writing", r.name)
	}
	fields, err := tuple.Split(t, r.nattrs)
	if err != nil {
		return 0, err
	}
	if c := r.capacity(); c > 0 && (r.ntups+1)%int64(c) == 0 {
		if err := r.split(); err != nil {
			return 0, fmt.Errorf("reln: split failed: %w", err)
		}
	}
	h := r.cv.Compose(fields)
	b := r.bucketOf(h)
	if err := r.insertIntoBucket(b, t); err != nil {
		return 0, fmt.Errorf("reln: insert failed: %w", err)
	}
	r.ntups++
	return b, nil
}

// insertIntoBucket walks bucket's primary page then its overflow chain,
// placing t in the first page with room, allocating a new overflow page at
// the tail of the chain if none has room. Per spec.md §4.6.
func (r *Reln) insertIntoBucket(bucket int32, t string) error {
	primary, err := r.data.GetPage(bucket)
	if err != nil {
		return err
	}
	if err := primary.Add(t); err == nil {
		return r.data.PutPage(bucket, primary)
	} else if err != page.ErrFull {
		return err
	}

	ov := primary.Ovflow()
	if ov == page.NoPage {
		newID, err := r.allocateOvflowWith(t)
		if err != nil {
			return err
		}
		primary.SetOvflow(newID)
		return r.data.PutPage(bucket, primary)
	}

	prevID := ov
	for {
		cur, err := r.ovflow.GetPage(prevID)
		if err != nil {
			return err
		}
		if err := cur.Add(t); err == nil {
			return r.ovflow.PutPage(prevID, cur)
		} else if err != page.ErrFull {
			return err
		}
		next := cur.Ovflow()
		if next == page.NoPage {
			newID, err := r.allocateOvflowWith(t)
			if err != nil {
				return err
			}
			cur.SetOvflow(newID)
			return r.ovflow.PutPage(prevID, cur)
		}
		prevID = next
	}
}

// allocateOvflowWith appends a fresh overflow page already containing t and
// returns its id.
func (r *Reln) allocateOvflowWith(t string) (int32, error) {
	newID, err := r.ovflow.AddPage()
	if err != nil {
		return 0, err
	}
	np, err := r.ovflow.GetPage(newID)
	if err != nil {
		return 0, err
	}
	if err := np.Add(t); err != nil {
		return 0, fmt.Errorf("tuple does not fit in an empty overflow page: %w", err)
	}
	if err := r.ovflow.PutPage(newID, np); err != nil {
		return 0, err
	}
	r.novflow++
	return newID, nil
}

// split performs one linear-hash split of bucket sp, per spec.md §4.6: a
// new primary page is appended, every tuple in the old bucket is re-hashed
// at depth+1 and either kept or relocated, the old chain's primary page is
// reset, kept tuples are re-inserted, and the split pointer advances.
func (r *Reln) split() error {
	if _, err := r.data.AddPage(); err != nil {
		return err
	}
	r.npages++

	bucket := r.sp
	var keep []string

	pid := bucket
	f := r.data
	for {
		p, err := f.GetPage(pid)
		if err != nil {
			return err
		}
		off := 0
		n := p.NTuples()
		for i := 0; i < n; i++ {
			var tup string
			tup, off = p.TupleAt(off)
			fields, err := tuple.Split(tup, r.nattrs)
			if err != nil {
				return fmt.Errorf("split: corrupt tuple on page %d: %w", pid, err)
			}
			h := r.cv.Compose(fields)
			newBucket := int32(bits.LoBits(h, r.depth+1))
			if newBucket == bucket {
				keep = append(keep, tup)
			} else if err := r.insertIntoBucket(newBucket, tup); err != nil {
				return fmt.Errorf("split: relocating tuple to bucket %d: %w", newBucket, err)
			}
		}
		ov := p.Ovflow()
		if ov == page.NoPage {
			break
		}
		pid = ov
		f = r.ovflow
	}

	if err := r.data.PutPage(bucket, page.New()); err != nil {
		return err
	}
	for _, tup := range keep {
		if err := r.insertIntoBucket(bucket, tup); err != nil {
			return fmt.Errorf("split: re-inserting into bucket %d: %w", bucket, err)
		}
	}

	if bits.LoBits(uint32(r.sp+1), r.depth) != 0 {
		r.sp++
	} else {
		r.depth++
		r.sp = 0
	}
	return nil
}

// Stats returns a human-readable diagnostic dump: global state, the choice
// vector, and every bucket's primary+overflow chain, per
// original_source/reln.c:relationStats.
func (r *Reln) Stats() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Global Info:\n")
	fmt.Fprintf(&b, "#attrs:%d  #pages:%d  #tuples:%d  d:%d  sp:%d\n",
		r.nattrs, r.npages, r.ntups, r.depth, r.sp)
	fmt.Fprintf(&b, "sp as a bit string: %s\n", chash.String(uint32(r.sp)))
	fmt.Fprintf(&b, "Choice vector\n")
	for i, item := range r.cv {
		fmt.Fprintf(&b, "  [%2d] attr %d bit %d\n", i, item.Attr, item.Bit)
	}
	fmt.Fprintf(&b, "Bucket Info:\n")
	fmt.Fprintf(&b, "%-4s %s\n", "#", "Info on pages in bucket")
	fmt.Fprintf(&b, "%-4s %s\n", "", "(pageID,#tuples,freebytes,ovflow)")
	for pid := int32(0); pid < r.npages; pid++ {
		p, err := r.data.GetPage(pid)
		if err != nil {
			fmt.Fprintf(&b, "[%2d]  <error: %s>\n", pid, err)
			continue
		}
		fmt.Fprintf(&b, "[%2d]  (d%d,%d,%d,%d)", pid, pid, p.NTuples(), p.FreeSpace(), p.Ovflow())
		ov := p.Ovflow()
		for ov != page.NoPage {
			op, err := r.ovflow.GetPage(ov)
			if err != nil {
				fmt.Fprintf(&b, " -> <error: %s>", err)
				break
			}
			fmt.Fprintf(&b, " -> (ov%d,%d,%d,%d)", ov, op.NTuples(), op.FreeSpace(), op.Ovflow())
			ov = op.Ovflow()
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Data and Ovflow expose the relation's page files for the query package,
// which needs to walk buckets directly. Together with the state accessors
// above, they are what query.Query reads from a relation.
func (r *Reln) Data() *pagefile.File   { return r.data }
func (r *Reln) Ovflow() *pagefile.File { return r.ovflow }
