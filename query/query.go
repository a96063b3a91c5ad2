// Package query implements the partial-match scanner: given a relation and
// a wildcard-bearing template, it enumerates every candidate bucket the
// template's known bits could address and yields every stored tuple that
// matches. Grounded on original_source/query.c (startQuery, getNextTuple,
// closeQuery), reworked per spec.md §9 to skip (never break on) an
// out-of-range candidate bucket, since the bit-scatter enumeration order is
// not guaranteed monotonic in npages.
package query

import (
	"fmt"

	"github.com/relhash/malh/chash"
	"github.com/relhash/malh/page"
	"github.com/relhash/malh/reln"
	"github.com/relhash/malh/tuple"
)

// relation is the subset of *reln.Reln the scanner needs. Kept as an
// interface so the scanner can be tested against a fake bucket layout
// without a real relation.
type relation interface {
	Nattrs() int
	Depth() uint
	SplitPointer() int32
	NPages() int32
	ChoiceVector() chash.Vector
	Data() dataSource
	Ovflow() dataSource
}

// dataSource is the page-fetch surface query needs from a pagefile.File.
type dataSource interface {
	GetPage(id int32) (*page.Page, error)
}

// relnAdapter makes a *reln.Reln satisfy relation: Data/Ovflow return
// concrete *pagefile.File, which already satisfies dataSource structurally,
// but Go requires the adapter because relation's method set is declared
// against the narrower interface.
type relnAdapter struct{ r *reln.Reln }

func (a relnAdapter) Nattrs() int               { return a.r.Nattrs() }
func (a relnAdapter) Depth() uint               { return a.r.Depth() }
func (a relnAdapter) SplitPointer() int32       { return a.r.SplitPointer() }
func (a relnAdapter) NPages() int32             { return a.r.NPages() }
func (a relnAdapter) ChoiceVector() chash.Vector { return a.r.ChoiceVector() }
func (a relnAdapter) Data() dataSource          { return a.r.Data() }
func (a relnAdapter) Ovflow() dataSource        { return a.r.Ovflow() }

// Query is a partial-match scan over a relation: a coroutine-style iterator
// whose entire state lives here, resumed one tuple at a time by
// GetNextTuple.
type Query struct {
	rel   relation
	tmpl  []string
	nattr int

	start     int32
	dUsed     uint
	positions []uint // ascending bit positions of unknown, restricted to < dUsed

	option    uint64
	maxOption uint64

	curBucket int32
	isOvflow  bool
	curPage   *page.Page
	curOff    int
	ctuple    int

	done bool
}

// StartQuery parses template (nattrs fields, "?" marking wildcards),
// computes the known/unknown masks and the starting candidate bucket, and
// returns a scanner ready for GetNextTuple. Per spec.md §4.7.
func StartQuery(r *reln.Reln, template string) (*Query, error) {
	return startQuery(relnAdapter{r}, template)
}

func startQuery(rel relation, template string) (*Query, error) {
	fields, err := tuple.Split(template, rel.Nattrs())
	if err != nil {
		return nil, err
	}
	cv := rel.ChoiceVector()
	known, unknown := cv.Fingerprint(fields)

	d := rel.Depth()
	sp := rel.SplitPointer()
	start := int32(maskLow(known, d))
	dUsed := d
	if start < sp {
		start = int32(maskLow(known, d+1))
		dUsed = d + 1
	}

	var positions []uint
	for i := uint(0); i < uint(chash.MaxBits) && i < dUsed; i++ {
		if (unknown>>i)&1 == 1 {
			positions = append(positions, i)
		}
	}

	q := &Query{
		rel:       rel,
		tmpl:      fields,
		nattr:     rel.Nattrs(),
		start:     start,
		dUsed:     dUsed,
		positions: positions,
		option:    0,
		maxOption: uint64(1) << uint(len(positions)),
		curBucket: -1,
	}
	if err := q.enterNextCandidateBucket(); err != nil {
		return nil, err
	}
	return q, nil
}

// maskLow returns the low k bits of w as a uint32-sized value; k may exceed
// 32, in which case w is returned unchanged (there are no bits above 31).
func maskLow(w uint32, k uint) uint32 {
	if k >= 32 {
		return w
	}
	return w & ((1 << k) - 1)
}

// candidateBucket computes the bucket id for q.option per spec.md §4.7: the
// i-th 1-bit of unknown below dUsed (LSB-first) is replaced by bit i of
// option.
func (q *Query) candidateBucket(option uint64) int32 {
	b := q.start
	for i, p := range q.positions {
		if (option>>uint(i))&1 == 1 {
			b |= int32(1) << p
		}
	}
	return b
}

// enterNextCandidateBucket advances q.option until it finds an in-range
// candidate bucket (skipping out-of-range ones, never breaking early - see
// the out-of-range-candidate design note this package is grounded on), sets
// up curBucket/isOvflow/curPage/curOff/ctuple to the start of that bucket's
// primary page, or marks the query done if options are exhausted.
func (q *Query) enterNextCandidateBucket() error {
	for q.option < q.maxOption {
		candidate := q.candidateBucket(q.option)
		q.option++
		if candidate < 0 || candidate >= q.npages() {
			continue
		}
		p, err := q.rel.Data().GetPage(candidate)
		if err != nil {
			return fmt.Errorf("query: reading bucket %d: %w", candidate, err)
		}
		q.curBucket = candidate
		q.isOvflow = false
		q.curPage = p
		q.curOff = 0
		q.ctuple = 0
		return nil
	}
	q.done = true
	return nil
}

func (q *Query) npages() int32 { return q.rel.NPages() }

// GetNextTuple returns the next stored tuple matching the query's template,
// or ("", false, nil) once the scan is exhausted.
func (q *Query) GetNextTuple() (string, bool, error) {
	for {
		if q.done {
			return "", false, nil
		}
		if q.ctuple == q.curPage.NTuples() {
			ov := q.curPage.Ovflow()
			if ov != page.NoPage {
				p, err := q.rel.Ovflow().GetPage(ov)
				if err != nil {
					return "", false, fmt.Errorf("query: reading overflow page %d: %w", ov, err)
				}
				q.isOvflow = true
				q.curPage = p
				q.curOff = 0
				q.ctuple = 0
				continue
			}
			if err := q.enterNextCandidateBucket(); err != nil {
				return "", false, err
			}
			continue
		}

		rec, next := q.curPage.TupleAt(q.curOff)
		q.curOff = next
		q.ctuple++

		fields, err := tuple.Split(rec, q.nattr)
		if err != nil {
			return "", false, fmt.Errorf("query: corrupt tuple in bucket %d: %w", q.curBucket, err)
		}
		if tuple.Match(q.tmpl, fields) {
			return rec, true, nil
		}
	}
}

// CloseQuery releases the query's state. The scanner holds no resources
// beyond its own struct (its current page buffer is a private copy returned
// by GetPage), so this marks it done and drops that buffer.
func (q *Query) CloseQuery() {
	q.done = true
	q.curPage = nil
}
