// Package malh is the thin façade over reln and query that gives external
// callers (the repl, or any other front end) exactly the operation surface
// spec.md §6 names: newRelation, existsRelation, openRelation,
// closeRelation, addToRelation, relationStats, startQuery, getNextTuple,
// closeQuery. reln.Reln and query.Query already implement all of the real
// behavior idiomatically as methods; this package only renames the entry
// points to match the spec's external interface one-to-one, the way
// github.com/chirst/cdb/db wraps kv+catalog+vm behind Execute.
package malh

import (
	"github.com/relhash/malh/query"
	"github.com/relhash/malh/reln"
)

// Relation is an open relation, as returned by NewRelation/OpenRelation.
type Relation = reln.Reln

// Query is an in-progress partial-match scan, as returned by StartQuery.
type Query = query.Query

// Mode selects whether a relation is opened for reading or writing.
type Mode = reln.Mode

const (
	ModeRead  = reln.ModeRead
	ModeWrite = reln.ModeWrite
)

// NewRelation creates a new, empty relation and returns it open for
// writing. useMemory selects an ephemeral in-process relation over one
// backed by <name>.info/.data/.ovflow files.
func NewRelation(useMemory bool, name string, nattrs int, npages0 int32, depth0 uint, cvSpec string) (*Relation, error) {
	return reln.NewRelation(useMemory, name, nattrs, npages0, depth0, cvSpec)
}

// ExistsRelation reports whether a relation named name has already been
// created.
func ExistsRelation(name string) bool {
	return reln.ExistsRelation(name)
}

// OpenRelation opens an existing relation for reading or writing.
func OpenRelation(useMemory bool, name string, mode Mode) (*Relation, error) {
	return reln.OpenRelation(useMemory, name, mode)
}

// CloseRelation flushes metadata (if opened for writing) and releases r's
// files.
func CloseRelation(r *Relation) error {
	return r.Close()
}

// AddToRelation inserts tuple t and returns the primary bucket id it was
// filed under, splitting the bucket addressed by the split pointer first
// if the load-factor trigger fires.
func AddToRelation(r *Relation, t string) (int32, error) {
	return r.AddToRelation(t)
}

// RelationStats returns a human-readable diagnostic dump of r's global
// state and every bucket's chain.
func RelationStats(r *Relation) string {
	return r.Stats()
}

// StartQuery begins a partial-match scan of r against template.
func StartQuery(r *Relation, template string) (*Query, error) {
	return query.StartQuery(r, template)
}

// GetNextTuple returns the next tuple matching q's template, or
// ("", false, nil) once the scan is exhausted.
func GetNextTuple(q *Query) (string, bool, error) {
	return q.GetNextTuple()
}

// CloseQuery releases q's state.
func CloseQuery(q *Query) {
	q.CloseQuery()
}
