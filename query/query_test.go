package query

import (
	"fmt"
	"sort"
	"testing"

	"github.com/relhash/malh/reln"
)

func mustRelation(t *testing.T, name string, nattrs int, npages int32, depth uint, cv string) *reln.Reln {
	t.Helper()
	r, err := reln.NewRelation(true, name, nattrs, npages, depth, cv)
	if err != nil {
		t.Fatalf("NewRelation: %s", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func scanAll(t *testing.T, r *reln.Reln, template string) []string {
	t.Helper()
	q, err := StartQuery(r, template)
	if err != nil {
		t.Fatalf("StartQuery(%q): %s", template, err)
	}
	defer q.CloseQuery()
	var out []string
	for {
		tup, ok, err := q.GetNextTuple()
		if err != nil {
			t.Fatalf("GetNextTuple: %s", err)
		}
		if !ok {
			break
		}
		out = append(out, tup)
	}
	return out
}

// S1/S3 from spec.md §8.
func TestPartialMatchAndWildcardScenarios(t *testing.T) {
	r := mustRelation(t, "s1", 4, 1, 0, "0:0,1:0,2:0,3:0,0:1,1:1,2:1,3:1")
	for _, tup := range []string{"1,a,x,10", "2,b,y,20", "3,c,z,30"} {
		if _, err := r.AddToRelation(tup); err != nil {
			t.Fatalf("AddToRelation(%q): %s", tup, err)
		}
	}

	got := scanAll(t, r, "?,b,?,?")
	if len(got) != 1 || got[0] != "2,b,y,20" {
		t.Errorf("want exactly [2,b,y,20], got %v", got)
	}

	all := scanAll(t, r, "?,?,?,?")
	sort.Strings(all)
	want := []string{"1,a,x,10", "2,b,y,20", "3,c,z,30"}
	sort.Strings(want)
	if len(all) != len(want) {
		t.Fatalf("want %d tuples got %d: %v", len(want), len(all), all)
	}
	for i := range want {
		if all[i] != want[i] {
			t.Errorf("tuple %d: want %s got %s", i, want[i], all[i])
		}
	}
}

// Property 2: round-trip.
func TestRoundTripEveryInsertedTuple(t *testing.T) {
	r := mustRelation(t, "roundtrip", 2, 1, 0, "0:0,1:0,0:1,1:1")
	n := 120
	inserted := make([]string, 0, n)
	for i := 0; i < n; i++ {
		tup := fmt.Sprintf("%d,v%d", i, i)
		if _, err := r.AddToRelation(tup); err != nil {
			t.Fatalf("AddToRelation(%d): %s", i, err)
		}
		inserted = append(inserted, tup)
	}
	for _, tup := range inserted {
		got := scanAll(t, r, tup)
		if len(got) != 1 || got[0] != tup {
			t.Errorf("round-trip for %q: want exactly itself once, got %v", tup, got)
		}
	}
}

// Property 3: wildcard completeness - replacing any subset of attributes
// with ? must still yield the original tuple, plus only tuples agreeing on
// the non-wildcard attributes.
func TestWildcardCompleteness(t *testing.T) {
	r := mustRelation(t, "wildcard", 3, 1, 0, "0:0,1:0,2:0,0:1,1:1,2:1")
	tuples := []string{"1,a,x", "1,b,y", "2,a,z"}
	for _, tup := range tuples {
		if _, err := r.AddToRelation(tup); err != nil {
			t.Fatalf("AddToRelation(%q): %s", tup, err)
		}
	}
	got := scanAll(t, r, "1,?,?")
	if len(got) != 2 {
		t.Fatalf("want 2 matches for 1,?,?, got %v", got)
	}
	for _, tup := range got {
		fields := splitTuple(t, tup, 3)
		if fields[0] != "1" {
			t.Errorf("tuple %q does not match non-wildcard attribute 0", tup)
		}
	}
}

func splitTuple(t *testing.T, tup string, n int) []string {
	t.Helper()
	fields := make([]string, 0, n)
	start := 0
	for i := 0; i < len(tup); i++ {
		if tup[i] == ',' {
			fields = append(fields, tup[start:i])
			start = i + 1
		}
	}
	fields = append(fields, tup[start:])
	return fields
}

// S4: forcing an overflow chain and confirming round-trip plus a non-empty
// chain visible in Stats.
func TestOverflowChainScan(t *testing.T) {
	r := mustRelation(t, "overflow", 1, 1, 0, "0:0")
	// 40 padded tuples comfortably fill and overflow one 1024-byte primary
	// page while staying well below the capacity-driven split trigger.
	var longTuples []string
	for i := 0; i < 40; i++ {
		tup := fmt.Sprintf("padding-tuple-number-%04d", i)
		longTuples = append(longTuples, tup)
		if _, err := r.AddToRelation(tup); err != nil {
			t.Fatalf("AddToRelation(%d): %s", i, err)
		}
	}
	for _, tup := range longTuples {
		got := scanAll(t, r, tup)
		if len(got) != 1 || got[0] != tup {
			t.Errorf("round-trip for %q: got %v", tup, got)
		}
	}
	stats := r.Stats()
	if !containsSubstring(stats, "-> (ov") {
		t.Errorf("expected Stats to show an overflow chain entry:\n%s", stats)
	}
}

func containsSubstring(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

// S6 (approximated): a template whose known bits cover all low-depth bits
// and whose unknown bits are confined above depth should enumerate exactly
// one candidate bucket.
func TestFullySpecifiedLowBitsEnumeratesOneBucket(t *testing.T) {
	r := mustRelation(t, "onebucket", 2, 2, 1, "0:0,1:0,0:1,1:1")
	if _, err := r.AddToRelation("1,a"); err != nil {
		t.Fatalf("AddToRelation: %s", err)
	}
	q, err := StartQuery(r, "1,a")
	if err != nil {
		t.Fatalf("StartQuery: %s", err)
	}
	defer q.CloseQuery()
	if q.maxOption != 1 {
		t.Errorf("want exactly one candidate bucket for a fully specified template, got %d", q.maxOption)
	}
}
