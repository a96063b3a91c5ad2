package malh

import (
	"fmt"
	"sort"
	"testing"
)

func TestEndToEndCreateInsertQueryClose(t *testing.T) {
	r, err := NewRelation(true, "e2e", 4, 1, 0, "0:0,1:0,2:0,3:0,0:1,1:1,2:1,3:1")
	if err != nil {
		t.Fatalf("NewRelation: %s", err)
	}
	for _, tup := range []string{"1,a,x,10", "2,b,y,20", "3,c,z,30"} {
		if _, err := AddToRelation(r, tup); err != nil {
			t.Fatalf("AddToRelation(%q): %s", tup, err)
		}
	}

	q, err := StartQuery(r, "?,b,?,?")
	if err != nil {
		t.Fatalf("StartQuery: %s", err)
	}
	var got []string
	for {
		tup, ok, err := GetNextTuple(q)
		if err != nil {
			t.Fatalf("GetNextTuple: %s", err)
		}
		if !ok {
			break
		}
		got = append(got, tup)
	}
	CloseQuery(q)
	if len(got) != 1 || got[0] != "2,b,y,20" {
		t.Fatalf("want exactly [2,b,y,20], got %v", got)
	}

	if err := CloseRelation(r); err != nil {
		t.Fatalf("CloseRelation: %s", err)
	}
	if !ExistsRelation("e2e") {
		t.Error("want ExistsRelation true after NewRelation")
	}

	r2, err := OpenRelation(true, "e2e", ModeRead)
	if err != nil {
		t.Fatalf("OpenRelation: %s", err)
	}
	defer CloseRelation(r2)
	q2, err := StartQuery(r2, "?,?,?,?")
	if err != nil {
		t.Fatalf("StartQuery: %s", err)
	}
	defer CloseQuery(q2)
	var all []string
	for {
		tup, ok, err := GetNextTuple(q2)
		if err != nil {
			t.Fatalf("GetNextTuple: %s", err)
		}
		if !ok {
			break
		}
		all = append(all, tup)
	}
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

func TestRelationStatsIncludesGlobalInfo(t *testing.T) {
	r, err := NewRelation(true, "stats-e2e", 1, 1, 0, "0:0")
	if err != nil {
		t.Fatalf("NewRelation: %s", err)
	}
	defer CloseRelation(r)
	if _, err := AddToRelation(r, "hello"); err != nil {
		t.Fatalf("AddToRelation: %s", err)
	}
	out := RelationStats(r)
	want := fmt.Sprintf("#attrs:%d", 1)
	if !contains(out, want) {
		t.Errorf("want Stats output to mention %q, got:\n%s", want, out)
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
