package chash

import "testing"

func TestParseVectorCyclicPadding(t *testing.T) {
	v, err := ParseVector("0:0,1:0,2:0,3:0", 4)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(v) != MaxBits {
		t.Fatalf("want %d items got %d", MaxBits, len(v))
	}
	// cyclic repetition: item 4 repeats item 0
	if v[4] != v[0] {
		t.Errorf("want item 4 to repeat item 0, got %+v vs %+v", v[4], v[0])
	}
}

func TestParseVectorRejectsOutOfRangeAttr(t *testing.T) {
	if _, err := ParseVector("9:0", 4); err == nil {
		t.Fatal("expected an error for an out-of-range attribute index")
	}
}

func TestParseVectorRejectsOutOfRangeBit(t *testing.T) {
	if _, err := ParseVector("0:99", 4); err == nil {
		t.Fatal("expected an error for an out-of-range bit position")
	}
}

func TestParseVectorRejectsMalformed(t *testing.T) {
	if _, err := ParseVector("not-a-pair", 4); err == nil {
		t.Fatal("expected an error for a malformed item")
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	v, _ := ParseVector("0:0,1:0,2:0,3:0", 4)
	h1 := v.Compose([]string{"1", "a", "x", "10"})
	h2 := v.Compose([]string{"1", "a", "x", "10"})
	if h1 != h2 {
		t.Errorf("want deterministic hash, got %d vs %d", h1, h2)
	}
}

func TestChoiceVectorPartitioning(t *testing.T) {
	// Two tuples agreeing on attribute 1 must agree on every composite bit
	// sourced from attribute 1's hash bits, regardless of the other
	// attributes (spec.md §8 property 6).
	v, _ := ParseVector("0:0,1:0,2:0,3:0,0:1,1:1,2:1,3:1", 4)
	a := []string{"1", "shared", "x", "10"}
	b := []string{"2", "shared", "z", "99"}
	ha := v.Compose(a)
	hb := v.Compose(b)
	for i := 0; i < MaxBits; i++ {
		if v[i].Attr != 1 {
			continue
		}
		bitA := (ha >> uint(i)) & 1
		bitB := (hb >> uint(i)) & 1
		if bitA != bitB {
			t.Errorf("bit %d sourced from attribute 1 disagreed: %d vs %d", i, bitA, bitB)
		}
	}
}

func TestFingerprintWildcardMarksUnknown(t *testing.T) {
	v, _ := ParseVector("0:0,1:0,2:0,3:0", 4)
	known, unknown := v.Fingerprint([]string{"?", "b", "?", "?"})
	for i := 0; i < MaxBits; i++ {
		if v[i].Attr == 1 {
			if (unknown>>uint(i))&1 != 0 {
				t.Errorf("bit %d sourced from known attribute 1 should not be marked unknown", i)
			}
		} else if (unknown>>uint(i))&1 != 1 {
			t.Errorf("bit %d sourced from wildcard attribute %d should be marked unknown", i, v[i].Attr)
		}
	}
	// known bits sourced from wildcard attributes must read 0
	for i := 0; i < MaxBits; i++ {
		if v[i].Attr != 1 && (known>>uint(i))&1 != 0 {
			t.Errorf("bit %d sourced from a wildcard attribute should read 0 in known", i)
		}
	}
}

func TestFingerprintMatchesComposeForFullySpecifiedTemplate(t *testing.T) {
	v, _ := ParseVector("0:0,1:0,2:0,3:0,0:1,1:1,2:1,3:1", 4)
	fields := []string{"1", "a", "x", "10"}
	known, unknown := v.Fingerprint(fields)
	if unknown != 0 {
		t.Errorf("want no unknown bits for a fully specified template, got %#x", unknown)
	}
	if known != v.Compose(fields) {
		t.Errorf("want known to equal Compose for a fully specified template")
	}
}
