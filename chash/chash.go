// Package chash implements the per-attribute byte hash and the choice-vector
// bit interleave that together produce a tuple's composite hash, plus the
// known/unknown fingerprint used by partial-match queries. Grounded on
// original_source/tuple.c (tupleHash) and query.c (startQuery), reworked
// per spec.md §9 to compute the composite hash by direct bitwise copy
// instead of detouring through a textual bit string.
package chash

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/relhash/malh/bits"
)

// MaxBits is the width of the composite hash; the choice vector always has
// exactly this many items.
const MaxBits = bits.MaxBits

// Item is one entry of a choice vector: composite-hash bit i is taken from
// bit Bit of the hash of attribute Attr.
type Item struct {
	Attr int
	Bit  uint
}

// Vector is a choice vector: exactly MaxBits items.
type Vector [MaxBits]Item

// ParseVector parses a choice-vector spec of comma-separated "A:B" items
// (A = 0-based attribute index, B = bit position within that attribute's
// hash) per spec.md §6. Fewer than MaxBits items are extended by cyclic
// repetition; the result always has exactly MaxBits items. Every A must be
// in [0, nattrs) and every B in [0, MaxBits).
func ParseVector(spec string, nattrs int) (Vector, error) {
	var v Vector
	parts := strings.Split(spec, ",")
	items := make([]Item, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ab := strings.SplitN(part, ":", 2)
		if len(ab) != 2 {
			return v, fmt.Errorf("chash: malformed choice vector item %q", part)
		}
		attr, err := strconv.Atoi(ab[0])
		if err != nil {
			return v, fmt.Errorf("chash: malformed attribute index %q: %w", ab[0], err)
		}
		bit, err := strconv.Atoi(ab[1])
		if err != nil {
			return v, fmt.Errorf("chash: malformed bit position %q: %w", ab[1], err)
		}
		if attr < 0 || attr >= nattrs {
			return v, fmt.Errorf("chash: attribute index %d out of range [0,%d)", attr, nattrs)
		}
		if bit < 0 || bit >= MaxBits {
			return v, fmt.Errorf("chash: bit position %d out of range [0,%d)", bit, MaxBits)
		}
		items = append(items, Item{Attr: attr, Bit: uint(bit)})
	}
	if len(items) == 0 {
		return v, fmt.Errorf("chash: empty choice vector spec")
	}
	for i := 0; i < MaxBits; i++ {
		v[i] = items[i%len(items)]
	}
	return v, nil
}

// Hash32 is the byte-hash oracle spec.md §1 puts out of scope, beyond
// requiring it be "deterministic, 32-bit, avalanche-like". FNV-1a is the
// standard library's own answer to that description.
func Hash32(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

// Compose computes the full composite hash H*(t) of a tuple whose fields
// are all present (no wildcards): bit i of H* is bit cv[i].Bit of the hash
// of attribute cv[i].Attr, per spec.md §4.5.
func (v Vector) Compose(fields []string) uint32 {
	perAttr := make([]uint32, len(fields))
	for i, f := range fields {
		perAttr[i] = Hash32(f)
	}
	var result uint32
	for i := 0; i < MaxBits; i++ {
		item := v[i]
		if (perAttr[item.Attr]>>item.Bit)&1 == 1 {
			result = bits.SetBit(result, uint(i))
		}
	}
	return result
}

// String renders a composite hash MSB-first, for diagnostics only
// (RelationStats and debug prints) - mirrors the bit-string dumps
// original_source/tuple.c and reln.c print while debugging hash
// composition. Never feeds back into Compose/Fingerprint.
func String(h uint32) string {
	return bits.String(h)
}

// Fingerprint computes a query template's known/unknown masks per
// spec.md §4.5: known is the composite hash computed with wildcard
// attributes contributing a zero hash, and unknown has a 1 in every
// composite-bit position whose source attribute is a wildcard.
func (v Vector) Fingerprint(fields []string) (known, unknown uint32) {
	isWild := make([]bool, len(fields))
	perAttr := make([]uint32, len(fields))
	for i, f := range fields {
		if f == "?" {
			isWild[i] = true
			perAttr[i] = 0
		} else {
			perAttr[i] = Hash32(f)
		}
	}
	for i := 0; i < MaxBits; i++ {
		item := v[i]
		if (perAttr[item.Attr]>>item.Bit)&1 == 1 {
			known = bits.SetBit(known, uint(i))
		}
		if isWild[item.Attr] {
			unknown = bits.SetBit(unknown, uint(i))
		}
	}
	return known, unknown
}
