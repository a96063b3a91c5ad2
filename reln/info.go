package reln

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/relhash/malh/chash"
)

// infoRecord is the on-disk (or in-memory-registry) metadata snapshot for a
// relation: everything needed to resume addressing and splitting without
// re-scanning any page. spec.md §6 leaves the .info file's exact byte
// layout out of scope, requiring only that it round-trip; encoding/gob is
// the standard library's own answer to that requirement.
type infoRecord struct {
	Nattrs  int
	Depth   uint
	Sp      int32
	Npages  int32
	Novflow int32
	Ntups   int64
	CV      [chash.MaxBits]chash.Item
}

func (r *Reln) toInfo() infoRecord {
	return infoRecord{
		Nattrs:  r.nattrs,
		Depth:   r.depth,
		Sp:      r.sp,
		Npages:  r.npages,
		Novflow: r.novflow,
		Ntups:   r.ntups,
		CV:      [chash.MaxBits]chash.Item(r.cv),
	}
}

func fromInfo(info infoRecord) *Reln {
	return &Reln{
		nattrs:  info.Nattrs,
		depth:   info.Depth,
		sp:      info.Sp,
		npages:  info.Npages,
		novflow: info.Novflow,
		ntups:   info.Ntups,
		cv:      chash.Vector(info.CV),
	}
}

func writeInfo(path string, info infoRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("reln: creating %s: %w", path, err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(info); err != nil {
		return fmt.Errorf("reln: encoding %s: %w", path, err)
	}
	return nil
}

func readInfo(path string) (infoRecord, error) {
	var info infoRecord
	f, err := os.Open(path)
	if err != nil {
		return info, fmt.Errorf("reln: opening %s: %w", path, err)
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(&info); err != nil {
		return info, fmt.Errorf("reln: decoding %s: %w", path, err)
	}
	return info, nil
}
