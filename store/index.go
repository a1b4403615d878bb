package store

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// identityIndex maps each identity token to the bitmap of row positions it
// occupies in a snapshot. Mutations rebuild it from the freshly loaded
// snapshot, so duplicate checks always run against durable state.
type identityIndex struct {
	rows map[string]*roaring.Bitmap
}

func newIdentityIndex(identities []string) *identityIndex {
	idx := &identityIndex{rows: make(map[string]*roaring.Bitmap)}
	for i, id := range identities {
		bm, ok := idx.rows[id]
		if !ok {
			bm = roaring.New()
			idx.rows[id] = bm
		}
		bm.Add(uint32(i))
	}
	return idx
}

func (x *identityIndex) contains(token string) bool {
	_, ok := x.rows[token]
	return ok
}

func (x *identityIndex) count(token string) int {
	bm, ok := x.rows[token]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// rowsOf returns the union of row positions held by the given tokens.
func (x *identityIndex) rowsOf(tokens []string) *roaring.Bitmap {
	out := roaring.New()
	for _, token := range tokens {
		if bm, ok := x.rows[token]; ok {
			out.Or(bm)
		}
	}
	return out
}
