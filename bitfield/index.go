package bitfield

import (
	"github.com/ntauth/hypercore/flattree"
)

// TreeIndex is the in memory view over the tree node plane of a
// persisted bitfield. Its Blocks value is the authoritative committed
// block count for a feed; the physical bitfield encoding never is.
type TreeIndex struct {
	bits *Bitfield
}

// NewTreeIndex wraps bits. A nil bits is treated as empty.
func NewTreeIndex(bits *Bitfield) *TreeIndex {
	if bits == nil {
		bits = New()
	}
	return &TreeIndex{bits: bits}
}

// Get reports whether the flat tree node at i is committed.
func (t *TreeIndex) Get(i uint64) bool {
	return t.bits.Get(i)
}

// Set marks the flat tree node at i committed.
func (t *TreeIndex) Set(i uint64) {
	t.bits.Set(i, true)
}

// Blocks returns the committed block count.
//
// The highest committed flat node bounds the tree frontier: every
// block left of that node's right span is committed, and nothing to
// its right can be without a higher node being marked.
func (t *TreeIndex) Blocks() uint64 {
	top, ok := t.bits.lastSet()
	if !ok {
		return 0
	}
	return flattree.RightSpan(top)/2 + 1
}
