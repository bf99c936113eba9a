package flattree

import (
	"errors"
	"fmt"
	"math/bits"
)

var ErrOddIndex = errors.New("flattree: expected an even index")

// twoPow is 2^n. Callers guarantee n < 64.
func twoPow(n uint64) uint64 {
	return uint64(1) << n
}

// Depth returns the depth of the node at i. Leaves are at depth 0.
//
// A node's depth is the number of trailing one bits in its index; every
// even index is a leaf, 0b...01 is depth 1, 0b...011 is depth 2 and so
// on.
func Depth(i uint64) uint64 {
	return uint64(bits.TrailingZeros64(^i))
}

// Offset returns the offset of the node at i within its own depth row.
// Offset(0) == Offset(1) == Offset(3) == 0.
func Offset(i uint64) uint64 {
	return i >> (Depth(i) + 1)
}

// Index returns the flat index of the node at the given depth and
// offset within that depth row.
func Index(depth, offset uint64) uint64 {
	return (offset << (depth + 1)) | (twoPow(depth) - 1)
}

// Parent returns the index of the parent of i.
func Parent(i uint64) uint64 {
	return Index(Depth(i)+1, Offset(i)>>1)
}

// Sibling returns the index of the node sharing a parent with i.
func Sibling(i uint64) uint64 {
	return Index(Depth(i), Offset(i)^1)
}

// LeftChild returns the left child of i. ok is false if i is a leaf.
func LeftChild(i uint64) (uint64, bool) {
	d := Depth(i)
	if d == 0 {
		return 0, false
	}
	return Index(d-1, Offset(i)<<1), true
}

// RightChild returns the right child of i. ok is false if i is a leaf.
func RightChild(i uint64) (uint64, bool) {
	d := Depth(i)
	if d == 0 {
		return 0, false
	}
	return Index(d-1, (Offset(i)<<1)+1), true
}

// Children returns both children of i. ok is false if i is a leaf.
func Children(i uint64) (uint64, uint64, bool) {
	left, ok := LeftChild(i)
	if !ok {
		return 0, 0, false
	}
	right, _ := RightChild(i)
	return left, right, true
}

// LeftSpan returns the left most leaf index in the subtree rooted at i.
func LeftSpan(i uint64) uint64 {
	if i&1 == 0 {
		return i
	}
	return i - twoPow(Depth(i)) + 1
}

// RightSpan returns the right most leaf index in the subtree rooted at i.
func RightSpan(i uint64) uint64 {
	if i&1 == 0 {
		return i
	}
	return i + twoPow(Depth(i)) - 1
}

// Spans returns the left and right most leaf indexes in the subtree
// rooted at i.
func Spans(i uint64) (uint64, uint64) {
	return LeftSpan(i), RightSpan(i)
}

// Count returns the number of nodes, including i itself, in the subtree
// rooted at i.
func Count(i uint64) uint64 {
	return twoPow(Depth(i)+1) - 1
}

// FullRoots returns the roots of the largest perfect subtrees covering
// the leaves left of i, in ascending flat index order. i must be even:
// a tree over n blocks has its frontier at flat index 2n.
//
// Together the returned subtrees cover the leaf range [0, i) exactly,
// with no gaps and no overlaps. The result is fully determined by i;
// for a perfectly balanced tree there is exactly one root.
func FullRoots(i uint64) ([]uint64, error) {
	if i&1 != 0 {
		return nil, fmt.Errorf("%w: %d", ErrOddIndex, i)
	}

	var roots []uint64
	remaining := i >> 1
	offset := uint64(0)

	// Peel off the largest perfect subtree that fits in the remaining
	// leaves, left to right. Each root's leaf width is the largest power
	// of two not exceeding what remains.
	for remaining != 0 {
		factor := uint64(1)
		for factor*2 <= remaining {
			factor *= 2
		}
		roots = append(roots, offset+factor-1)
		offset += 2 * factor
		remaining -= factor
	}
	return roots, nil
}
