package feed

import (
	"hash"

	"golang.org/x/crypto/blake2b"
)

// Hash domain prefixes. A leaf, a parent and a root derivation over
// the same bytes must never collide.
const (
	hashTagLeaf   = 0x00
	hashTagParent = 0x01
	hashTagRoot   = 0x02
)

func newHash() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// only reachable with an oversized key, and we pass none
		panic(err)
	}
	return h
}

// hashWriteUint64 writes value to hasher in bigendian layout.
func hashWriteUint64(hasher hash.Hash, value uint64) {
	b := [8]byte{}
	writeU64BE(b[:], value)
	hasher.Write(b[:])
}

// LeafHash returns H(leafTag || len(data) || data) for a block's leaf
// node.
func LeafHash(data []byte) []byte {
	hasher := newHash()
	hasher.Write([]byte{hashTagLeaf})
	hashWriteUint64(hasher, uint64(len(data)))
	hasher.Write(data)
	return hasher.Sum(nil)
}

// ParentHash combines two sibling nodes. left must be the lower flat
// index.
func ParentHash(left, right Node) []byte {
	hasher := newHash()
	hasher.Write([]byte{hashTagParent})
	hashWriteUint64(hasher, left.Length+right.Length)
	hasher.Write(left.Hash)
	hasher.Write(right.Hash)
	return hasher.Sum(nil)
}

// RootHash condenses a full root set into the single digest that
// checkpoints commit to. Roots must be in ascending flat index order,
// as reconstruction yields them.
func RootHash(roots []Node) []byte {
	hasher := newHash()
	hasher.Write([]byte{hashTagRoot})
	for _, root := range roots {
		hasher.Write(root.Hash)
		hashWriteUint64(hasher, root.Index)
		hashWriteUint64(hasher, root.Length)
	}
	return hasher.Sum(nil)
}
