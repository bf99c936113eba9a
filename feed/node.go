package feed

// Node is a flat tree node: its flat index, hash, and the aggregate
// byte length of the block data its subtree covers.
type Node struct {
	Index  uint64
	Hash   []byte
	Length uint64
}

// blank reports whether the node record slot was never written. A
// committed node always carries a hash.
func (n Node) blank() bool {
	if n.Length != 0 {
		return false
	}
	for _, b := range n.Hash {
		if b != 0 {
			return false
		}
	}
	return true
}
