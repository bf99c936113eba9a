package flattree

/*

# Flat tree numbering

This package provides the pure arithmetic for navigating a binary merkle
tree stored as a flat list. Leaves occupy the even indexes and parents
interleave on the odd indexes:

	3              7
	             /   \
	            /     \
	           /       \
	2         3         11
	        /   \      /  \
	1      1     5    9    13
	      / \   / \  / \   / \
	0    0   2 4   6 8  10 12 14

The shape of the tree is determined entirely by the number of leaves, so
no part of the tree need be materialised to navigate it. From any index
the depth, offset, parent, sibling and children are all recovered with
shift and mask operations.

All functions are side effect free. Indexes are node indexes in the flat
numbering unless a name says otherwise; a tree over n blocks spans flat
indexes [0, 2n).
*/
