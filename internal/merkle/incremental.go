// Package merkle implements the two Merkle conventions the sequencer uses.
// Tree is the append-only, fixed-depth incremental tree behind the
// withdrawals root; TransactionsRoot is the standard balanced tree used for
// a single block's transactions root. The two must never be interchanged.
package merkle

import (
	"fmt"

	"github.com/sergerad/nolemma/internal/crypto"
	"github.com/sergerad/nolemma/internal/domain"
)

// MaxDepth bounds the incremental tree depth to keep the zero-hash table and
// frontier arrays fixed-size.
const MaxDepth = 64

// Tree is an append-only binary Merkle tree of fixed depth with zero-hash
// padding and a cached frontier, giving O(depth) append and root operations.
// Not safe for concurrent use; callers serialize access (the sequencer does
// so via its single-writer discipline).
type Tree struct {
	depth    uint8
	count    uint64
	frontier []domain.Hash // frontier[i] is populated iff bit i of count-so-far history is set; frontier[depth] holds the root once full
	zeroHash []domain.Hash // zeroHash[i] = the root of an empty subtree of height i
	leaves   []domain.Hash // retained for Proof; grows linearly with appends
}

// NewTree creates an empty tree of the given depth. depth must be in
// [1, MaxDepth].
func NewTree(depth uint8) (*Tree, error) {
	if depth == 0 || depth > MaxDepth {
		return nil, fmt.Errorf("merkle: depth %d out of range [1,%d]", depth, MaxDepth)
	}
	t := &Tree{
		depth:    depth,
		frontier: make([]domain.Hash, int(depth)+1),
		zeroHash: make([]domain.Hash, depth+1),
	}
	t.zeroHash[0] = crypto.Keccak256(make([]byte, 32)) // z_0 = keccak(0x00...)
	for i := 1; i <= int(depth); i++ {
		t.zeroHash[i] = crypto.Keccak256(t.zeroHash[i-1].Bytes(), t.zeroHash[i-1].Bytes())
	}
	return t, nil
}

// Depth returns the tree's fixed depth.
func (t *Tree) Depth() uint8 { return t.depth }

// Count returns the number of leaves appended so far.
func (t *Tree) Count() uint64 { return t.count }

// Append inserts leaf at the next position, updating the frontier in
// O(depth). It returns domain.ErrTreeFull once capacity (2^depth) is
// reached.
func (t *Tree) Append(leaf domain.Hash) error {
	// A depth-64 tree's capacity does not fit in a uint64 count.
	if t.depth < 64 && t.count >= uint64(1)<<t.depth {
		return fmt.Errorf("merkle: %w", domain.ErrTreeFull)
	}

	cur := leaf
	level := 0
	n := t.count
	for level < int(t.depth) && (n>>uint(level))&1 == 1 {
		cur = crypto.Keccak256(t.frontier[level].Bytes(), cur.Bytes())
		level++
	}
	t.frontier[level] = cur

	t.leaves = append(t.leaves, leaf)
	t.count++
	return nil
}

// Root computes the current root in O(depth) from the frontier and the
// precomputed zero-hashes.
func (t *Tree) Root() domain.Hash {
	if t.depth < 64 && t.count == uint64(1)<<t.depth {
		return t.frontier[t.depth] // the final append folded every level into this slot
	}
	acc := t.zeroHash[0]
	n := t.count
	for level := 0; level < int(t.depth); level++ {
		if (n>>uint(level))&1 == 1 {
			acc = crypto.Keccak256(t.frontier[level].Bytes(), acc.Bytes())
		} else {
			acc = crypto.Keccak256(acc.Bytes(), t.zeroHash[level].Bytes())
		}
	}
	return acc
}

// Proof returns the sibling path for leaf index i, for future L1-exit
// verification; Nolemma does not itself verify proofs.
func (t *Tree) Proof(i uint64) ([]domain.Hash, error) {
	if i >= t.count {
		return nil, fmt.Errorf("merkle: index %d out of range (count=%d)", i, t.count)
	}
	// Rebuild only the populated nodes at each level from the retained leaves,
	// padding with the precomputed zero-hash for the rest of that level's
	// width instead of materializing all 2^depth bottom-level slots.
	level := make([]domain.Hash, len(t.leaves))
	copy(level, t.leaves)

	proof := make([]domain.Hash, 0, t.depth)
	idx := i
	for d := 0; d < int(t.depth); d++ {
		siblingIdx := idx ^ 1
		if siblingIdx < uint64(len(level)) {
			proof = append(proof, level[siblingIdx])
		} else {
			proof = append(proof, t.zeroHash[d])
		}

		width := (len(level) + 1) / 2
		next := make([]domain.Hash, width)
		for j := 0; j < width; j++ {
			left := level[2*j]
			var right domain.Hash
			if 2*j+1 < len(level) {
				right = level[2*j+1]
			} else {
				right = t.zeroHash[d]
			}
			next[j] = crypto.Keccak256(left.Bytes(), right.Bytes())
		}
		level = next
		idx /= 2
	}
	return proof, nil
}
