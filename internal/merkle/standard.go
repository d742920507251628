package merkle

import "github.com/sergerad/nolemma/internal/crypto"
import "github.com/sergerad/nolemma/internal/domain"

// EmptyRoot is the defined root of a zero-leaf standard tree: the Keccak-256
// of the empty byte string. Used for a block sealed with no transactions.
var EmptyRoot = crypto.Keccak256([]byte{})

// TransactionsRoot computes a balanced Merkle root over leaf hashes in the
// given order, duplicating the last element on every odd-length level so the
// tree always pairs evenly. Callers verifying a block must recompute this
// root the same way; it is not interchangeable with the incremental tree's
// root convention used for withdrawals.
func TransactionsRoot(leaves []domain.Hash) domain.Hash {
	if len(leaves) == 0 {
		return EmptyRoot
	}
	level := make([]domain.Hash, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]domain.Hash, len(level)/2)
		for i := range next {
			next[i] = crypto.Keccak256(level[2*i].Bytes(), level[2*i+1].Bytes())
		}
		level = next
	}
	return level[0]
}
