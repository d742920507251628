package sequencer

import (
	"fmt"

	"github.com/sergerad/nolemma/internal/domain"
	"github.com/sergerad/nolemma/internal/encoding"
	"github.com/sergerad/nolemma/internal/merkle"
)

// Verifier independently re-derives the withdrawals root across a chain of
// blocks, the way an external observer does: by replaying every withdrawal
// transaction's hash into a fresh incremental tree from genesis onward. It
// holds no other sequencer state.
type Verifier struct {
	withdrawals  *merkle.Tree
	nextExpected uint64
}

// NewVerifier creates a Verifier for a chain using the given withdrawal tree
// depth, which must match the sequencer's configured depth.
func NewVerifier(withdrawalDepth uint8) (*Verifier, error) {
	tree, err := merkle.NewTree(withdrawalDepth)
	if err != nil {
		return nil, fmt.Errorf("sequencer: %w", err)
	}
	return &Verifier{withdrawals: tree}, nil
}

// VerifyNext checks block against the expected parent digest and sequencer
// address, and advances the verifier's rolling withdrawal tree. Blocks must
// be presented in chain order (genesis first) — VerifyNext rejects
// out-of-order numbers.
func (v *Verifier) VerifyNext(block *domain.Block, expectedParent *domain.Hash, expectedSequencer domain.Address) (bool, error) {
	header := block.SignedHeader.Header

	if header.Sequencer != expectedSequencer {
		return false, nil
	}
	if header.Number != v.nextExpected {
		return false, nil
	}
	if !sameOptionalHash(header.ParentDigest, expectedParent) {
		return false, nil
	}

	leaves := make([]domain.Hash, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		h, err := encoding.TransactionHash(tx)
		if err != nil {
			return false, fmt.Errorf("sequencer: verify: hash tx: %w", err)
		}
		leaves = append(leaves, h)

		if _, err := encoding.RecoverSender(tx); err != nil {
			return false, nil
		}

		if tx.IsWithdrawal() {
			if err := v.withdrawals.Append(h); err != nil {
				return false, fmt.Errorf("sequencer: verify: %w", err)
			}
		}
	}

	if merkle.TransactionsRoot(leaves) != header.TransactionsRoot {
		return false, nil
	}
	if v.withdrawals.Root() != header.WithdrawalsRoot {
		return false, nil
	}
	if !encoding.VerifyHeaderSignature(block.SignedHeader, expectedSequencer) {
		return false, nil
	}

	v.nextExpected++
	return true, nil
}

func sameOptionalHash(a, b *domain.Hash) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// VerifyBlock is a convenience one-shot check for a single block against an
// explicit expected parent/number/sequencer, without needing the full
// replay history. It cannot verify the withdrawals root in isolation — for
// that, use a Verifier seeded from genesis.
func VerifyBlock(block *domain.Block, expectedParent *domain.Hash, expectedNumber uint64, expectedSequencer domain.Address) bool {
	header := block.SignedHeader.Header
	if header.Sequencer != expectedSequencer {
		return false
	}
	if header.Number != expectedNumber {
		return false
	}
	if !sameOptionalHash(header.ParentDigest, expectedParent) {
		return false
	}

	leaves := make([]domain.Hash, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		h, err := encoding.TransactionHash(tx)
		if err != nil {
			return false
		}
		leaves = append(leaves, h)
		if _, err := encoding.RecoverSender(tx); err != nil {
			return false
		}
	}
	if merkle.TransactionsRoot(leaves) != header.TransactionsRoot {
		return false
	}
	return encoding.VerifyHeaderSignature(block.SignedHeader, expectedSequencer)
}
