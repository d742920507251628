// Package mempool holds transactions admitted by the sequencer but not yet
// sealed into a block. Its duplicate-rejection discipline is grounded in the
// same mutex-guarded map pattern used for trade-signal deduplication
// upstream of this package's ancestry.
package mempool

import (
	"sync"

	"github.com/sergerad/nolemma/internal/domain"
)

// Mempool is a set of pending transactions awaiting the next seal, ordered
// by admission. Duplicates, identified by transaction hash, are rejected for
// the lifetime of the process (including transactions already sealed into a
// block). Safe for concurrent use.
type Mempool struct {
	mu      sync.Mutex
	pending []*domain.Transaction
	known   map[domain.Hash]bool
}

// New creates an empty Mempool.
func New() *Mempool {
	return &Mempool{
		known: make(map[domain.Hash]bool),
	}
}

// Admit inserts tx in admission order. It returns domain.ErrDuplicate if a
// transaction with the same hash has already been admitted or sealed.
func (m *Mempool) Admit(hash domain.Hash, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.known[hash] {
		return domain.ErrDuplicate
	}
	m.known[hash] = true
	m.pending = append(m.pending, tx)
	return nil
}

// MarkSealed records hash as known without requiring it to currently be
// pending — used to seed the duplicate set from transactions that were
// admitted and already drained into an earlier block.
func (m *Mempool) MarkSealed(hash domain.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.known[hash] = true
}

// Len returns the number of transactions currently pending.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Drain atomically removes and returns all pending transactions in
// admission order, leaving the duplicate-hash set intact so resubmission is
// still rejected after sealing.
func (m *Mempool) Drain() []*domain.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.pending
	m.pending = nil
	return out
}
