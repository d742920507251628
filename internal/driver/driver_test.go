package driver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sergerad/nolemma/internal/domain"
	"github.com/sergerad/nolemma/internal/encoding"
)

type fakeSubmitter struct {
	mu  sync.Mutex
	txs []*domain.Transaction
}

func (f *fakeSubmitter) Submit(tx *domain.Transaction) (domain.Hash, domain.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = append(f.txs, tx)
	hash, err := encoding.TransactionHash(tx)
	if err != nil {
		return domain.Hash{}, domain.Address{}, err
	}
	sender, err := encoding.RecoverSender(tx)
	if err != nil {
		return domain.Hash{}, domain.Address{}, err
	}
	return hash, sender, nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.txs)
}

func TestNewGeneratesDistinctAccounts(t *testing.T) {
	d, err := New(&fakeSubmitter{}, Config{SubmitEvery: time.Millisecond, Accounts: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(d.accounts) != 3 {
		t.Fatalf("accounts = %d, want 3", len(d.accounts))
	}
	seen := make(map[domain.Address]bool)
	for _, kp := range d.accounts {
		if seen[kp.Address] {
			t.Error("generated duplicate account address")
		}
		seen[kp.Address] = true
	}
}

func TestNewDefaultsAccountCount(t *testing.T) {
	d, err := New(&fakeSubmitter{}, Config{SubmitEvery: time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(d.accounts) != 4 {
		t.Errorf("default account count = %d, want 4", len(d.accounts))
	}
}

func TestSubmitOneSignsAndIncrementsNonce(t *testing.T) {
	fs := &fakeSubmitter{}
	d, err := New(fs, Config{SubmitEvery: time.Millisecond, Accounts: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sender := d.accounts[0]
	if err := d.submitOne(); err != nil {
		t.Fatalf("submitOne: %v", err)
	}
	if fs.count() != 1 {
		t.Fatalf("submitter received %d txs, want 1", fs.count())
	}
	if d.nonces[sender.Address] != 1 {
		t.Errorf("nonce for sender = %d, want 1", d.nonces[sender.Address])
	}

	got, err := encoding.RecoverSender(fs.txs[0])
	if err != nil {
		t.Fatalf("RecoverSender: %v", err)
	}
	if got != sender.Address {
		t.Errorf("recovered sender = %s, want %s", got.Hex(), sender.Address.Hex())
	}
}

func TestSubmitOneAlternatesTransactionTypes(t *testing.T) {
	fs := &fakeSubmitter{}
	d, err := New(fs, Config{SubmitEvery: time.Millisecond, Accounts: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 6; i++ {
		if err := d.submitOne(); err != nil {
			t.Fatalf("submitOne: %v", err)
		}
	}

	var withdrawals, dynamics int
	for _, tx := range fs.txs {
		if tx.IsWithdrawal() {
			withdrawals++
		} else {
			dynamics++
		}
	}
	if withdrawals == 0 || dynamics == 0 {
		t.Errorf("expected a mix of transaction types, got %d withdrawals, %d dynamic", withdrawals, dynamics)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	fs := &fakeSubmitter{}
	d, err := New(fs, Config{SubmitEvery: 5 * time.Millisecond, Accounts: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := d.Run(ctx); err != context.DeadlineExceeded {
		t.Errorf("Run returned %v, want context.DeadlineExceeded", err)
	}
	if fs.count() == 0 {
		t.Error("expected at least one submission before the context expired")
	}
}
