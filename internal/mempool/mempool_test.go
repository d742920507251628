package mempool

import (
	"errors"
	"sync"
	"testing"

	"github.com/sergerad/nolemma/internal/domain"
)

func TestAdmitAndDrain(t *testing.T) {
	m := New()
	tx1 := &domain.Transaction{}
	tx2 := &domain.Transaction{}
	h1 := domain.Hash{1}
	h2 := domain.Hash{2}

	if err := m.Admit(h1, tx1); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if err := m.Admit(h2, tx2); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}

	drained := m.Drain()
	if len(drained) != 2 || drained[0] != tx1 || drained[1] != tx2 {
		t.Errorf("Drain() returned unexpected order: %+v", drained)
	}
	if m.Len() != 0 {
		t.Errorf("Len() after Drain = %d, want 0", m.Len())
	}
}

func TestAdmitRejectsDuplicate(t *testing.T) {
	m := New()
	h := domain.Hash{1}
	if err := m.Admit(h, &domain.Transaction{}); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	err := m.Admit(h, &domain.Transaction{})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Errorf("second Admit with same hash = %v, want ErrDuplicate", err)
	}
}

func TestDrainedTransactionsStayKnown(t *testing.T) {
	m := New()
	h := domain.Hash{1}
	if err := m.Admit(h, &domain.Transaction{}); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	m.Drain()

	if err := m.Admit(h, &domain.Transaction{}); !errors.Is(err, domain.ErrDuplicate) {
		t.Errorf("resubmitting a sealed hash should still be rejected, got %v", err)
	}
}

func TestMarkSealedPreventsFutureAdmission(t *testing.T) {
	m := New()
	h := domain.Hash{7}
	m.MarkSealed(h)

	if err := m.Admit(h, &domain.Transaction{}); !errors.Is(err, domain.ErrDuplicate) {
		t.Errorf("Admit after MarkSealed = %v, want ErrDuplicate", err)
	}
}

func TestConcurrentAdmit(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := domain.Hash{byte(i)}
			_ = m.Admit(h, &domain.Transaction{})
		}(i)
	}
	wg.Wait()
	if m.Len() != 100 {
		t.Errorf("Len() = %d, want 100", m.Len())
	}
}
