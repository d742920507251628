package sequencer

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/sergerad/nolemma/internal/crypto"
	"github.com/sergerad/nolemma/internal/domain"
	"github.com/sergerad/nolemma/internal/encoding"
	"github.com/sergerad/nolemma/internal/merkle"
)

func testEngine(t *testing.T) (*Engine, *crypto.Keypair) {
	t.Helper()
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	eng, err := New(Config{
		Keypair:         kp,
		WithdrawalDepth: 4,
		SealPeriod:      time.Hour, // tests drive Seal directly, not via Run
		Now:             func() time.Time { return time.Unix(1_700_000_000, 0) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng, kp
}

func signedDynamicTx(t *testing.T, kp *crypto.Keypair, nonce uint64) *domain.Transaction {
	t.Helper()
	to := kp.Address
	tx := domain.NewDynamicTransaction(domain.DynamicTxData{
		ChainID: big.NewInt(1337), Nonce: nonce,
		MaxPriorityFeePerGas: big.NewInt(1), MaxFeePerGas: big.NewInt(2),
		GasLimit: 21000, To: &to, Value: big.NewInt(1),
	})
	if err := encoding.SignTransaction(kp, tx); err != nil {
		t.Fatalf("SignTransaction: %v", err)
	}
	return tx
}

func TestSubmitAndSealProducesBlock(t *testing.T) {
	eng, sender := testEngine(t)
	tx := signedDynamicTx(t, sender, 0)

	hash, from, err := eng.Submit(tx)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if from != sender.Address {
		t.Errorf("Submit returned sender %s, want %s", from.Hex(), sender.Address.Hex())
	}

	block, err := eng.Seal(context.Background())
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if block.Number() != 0 {
		t.Errorf("first block number = %d, want 0", block.Number())
	}
	if len(block.Transactions) != 1 {
		t.Fatalf("sealed %d transactions, want 1", len(block.Transactions))
	}
	gotHash, err := encoding.TransactionHash(block.Transactions[0])
	if err != nil {
		t.Fatalf("TransactionHash: %v", err)
	}
	if gotHash != hash {
		t.Error("sealed transaction hash does not match the admitted transaction")
	}
}

func TestSubmitRejectsDuplicate(t *testing.T) {
	eng, sender := testEngine(t)
	tx := signedDynamicTx(t, sender, 0)

	if _, _, err := eng.Submit(tx); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, _, err := eng.Submit(tx); err == nil {
		t.Error("resubmitting the same transaction should fail")
	}
}

func TestSealEmptyMempoolYieldsEmptyRoot(t *testing.T) {
	eng, _ := testEngine(t)
	block, err := eng.Seal(context.Background())
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if len(block.Transactions) != 0 {
		t.Errorf("expected empty block, got %d transactions", len(block.Transactions))
	}
	if got := block.SignedHeader.Header.TransactionsRoot; got != merkle.EmptyRoot {
		t.Errorf("empty block transactions root = %s, want %s", got.Hex(), merkle.EmptyRoot.Hex())
	}
}

func TestSealChainsParentDigest(t *testing.T) {
	eng, _ := testEngine(t)

	first, err := eng.Seal(context.Background())
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	second, err := eng.Seal(context.Background())
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	firstDigest := encoding.HeaderDigest(&first.SignedHeader.Header)
	if second.SignedHeader.Header.ParentDigest == nil || *second.SignedHeader.Header.ParentDigest != firstDigest {
		t.Error("second block's ParentDigest should equal the first block's header digest")
	}
	if second.Number() != first.Number()+1 {
		t.Errorf("second block number = %d, want %d", second.Number(), first.Number()+1)
	}
}

func TestSealedHookInvoked(t *testing.T) {
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	called := make(chan uint64, 1)
	eng, err := New(Config{
		Keypair:         kp,
		WithdrawalDepth: 4,
		SealPeriod:      time.Hour,
		OnSealed: []SealedHook{
			func(ctx context.Context, b *domain.Block) { called <- b.Number() },
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := eng.Seal(context.Background()); err != nil {
		t.Fatalf("Seal: %v", err)
	}

	select {
	case n := <-called:
		if n != 0 {
			t.Errorf("hook saw block number %d, want 0", n)
		}
	default:
		t.Error("SealedHook was not invoked")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	eng, err := New(Config{Keypair: kp, WithdrawalDepth: 4, SealPeriod: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = eng.Run(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("Run returned %v, want context.DeadlineExceeded", err)
	}
}
