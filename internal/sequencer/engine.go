// Package sequencer implements the block-production state machine: mempool
// draining, transactions/withdrawals root computation, header signing,
// parent-chaining, and periodic sealing. The concurrency shape is a
// mutex-guarded single writer driven by a ticker, with cooperative shutdown
// coordinated by the caller's errgroup.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sergerad/nolemma/internal/crypto"
	"github.com/sergerad/nolemma/internal/domain"
	"github.com/sergerad/nolemma/internal/encoding"
	"github.com/sergerad/nolemma/internal/mempool"
	"github.com/sergerad/nolemma/internal/merkle"
)

// SealedHook is invoked after a block is appended to the chain, outside the
// sequencer's write lock. Hooks must not block for long — the sealer does
// not wait for them before accepting new submissions.
type SealedHook func(ctx context.Context, block *domain.Block)

// Config configures a new Engine.
type Config struct {
	Keypair         *crypto.Keypair
	WithdrawalDepth uint8         // depth of the withdrawal tree; defaults to 32
	SealPeriod      time.Duration // interval between periodic seals
	Logger          *slog.Logger
	Now             func() time.Time // overridable clock for tests; defaults to time.Now
	OnSealed        []SealedHook

	// LockManager, when set, serializes Seal across a multi-process
	// deployment so only one process is ever the active sealer at a time.
	// Nil is valid and means this process always seals unconditionally.
	LockManager domain.LockManager
}

// Engine is the sequencer's data-plane core: mempool admission, periodic
// sealing, and the authoritative in-memory Chain.
type Engine struct {
	kp     *crypto.Keypair
	logger *slog.Logger
	now    func() time.Time
	period time.Duration

	mempool *mempool.Mempool
	chain   *domain.Chain
	hooks   []SealedHook

	mu           sync.Mutex // single-writer lock over withdrawals/chain mutation
	withdrawals  *merkle.Tree
	lastSealTime time.Time

	lockMgr domain.LockManager
}

// sealLockKey identifies the distributed lock guarding the seal critical
// section; the same key must be used by every process sharing a sequencer
// deployment.
const sealLockKey = "seal"

// New constructs an Engine. It never fails for config reasons other than an
// invalid withdrawal tree depth.
func New(cfg Config) (*Engine, error) {
	depth := cfg.WithdrawalDepth
	if depth == 0 {
		depth = 32
	}
	tree, err := merkle.NewTree(depth)
	if err != nil {
		return nil, fmt.Errorf("sequencer: %w", err)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		kp:          cfg.Keypair,
		logger:      logger.With(slog.String("component", "sequencer")),
		now:         now,
		period:      cfg.SealPeriod,
		mempool:     mempool.New(),
		chain:       domain.NewChain(),
		hooks:       cfg.OnSealed,
		withdrawals: tree,
		lockMgr:     cfg.LockManager,
	}, nil
}

// Address returns the sequencer's signing address.
func (e *Engine) Address() domain.Address { return e.kp.Address }

// lockTTL bounds how long a held seal lock survives a crashed holder. It is
// set well above the seal period so it does not expire during a live Seal,
// which releases it on return, while a dead holder's lock expires within a
// few periods.
func (e *Engine) lockTTL() time.Duration {
	if e.period <= 0 {
		return 10 * time.Second
	}
	return 4 * e.period
}

// Chain exposes the read-only chain for external accessors (HTTP handlers,
// the WebSocket broadcaster).
func (e *Engine) Chain() *domain.Chain { return e.chain }

// Submit validates and admits a signed transaction to the mempool. It
// recovers the sender from the transaction's signing digest and rejects
// malformed signatures and duplicate transaction hashes.
func (e *Engine) Submit(tx *domain.Transaction) (domain.Hash, domain.Address, error) {
	sender, err := encoding.RecoverSender(tx)
	if err != nil {
		return domain.Hash{}, domain.Address{}, err
	}
	hash, err := encoding.TransactionHash(tx)
	if err != nil {
		return domain.Hash{}, domain.Address{}, err
	}
	if err := e.mempool.Admit(hash, tx); err != nil {
		return hash, sender, err
	}
	e.logger.Debug("transaction admitted",
		slog.String("hash", hash.Hex()),
		slog.String("sender", sender.Hex()),
		slog.String("type", tx.Type.String()),
	)
	return hash, sender, nil
}

// AddHook registers an additional SealedHook, e.g. after optional components
// are wired up.
func (e *Engine) AddHook(h SealedHook) {
	e.hooks = append(e.hooks, h)
}

// Seal drains the mempool and produces the next block. Sealing an empty
// mempool is permitted and yields the defined empty-list transactions root.
// Seal returns domain.ErrTreeFull (wrapped) when the withdrawal tree is full,
// which is fatal to the sequencer, and also returns an error if hashing a
// drained transaction or signing the header fails. If a LockManager is configured and another process currently
// holds the seal lock, Seal skips this round and returns (nil, nil).
func (e *Engine) Seal(ctx context.Context) (*domain.Block, error) {
	if e.lockMgr != nil {
		unlock, err := e.lockMgr.Acquire(ctx, sealLockKey, e.lockTTL())
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				e.logger.Debug("seal lock held by another process, skipping round")
				return nil, nil
			}
			e.logger.Warn("seal lock unavailable, sealing without it", slog.String("error", err.Error()))
		} else {
			defer unlock()
		}
	}

	e.mu.Lock()

	txs := e.mempool.Drain()

	leaves := make([]domain.Hash, 0, len(txs))
	for _, tx := range txs {
		h, err := encoding.TransactionHash(tx)
		if err != nil {
			e.mu.Unlock()
			return nil, fmt.Errorf("sequencer: hash tx during seal: %w", err)
		}
		leaves = append(leaves, h)
		if tx.IsWithdrawal() {
			if err := e.withdrawals.Append(h); err != nil {
				e.mu.Unlock()
				return nil, fmt.Errorf("sequencer: %w", err)
			}
		}
	}

	transactionsRoot := merkle.TransactionsRoot(leaves)
	withdrawalsRoot := e.withdrawals.Root()

	head := e.chain.Head()
	var number uint64
	var parentDigest *domain.Hash
	if head != nil {
		number = head.Number() + 1
		d := encoding.HeaderDigest(&head.SignedHeader.Header)
		parentDigest = &d
	}

	timestamp := uint64(e.now().Unix())
	if head != nil && timestamp < head.SignedHeader.Header.Timestamp {
		e.logger.Warn("clock skew detected, correcting to parent timestamp",
			slog.Uint64("observed", timestamp),
			slog.Uint64("parent", head.SignedHeader.Header.Timestamp),
		)
		timestamp = head.SignedHeader.Header.Timestamp
	}

	header := domain.BlockHeader{
		Sequencer:        e.kp.Address,
		Number:           number,
		Timestamp:        timestamp,
		ParentDigest:     parentDigest,
		WithdrawalsRoot:  withdrawalsRoot,
		TransactionsRoot: transactionsRoot,
	}
	signed, err := encoding.SignHeader(e.kp, header)
	if err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("sequencer: sign header: %w", err)
	}

	block := &domain.Block{SignedHeader: signed, Transactions: txs}
	e.chain.Append(block)
	e.lastSealTime = e.now()
	e.mu.Unlock()

	e.logger.Info("block sealed",
		slog.Uint64("number", number),
		slog.Int("tx_count", len(txs)),
		slog.String("digest", encoding.HeaderDigest(&header).Hex()),
	)

	for _, hook := range e.hooks {
		hook(ctx, block)
	}
	return block, nil
}

// Run starts the periodic sealer. It blocks until ctx is cancelled or a
// fatal sealing error occurs (ErrTreeFull).
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("sequencer started", slog.Duration("seal_period", e.period))
	defer e.logger.Info("sequencer stopped")

	ticker := time.NewTicker(e.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := e.Seal(ctx); err != nil {
				return fmt.Errorf("sequencer: fatal sealing error: %w", err)
			}
		}
	}
}
