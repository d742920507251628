// Package driver implements a synthetic traffic generator for the Nolemma
// sequencer, using the same ticker-driven shape as the sequencer's own
// periodic sealer. It exists so `cmd/nolemmad -mode standalone` can
// demonstrate a submit-seal cycle without a separate client process. The
// driver only signs and submits; it does not verify sealed blocks.
package driver

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/sergerad/nolemma/internal/crypto"
	"github.com/sergerad/nolemma/internal/domain"
	"github.com/sergerad/nolemma/internal/encoding"
)

// Submitter is anything that accepts signed transactions — satisfied
// directly by *sequencer.Engine for in-process driving, or by an
// HTTPSubmitter for driving a sequencer over its SubmitTx HTTP endpoint.
type Submitter interface {
	Submit(tx *domain.Transaction) (domain.Hash, domain.Address, error)
}

// Config configures a Driver.
type Config struct {
	SubmitEvery time.Duration
	ChainID     int64
	Accounts    int // number of distinct sending accounts to generate, default 4
	Logger      *slog.Logger
}

// Driver periodically submits transactions from a small pool of generated
// accounts: every third one is a Withdrawal, the others are Dynamic.
type Driver struct {
	submitter Submitter
	period    time.Duration
	chainID   *big.Int
	logger    *slog.Logger

	accounts []*crypto.Keypair
	nonces   map[domain.Address]uint64
	tick     uint64
}

// New creates a Driver that submits to submitter.
func New(submitter Submitter, cfg Config) (*Driver, error) {
	n := cfg.Accounts
	if n <= 0 {
		n = 4
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	accounts := make([]*crypto.Keypair, 0, n)
	nonces := make(map[domain.Address]uint64, n)
	for i := 0; i < n; i++ {
		kp, err := crypto.GenerateKeypair()
		if err != nil {
			return nil, fmt.Errorf("driver: generate account %d: %w", i, err)
		}
		accounts = append(accounts, kp)
		nonces[kp.Address] = 0
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		chainID = big.NewInt(1337)
	}

	return &Driver{
		submitter: submitter,
		period:    cfg.SubmitEvery,
		chainID:   chainID,
		logger:    logger.With(slog.String("component", "driver")),
		accounts:  accounts,
		nonces:    nonces,
	}, nil
}

// Run submits one transaction every period until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	d.logger.Info("driver started", slog.Duration("submit_every", d.period), slog.Int("accounts", len(d.accounts)))
	defer d.logger.Info("driver stopped")

	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.submitOne(); err != nil {
				d.logger.Warn("driver submit failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (d *Driver) submitOne() error {
	sender := d.accounts[d.tick%uint64(len(d.accounts))]
	recipient := d.accounts[(d.tick+1)%uint64(len(d.accounts))]
	nonce := d.nonces[sender.Address]

	var tx *domain.Transaction
	if d.tick%3 == 2 {
		tx = domain.NewWithdrawalTransaction(domain.WithdrawalTxData{
			Nonce:     nonce,
			Recipient: recipient.Address,
			Value:     randomWei(),
		})
	} else {
		to := recipient.Address
		tx = domain.NewDynamicTransaction(domain.DynamicTxData{
			ChainID:              d.chainID,
			Nonce:                nonce,
			MaxPriorityFeePerGas: big.NewInt(1_000_000_000),
			MaxFeePerGas:         big.NewInt(10_000_000_000),
			GasLimit:             21000,
			To:                   &to,
			Value:                randomWei(),
			Data:                 nil,
		})
	}
	d.tick++

	if err := encoding.SignTransaction(sender, tx); err != nil {
		return fmt.Errorf("driver: sign: %w", err)
	}

	if _, _, err := d.submitter.Submit(tx); err != nil {
		return err
	}
	d.nonces[sender.Address] = nonce + 1
	return nil
}

func randomWei() *big.Int {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000_000_000))
	if err != nil {
		return big.NewInt(1)
	}
	return n
}
