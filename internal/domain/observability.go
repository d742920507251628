package domain

import (
	"context"
	"io"
	"time"
)

// ListOpts provides pagination and time filtering for audit queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// AuditEntry is a single append-only audit log row. It is diagnostic only —
// the chain of record for consensus purposes is always the in-memory Chain.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only log of sealer and submission events.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// RateLimiter provides distributed rate limiting in front of the SubmitTx
// HTTP boundary.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed mutual exclusion, used to serialize Seal
// so that only one sequencer process seals a block at a time.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver copies sealed-block bytes to cold storage. It is strictly
// optional and never the authoritative source of chain state.
type Archiver interface {
	ArchiveBlock(ctx context.Context, blockNumber uint64, canonical []byte) error
}
