package s3blob

import (
	"bytes"
	"context"
	"fmt"

	"github.com/sergerad/nolemma/internal/domain"
)

// ArchiveImpl implements domain.Archiver by uploading a sealed block's
// canonical bytes to object storage and recording the archival in the audit
// log. Deletion of old blocks from memory is out of scope — the chain is
// ephemeral by design and archival is purely additive.
type ArchiveImpl struct {
	writer domain.BlobWriter
	audit  domain.AuditStore // may be nil; when set, a failed audit write fails ArchiveBlock
}

// NewArchiver creates an ArchiveImpl backed by writer. audit may be nil, in
// which case archival proceeds without recording an audit entry.
func NewArchiver(writer domain.BlobWriter, audit domain.AuditStore) *ArchiveImpl {
	return &ArchiveImpl{writer: writer, audit: audit}
}

// ArchiveBlock uploads canonical to archive/blocks/<blockNumber>.bin.
func (a *ArchiveImpl) ArchiveBlock(ctx context.Context, blockNumber uint64, canonical []byte) error {
	path := blockPath(blockNumber)
	if err := a.writer.Put(ctx, path, bytes.NewReader(canonical), "application/octet-stream"); err != nil {
		return fmt.Errorf("archive/s3: archive block %d: %w", blockNumber, err)
	}

	if a.audit != nil {
		if err := a.audit.Log(ctx, "archive.block", map[string]any{
			"path":         path,
			"block_number": blockNumber,
			"bytes":        len(canonical),
		}); err != nil {
			return fmt.Errorf("archive/s3: archive block %d audit log: %w", blockNumber, err)
		}
	}
	return nil
}

// blockPath builds the S3 key for a single sealed block.
//
//	archive/blocks/0000000042.bin
func blockPath(blockNumber uint64) string {
	return fmt.Sprintf("archive/blocks/%010d.bin", blockNumber)
}

var _ domain.Archiver = (*ArchiveImpl)(nil)
