package ports

import "github.com/masonhieb/shdredge/internal/domain"

type WALEntryID uint64

type WAL interface {
	Append(e *domain.Entity) (WALEntryID, error)
	Iterate(from WALEntryID, fn func(id WALEntryID, e *domain.Entity) error) error
	Commit(upto WALEntryID) error
	TruncateCommitted() error
	Stats() WALStats
}

type WALStats struct {
	OldestUncommitted WALEntryID
	LatestAppended    WALEntryID
	SizeBytes         int64
}
