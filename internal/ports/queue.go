package ports

import "github.com/masonhieb/shdredge/internal/domain"

type QueuedEntity struct {
	ID     WALEntryID
	Entity *domain.Entity
}

type EntityQueue interface {
	Enqueue(id WALEntryID, e *domain.Entity) bool
	DequeueBatch(max int) []QueuedEntity
	Len() int
}
