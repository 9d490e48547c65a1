package ports

import "github.com/masonhieb/shdredge/internal/domain"

type Sink interface {
	WriteBatch(entities []*domain.Entity) error
	Name() string
}
