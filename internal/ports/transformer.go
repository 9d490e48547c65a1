package ports

import "github.com/masonhieb/shdredge/internal/domain"

type Transformer interface {
	Transform(*domain.Entity) (*domain.Entity, error)
	Version() uint16
}
