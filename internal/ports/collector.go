package ports

import "github.com/masonhieb/shdredge/internal/domain"

type Collector interface {
	Start(out chan<- *domain.Entity) error
	Stop() error
}
