package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository is a thin generic store over gorm for simple catalog-style
// entities. Anything with locking or multi-row transactional semantics uses
// raw queries in its own service instead.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T) ([]*T, error)
	FindOne(ctx context.Context, query *T) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID string, resource any) error
	Delete(ctx context.Context, resourceID string) error
	Count(ctx context.Context, query *T) (int64, error)
	BatchCreate(ctx context.Context, resources []*T) error
}
