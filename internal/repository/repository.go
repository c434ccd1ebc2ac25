package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository defines the standard CRUD surface every typed repository
// composes on top of.
type Repository[T any] interface {
	Create(ctx context.Context, entity *T) error
	FindByID(ctx context.Context, id interface{}) (*T, error)
	Update(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id interface{}) error
	List(ctx context.Context, offset, limit int) ([]T, int64, error)
}

// BaseRepository implements Repository against a gorm.DB.
type BaseRepository[T any] struct {
	db *gorm.DB
}

// NewBaseRepository creates a new base repository.
func NewBaseRepository[T any](db *gorm.DB) *BaseRepository[T] {
	return &BaseRepository[T]{db: db}
}

// DB exposes the underlying connection for typed repositories that need
// query shapes the generic surface doesn't cover.
func (r *BaseRepository[T]) DB() *gorm.DB { return r.db }

func (r *BaseRepository[T]) Create(ctx context.Context, entity *T) error {
	return r.db.WithContext(ctx).Create(entity).Error
}

func (r *BaseRepository[T]) FindByID(ctx context.Context, id interface{}) (*T, error) {
	var entity T
	err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *BaseRepository[T]) Update(ctx context.Context, entity *T) error {
	return r.db.WithContext(ctx).Save(entity).Error
}

func (r *BaseRepository[T]) Delete(ctx context.Context, id interface{}) error {
	var entity T
	return r.db.WithContext(ctx).Delete(&entity, "id = ?", id).Error
}

func (r *BaseRepository[T]) List(ctx context.Context, offset, limit int) ([]T, int64, error) {
	var entities []T
	var count int64

	db := r.db.WithContext(ctx).Model(new(T))

	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).Find(&entities).Error
	return entities, count, err
}
