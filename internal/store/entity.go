package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/isometry/ldap-sync/internal/syncer"
)

// EntityStore is a gorm-backed syncer.Store for record type T. Field names
// accepted by FilterByFieldIn and BulkUpdateFlag are restricted to the
// record's `sync` tags, whose values double as column names, so no caller
// input ever reaches SQL as an identifier.
type EntityStore[T any] struct {
	db *gorm.DB
}

// NewEntityStore wraps db in a store for T.
func NewEntityStore[T any](db *gorm.DB) *EntityStore[T] {
	return &EntityStore[T]{db: db}
}

func (s *EntityStore[T]) GetAll(ctx context.Context) ([]*T, error) {
	var recs []*T
	if err := s.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *EntityStore[T]) Update(ctx context.Context, rec *T) error {
	return s.db.WithContext(ctx).Save(rec).Error
}

func (s *EntityStore[T]) BulkCreate(ctx context.Context, recs []*T) error {
	if len(recs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&recs).Error
}

func (s *EntityStore[T]) FilterByFieldIn(ctx context.Context, field string, values []string) ([]*T, error) {
	column, err := s.column(field)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	var recs []*T
	if err := s.db.WithContext(ctx).Where(column+" IN ?", values).Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *EntityStore[T]) BulkUpdateFlag(ctx context.Context, ids []int64, field string, value bool) error {
	column, err := s.column(field)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(new(T)).Where("id IN ?", ids).Update(column, value).Error
}

func (s *EntityStore[T]) BulkDelete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Delete(new(T), "id IN ?", ids).Error
}

// column validates field against T's synchronized fields before using it as
// a SQL identifier.
func (s *EntityStore[T]) column(field string) (string, error) {
	if !syncer.HasField[T](field) {
		var zero T
		return "", fmt.Errorf("%T has no synchronized field %q", zero, field)
	}
	return field, nil
}
