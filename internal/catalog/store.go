package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a recording does not exist or is not complete.
var ErrNotFound = errors.New("recording not found")

// Store reads recordings from the catalog database.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open catalog database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Lookup returns the complete recording with the given id.
func (s *Store) Lookup(ctx context.Context, id string) (Recording, error) {
	var rec Recording
	err := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, StatusComplete).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Recording{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Recording{}, fmt.Errorf("lookup recording %s: %w", id, err)
	}
	return rec, nil
}

// List returns complete recordings, newest first.
func (s *Store) List(ctx context.Context) ([]Recording, error) {
	var recs []Recording
	err := s.db.WithContext(ctx).
		Where("status = ?", StatusComplete).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	return recs, nil
}
