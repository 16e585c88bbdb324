package store

import (
	"context"

	"identity/internal/domain"

	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{DB: db} }

func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

// AutoMigrate creates both partition tables with their unique indexes.
// Each partition enforces its own uniqueness; nothing spans the two,
// which is why the union pre-check in the service layer exists.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.CommunityMember{}, &domain.Researcher{})
}
