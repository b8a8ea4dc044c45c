package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/boakyeni/nanas-wedding-backend/internal/platform/logger"
	"github.com/boakyeni/nanas-wedding-backend/internal/types"
)

type PartyRepo interface {
	Create(ctx context.Context, tx *gorm.DB, parties []*types.Party) ([]*types.Party, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Party, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Party, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type partyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPartyRepo(db *gorm.DB, baseLog *logger.Logger) PartyRepo {
	return &partyRepo{
		db:  db,
		log: baseLog.With("repo", "PartyRepo"),
	}
}

func (pr *partyRepo) Create(ctx context.Context, tx *gorm.DB, parties []*types.Party) ([]*types.Party, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if len(parties) == 0 {
		return []*types.Party{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&parties).Error; err != nil {
		return nil, err
	}
	return parties, nil
}

func (pr *partyRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Party, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var party types.Party
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&party).Error
	if err != nil {
		return nil, err
	}
	if party.ID == uuid.Nil {
		return nil, nil
	}
	return &party, nil
}

func (pr *partyRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Party, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var out []*types.Party
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (pr *partyRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Party{}).Error
}
