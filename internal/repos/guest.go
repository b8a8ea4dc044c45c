package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/boakyeni/nanas-wedding-backend/internal/platform/logger"
	"github.com/boakyeni/nanas-wedding-backend/internal/types"
)

type GuestRepo interface {
	Create(ctx context.Context, tx *gorm.DB, guests []*types.Guest) ([]*types.Guest, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Guest, error)
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Guest, error)
	GetByPartyIDForUpdate(ctx context.Context, tx *gorm.DB, partyID uuid.UUID) ([]*types.Guest, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Guest, error)
	ListByPartyID(ctx context.Context, tx *gorm.DB, partyID uuid.UUID) ([]*types.Guest, error)
	UpdateContact(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (int64, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type guestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGuestRepo(db *gorm.DB, baseLog *logger.Logger) GuestRepo {
	return &guestRepo{
		db:  db,
		log: baseLog.With("repo", "GuestRepo"),
	}
}

func (gr *guestRepo) Create(ctx context.Context, tx *gorm.DB, guests []*types.Guest) ([]*types.Guest, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	if len(guests) == 0 {
		return []*types.Guest{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&guests).Error; err != nil {
		return nil, err
	}
	return guests, nil
}

func (gr *guestRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Guest, error) {
	return gr.getByID(ctx, tx, id, false)
}

// GetByIDForUpdate takes an exclusive row lock on the guest; it blocks until
// the lock is available or the session lock_timeout fires.
func (gr *guestRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Guest, error) {
	return gr.getByID(ctx, tx, id, true)
}

func (gr *guestRepo) getByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, forUpdate bool) (*types.Guest, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	q := transaction.WithContext(ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var guest types.Guest
	err := q.Where("id = ?", id).Limit(1).Find(&guest).Error
	if err != nil {
		return nil, err
	}
	if guest.ID == uuid.Nil {
		return nil, nil
	}
	return &guest, nil
}

// GetByPartyIDForUpdate locks every current member of the party. Rows are
// locked in id order so concurrent dispatches for siblings cannot deadlock.
func (gr *guestRepo) GetByPartyIDForUpdate(ctx context.Context, tx *gorm.DB, partyID uuid.UUID) ([]*types.Guest, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	var out []*types.Guest
	if partyID == uuid.Nil {
		return out, nil
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("party_id = ?", partyID).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (gr *guestRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Guest, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	var out []*types.Guest
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (gr *guestRepo) ListByPartyID(ctx context.Context, tx *gorm.DB, partyID uuid.UUID) ([]*types.Guest, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	var out []*types.Guest
	if partyID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("party_id = ?", partyID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateContact writes contact fields and reports the affected row count so
// the caller can detect a concurrent delete.
func (gr *guestRepo) UpdateContact(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Model(&types.Guest{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (gr *guestRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Guest{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (gr *guestRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Guest{}).Error
}
