package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ambralab/tpdb-backend/internal/platform/logger"
	"github.com/ambralab/tpdb-backend/internal/types"
)

type LoginTokenRepo interface {
	Create(ctx context.Context, tx *gorm.DB, tokens []*types.LoginToken) ([]*types.LoginToken, error)
	GetByHash(ctx context.Context, tx *gorm.DB, tokenHash string) (*types.LoginToken, error)
	Consume(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
	DeleteExpired(ctx context.Context, tx *gorm.DB) error
}

type loginTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLoginTokenRepo(db *gorm.DB, baseLog *logger.Logger) LoginTokenRepo {
	return &loginTokenRepo{db: db, log: baseLog.With("repo", "LoginTokenRepo")}
}

func (r *loginTokenRepo) Create(ctx context.Context, tx *gorm.DB, tokens []*types.LoginToken) ([]*types.LoginToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(tokens) == 0 {
		return []*types.LoginToken{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *loginTokenRepo) GetByHash(ctx context.Context, tx *gorm.DB, tokenHash string) (*types.LoginToken, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var token types.LoginToken
	if err := transaction.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// Consume is a compare-and-swap on consumed_at: only the first redeemer of a
// link wins, which is what makes the login links single-use.
func (r *loginTokenRepo) Consume(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	res := transaction.WithContext(ctx).
		Model(&types.LoginToken{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *loginTokenRepo) DeleteExpired(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("expires_at < ?", time.Now().UTC()).
		Delete(&types.LoginToken{}).Error
}
