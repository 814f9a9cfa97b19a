package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"signtrack/internal/domain"
)

type IdentityRepository struct {
	db *gorm.DB
}

func NewIdentityRepository(db *gorm.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

func (r *IdentityRepository) Create(ctx context.Context, ident domain.SigningIdentity) (domain.SigningIdentity, error) {
	if r.db == nil {
		return domain.SigningIdentity{}, errDBUnavailable
	}
	if ident.ID == "" {
		ident.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = now
	}
	ident.UpdatedAt = now
	model := identityModelFromDomain(ident)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.SigningIdentity{}, err
	}
	return identityFromModel(model), nil
}

func (r *IdentityRepository) GetByOrgKey(ctx context.Context, orgKey string) (*domain.SigningIdentity, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model SigningIdentityModel
	err := r.db.WithContext(ctx).First(&model, "org_key = ?", orgKey).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	ident := identityFromModel(model)
	return &ident, nil
}

func (r *IdentityRepository) GetDefault(ctx context.Context) (*domain.SigningIdentity, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model SigningIdentityModel
	err := r.db.WithContext(ctx).First(&model, "is_default = ?", true).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	ident := identityFromModel(model)
	return &ident, nil
}

// SaveTokenCache overwrites the identity's cached token in place; no token
// history is kept.
func (r *IdentityRepository) SaveTokenCache(ctx context.Context, identityID, accessToken string, expiresAt time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	expiresAt = expiresAt.UTC()
	res := r.db.WithContext(ctx).Model(&SigningIdentityModel{}).
		Where("id = ?", identityID).
		Updates(map[string]any{
			"access_token":     accessToken,
			"token_expires_at": &expiresAt,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func identityModelFromDomain(ident domain.SigningIdentity) SigningIdentityModel {
	model := SigningIdentityModel{
		ID:          ident.ID,
		OrgKey:      ident.OrgKey,
		APIUsername: ident.APIUsername,
		AccountID:   ident.AccountID,
		IsDefault:   ident.Default,
		AccessToken: ident.AccessToken,
		CreatedAt:   ident.CreatedAt.UTC(),
		UpdatedAt:   ident.UpdatedAt.UTC(),
	}
	if !ident.TokenExpires.IsZero() {
		expires := ident.TokenExpires.UTC()
		model.TokenExpiresAt = &expires
	}
	return model
}

func identityFromModel(model SigningIdentityModel) domain.SigningIdentity {
	ident := domain.SigningIdentity{
		ID:          model.ID,
		OrgKey:      model.OrgKey,
		APIUsername: model.APIUsername,
		AccountID:   model.AccountID,
		Default:     model.IsDefault,
		AccessToken: model.AccessToken,
		CreatedAt:   model.CreatedAt.UTC(),
		UpdatedAt:   model.UpdatedAt.UTC(),
	}
	if model.TokenExpiresAt != nil {
		ident.TokenExpires = model.TokenExpiresAt.UTC()
	}
	return ident
}
