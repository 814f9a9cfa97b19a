package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"signtrack/internal/domain"
)

type EnvelopeRepository struct {
	db *gorm.DB
}

func NewEnvelopeRepository(db *gorm.DB) *EnvelopeRepository {
	return &EnvelopeRepository{db: db}
}

func (r *EnvelopeRepository) Create(ctx context.Context, stage domain.EnvelopeStage) (domain.EnvelopeStage, error) {
	if r.db == nil {
		return domain.EnvelopeStage{}, errDBUnavailable
	}
	if stage.ID == "" {
		stage.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if stage.CreatedAt.IsZero() {
		stage.CreatedAt = now
	}
	if stage.UpdatedAt.IsZero() {
		stage.UpdatedAt = now
	}
	model := stageModelFromDomain(stage)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.EnvelopeStage{}, err
	}
	return stageFromModel(model), nil
}

func (r *EnvelopeRepository) GetByEnvelopeID(ctx context.Context, envelopeID string) (*domain.EnvelopeStage, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model EnvelopeStageModel
	err := r.db.WithContext(ctx).First(&model, "envelope_id = ?", envelopeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	stage := stageFromModel(model)
	return &stage, nil
}

// SaveWithAudit commits the stage update and the audit append in one
// transaction: either both rows land or neither does.
func (r *EnvelopeRepository) SaveWithAudit(ctx context.Context, stage domain.EnvelopeStage, event domain.EnvelopeAuditEvent) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"envelope_status":  stage.EnvelopeStatus,
			"recipient_status": stage.RecipientStatus,
			"updated_at":       stage.UpdatedAt,
		}
		if stage.RecipientAuthInfo != nil {
			updates["recipient_auth_info"] = stage.RecipientAuthInfo
		}
		res := tx.Model(&EnvelopeStageModel{}).
			Where("envelope_id = ?", stage.EnvelopeID).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		model := auditModelFromDomain(event)
		return tx.Create(&model).Error
	})
}

func (r *EnvelopeRepository) List(ctx context.Context, limit int) ([]domain.EnvelopeStage, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	var models []EnvelopeStageModel
	if err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.EnvelopeStage, 0, len(models))
	for _, model := range models {
		out = append(out, stageFromModel(model))
	}
	return out, nil
}

func (r *EnvelopeRepository) ListAudit(ctx context.Context, envelopeID string) ([]domain.EnvelopeAuditEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []EnvelopeAuditLogModel
	if err := r.db.WithContext(ctx).
		Where("envelope_id = ?", envelopeID).
		Order("event_received_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.EnvelopeAuditEvent, 0, len(models))
	for _, model := range models {
		out = append(out, auditFromModel(model))
	}
	return out, nil
}

func stageModelFromDomain(stage domain.EnvelopeStage) EnvelopeStageModel {
	return EnvelopeStageModel{
		ID:                stage.ID,
		EnvelopeID:        stage.EnvelopeID,
		AccountID:         stage.AccountID,
		EnvelopeStatus:    stage.EnvelopeStatus,
		RecipientStatus:   stage.RecipientStatus,
		RecipientAuthInfo: stage.RecipientAuthInfo,
		OwnerKind:         string(stage.Owner.Kind),
		OwnerID:           stage.Owner.ID,
		CreatedAt:         stage.CreatedAt.UTC(),
		UpdatedAt:         stage.UpdatedAt.UTC(),
	}
}

func stageFromModel(model EnvelopeStageModel) domain.EnvelopeStage {
	return domain.EnvelopeStage{
		ID:                model.ID,
		EnvelopeID:        model.EnvelopeID,
		AccountID:         model.AccountID,
		EnvelopeStatus:    model.EnvelopeStatus,
		RecipientStatus:   model.RecipientStatus,
		RecipientAuthInfo: model.RecipientAuthInfo,
		Owner: domain.OwnerRef{
			Kind: domain.OwnerKind(model.OwnerKind),
			ID:   model.OwnerID,
		},
		CreatedAt: model.CreatedAt.UTC(),
		UpdatedAt: model.UpdatedAt.UTC(),
	}
}

func auditModelFromDomain(event domain.EnvelopeAuditEvent) EnvelopeAuditLogModel {
	return EnvelopeAuditLogModel{
		ID:              event.ID,
		EnvelopeID:      event.EnvelopeID,
		EventType:       event.EventType,
		EventValue:      event.EventValue,
		EventReceivedAt: event.EventReceivedAt.UTC(),
		OwnerKind:       string(event.Owner.Kind),
		OwnerID:         event.Owner.ID,
		RemoteAddr:      event.RemoteAddr,
		CreatedAt:       time.Now().UTC(),
	}
}

func auditFromModel(model EnvelopeAuditLogModel) domain.EnvelopeAuditEvent {
	return domain.EnvelopeAuditEvent{
		ID:              model.ID,
		EnvelopeID:      model.EnvelopeID,
		EventType:       model.EventType,
		EventValue:      model.EventValue,
		EventReceivedAt: model.EventReceivedAt.UTC(),
		Owner: domain.OwnerRef{
			Kind: domain.OwnerKind(model.OwnerKind),
			ID:   model.OwnerID,
		},
		RemoteAddr: model.RemoteAddr,
	}
}
