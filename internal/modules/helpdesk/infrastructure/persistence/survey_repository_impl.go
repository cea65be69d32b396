package persistence

import (
	"context"
	"time"

	"StoreSupport/internal/modules/helpdesk/domain/entity"
	"StoreSupport/internal/modules/helpdesk/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type surveyRepositoryImpl struct {
	db *gorm.DB
}

func NewSurveyRepository(db *gorm.DB) repository.SurveyRepository {
	return &surveyRepositoryImpl{db: db}
}

func (r *surveyRepositoryImpl) Schedule(ctx context.Context, s *entity.SatisfactionSurvey) (bool, error) {
	now := time.Now()
	if s.Status == "" {
		s.Status = entity.SurveyStatusPending
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "org_id"}, {Name: "external_conversation_id"}},
		DoNothing: true,
	}).Create(s)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *surveyRepositoryImpl) ListDue(ctx context.Context, now time.Time, limit int) ([]entity.SatisfactionSurvey, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []entity.SatisfactionSurvey
	err := r.db.WithContext(ctx).
		Where("status = ? AND due_at <= ?", entity.SurveyStatusPending, now).
		Order("due_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *surveyRepositoryImpl) MarkSent(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.SatisfactionSurvey{}).
		Where("id = ? AND status = ?", id, entity.SurveyStatusPending).
		Updates(map[string]any{"status": entity.SurveyStatusSent, "sent_at": at, "last_error": "", "updated_at": time.Now()}).Error
}

// MarkFailed 超过最大次数后不再重试
func (r *surveyRepositoryImpl) MarkFailed(ctx context.Context, id int64, errMsg string, maxAttempts int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s entity.SatisfactionSurvey
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&s).Error; err != nil {
			return err
		}
		status := entity.SurveyStatusPending
		if maxAttempts > 0 && s.Attempts+1 >= maxAttempts {
			status = entity.SurveyStatusFailed
		}
		return tx.Model(&entity.SatisfactionSurvey{}).Where("id = ?", id).Updates(map[string]any{
			"status":     status,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": clip(errMsg),
			"updated_at": time.Now(),
		}).Error
	})
}
