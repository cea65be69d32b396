package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"StoreSupport/internal/modules/helpdesk/domain/entity"
	"StoreSupport/internal/modules/helpdesk/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type outboxRepositoryImpl struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) repository.OutboxRepository {
	return &outboxRepositoryImpl{db: db}
}

func (r *outboxRepositoryImpl) Enqueue(ctx context.Context, ev *entity.OutboxEvent) (bool, error) {
	if ev == nil {
		return false, nil
	}
	now := time.Now()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	ev.UpdatedAt = now
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoNothing: true,
	}).Create(ev)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *outboxRepositoryImpl) ClaimForPublish(ctx context.Context, now time.Time, limit int) ([]entity.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	var out []entity.OutboxEvent
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var events []entity.OutboxEvent
		staleBefore := now.Add(-entity.ClaimLease)
		q := tx.Model(&entity.OutboxEvent{}).
			Where("((publish_status IN ? AND (next_retry_at IS NULL OR next_retry_at <= ?))"+
				" OR (publish_status = ? AND updated_at <= ?)"+
				" OR (status = ? AND updated_at <= ?))",
				[]int8{entity.PublishStatusPending, entity.PublishStatusFailed}, now,
				entity.PublishStatusPublishing, staleBefore,
				entity.ProcessStatusProcessing, staleBefore).
			Order("id ASC").
			Limit(limit).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		if err := q.Find(&events).Error; err != nil {
			return err
		}
		if len(events) == 0 {
			out = []entity.OutboxEvent{}
			return nil
		}

		ids := make([]int64, 0, len(events))
		var stuck []int64
		for i := range events {
			ids = append(ids, events[i].Id)
			if events[i].Status == entity.ProcessStatusProcessing && !events[i].UpdatedAt.After(staleBefore) {
				stuck = append(stuck, events[i].Id)
				events[i].Status = entity.ProcessStatusFailed
			}
		}
		// 处理中途崩溃的事件放回可认领状态，重新投递后由 worker 再次处理
		if len(stuck) > 0 {
			if err := tx.Model(&entity.OutboxEvent{}).
				Where("id IN ? AND status = ?", stuck, entity.ProcessStatusProcessing).
				Updates(map[string]any{"status": entity.ProcessStatusFailed, "last_error": "processing lease expired"}).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&entity.OutboxEvent{}).
			Where("id IN ?", ids).
			Updates(map[string]any{"publish_status": entity.PublishStatusPublishing, "updated_at": now}).Error; err != nil {
			return err
		}

		out = events
		return nil
	})
	return out, err
}

func (r *outboxRepositoryImpl) MarkPublished(ctx context.Context, id int64, topic string, partition int, offset int64, publishedAt time.Time) error {
	updates := map[string]any{
		"publish_status":  entity.PublishStatusPublished,
		"kafka_topic":     strings.TrimSpace(topic),
		"kafka_partition": partition,
		"kafka_offset":    offset,
		"published_at":    publishedAt,
		"last_error":      "",
		"updated_at":      time.Now(),
	}
	return r.db.WithContext(ctx).Model(&entity.OutboxEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *outboxRepositoryImpl) MarkPublishFailed(ctx context.Context, id int64, nextRetryAt time.Time, errMsg string) error {
	updates := map[string]any{
		"publish_status": entity.PublishStatusFailed,
		"retry_count":    gorm.Expr("retry_count + 1"),
		"next_retry_at":  nextRetryAt,
		"last_error":     clip(errMsg),
		"updated_at":     time.Now(),
	}
	return r.db.WithContext(ctx).Model(&entity.OutboxEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *outboxRepositoryImpl) GetByID(ctx context.Context, id int64) (*entity.OutboxEvent, error) {
	var ev entity.OutboxEvent
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&ev).Error
	if err == nil {
		return &ev, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *outboxRepositoryImpl) TryMarkProcessing(ctx context.Context, id int64, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entity.OutboxEvent{}).
		Where("id = ? AND status IN ?", id, []int8{entity.ProcessStatusPending, entity.ProcessStatusFailed}).
		Updates(map[string]any{"status": entity.ProcessStatusProcessing, "updated_at": now})
	return res.RowsAffected > 0, res.Error
}

func (r *outboxRepositoryImpl) MarkSucceeded(ctx context.Context, id int64) error {
	updates := map[string]any{"status": entity.ProcessStatusSucceeded, "last_error": "", "updated_at": time.Now()}
	return r.db.WithContext(ctx).Model(&entity.OutboxEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *outboxRepositoryImpl) MarkFailed(ctx context.Context, id int64, errMsg string, retryAt *time.Time) error {
	updates := map[string]any{
		"status":      entity.ProcessStatusFailed,
		"retry_count": gorm.Expr("retry_count + ?", 1),
		"last_error":  clip(errMsg),
		"updated_at":  time.Now(),
	}
	if retryAt != nil {
		// 重新进入投递队列，由 relay 在 retryAt 之后再次发布
		updates["publish_status"] = entity.PublishStatusFailed
		updates["next_retry_at"] = *retryAt
	}
	return r.db.WithContext(ctx).Model(&entity.OutboxEvent{}).Where("id = ?", id).Updates(updates).Error
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 255 {
		s = s[:255]
	}
	return s
}
