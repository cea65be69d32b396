package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"StoreSupport/internal/modules/conversation/domain/entity"
	"StoreSupport/internal/modules/conversation/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sessionRepositoryImpl struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) repository.SessionRepository {
	return &sessionRepositoryImpl{db: db}
}

func (r *sessionRepositoryImpl) GetOrCreate(ctx context.Context, s *entity.ChatSession) (*entity.ChatSession, bool, error) {
	if s == nil || strings.TrimSpace(s.SessionToken) == "" {
		return nil, false, errors.New("session token is required")
	}
	if s.Status == "" {
		s.Status = entity.SessionStatusActive
	}

	// 并发请求依赖唯一索引收敛到同一行，冲突时不报错
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "session_token"}}, DoNothing: true}).
		Create(s)
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected > 0

	sess, err := r.GetByToken(ctx, s.SessionToken)
	if err != nil {
		return nil, false, err
	}
	if sess == nil {
		return nil, false, fmt.Errorf("session %s vanished after upsert", s.SessionToken)
	}
	return sess, created, nil
}

func (r *sessionRepositoryImpl) GetByToken(ctx context.Context, token string) (*entity.ChatSession, error) {
	var sess entity.ChatSession
	err := r.db.WithContext(ctx).Where("session_token = ?", token).Take(&sess).Error
	if err == nil {
		return &sess, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *sessionRepositoryImpl) GetByID(ctx context.Context, id int64) (*entity.ChatSession, error) {
	var sess entity.ChatSession
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&sess).Error
	if err == nil {
		return &sess, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *sessionRepositoryImpl) AttachCustomer(ctx context.Context, sessionID int64, customerID string) error {
	return r.db.WithContext(ctx).Model(&entity.ChatSession{}).
		Where("id = ? AND customer_id IS NULL", sessionID).
		Updates(map[string]any{"customer_id": customerID, "updated_at": time.Now()}).Error
}

// lockSession 事务内对会话行加写锁，后续 seq 分配与状态迁移都基于锁内读到的值
func lockSession(tx *gorm.DB, sessionID int64) (*entity.ChatSession, error) {
	var sess entity.ChatSession
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", sessionID).Take(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session %d not found", sessionID)
		}
		return nil, err
	}
	return &sess, nil
}

func appendLocked(tx *gorm.DB, sess *entity.ChatSession, msg *entity.ConversationMessage) error {
	sess.LastSeq++
	msg.SessionId = sess.Id
	msg.Seq = sess.LastSeq
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	return tx.Create(msg).Error
}

func saveSession(tx *gorm.DB, sess *entity.ChatSession, at time.Time) error {
	sess.UpdatedAt = at
	return tx.Model(&entity.ChatSession{}).Where("id = ?", sess.Id).Updates(map[string]any{
		"status":            sess.Status,
		"escalation_reason": sess.EscalationReason,
		"last_seq":          sess.LastSeq,
		"context":           sess.Context,
		"escalated_at":      sess.EscalatedAt,
		"resolved_at":       sess.ResolvedAt,
		"updated_at":        sess.UpdatedAt,
	}).Error
}

func applyStatus(sess *entity.ChatSession, change repository.StatusChange) bool {
	next, changed := entity.NextStatus(sess.Status, change.Target, change.Actor)
	if !changed {
		return false
	}
	at := change.At
	if at.IsZero() {
		at = time.Now()
	}
	sess.Status = next
	switch next {
	case entity.SessionStatusEscalated:
		sess.EscalatedAt = &at
		if change.Reason != "" {
			sess.EscalationReason = change.Reason
		}
	case entity.SessionStatusResolved:
		sess.ResolvedAt = &at
	case entity.SessionStatusActive:
		// 重新打开时保留历史升级原因，清空解决时间
		sess.ResolvedAt = nil
	}
	return true
}

func (r *sessionRepositoryImpl) Append(ctx context.Context, sessionID int64, msg *entity.ConversationMessage) (*entity.ConversationMessage, error) {
	if msg == nil {
		return nil, errors.New("message is nil")
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sess, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}
		if err := appendLocked(tx, sess, msg); err != nil {
			return err
		}
		return saveSession(tx, sess, msg.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *sessionRepositoryImpl) AppendExternal(ctx context.Context, sessionID int64, msg *entity.ConversationMessage) (bool, error) {
	if msg == nil || msg.ExternalMessageId == nil || strings.TrimSpace(*msg.ExternalMessageId) == "" {
		return false, errors.New("external message id is required")
	}
	appended := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sess, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&entity.ConversationMessage{}).
			Where("session_id = ? AND external_message_id = ?", sessionID, *msg.ExternalMessageId).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if err := appendLocked(tx, sess, msg); err != nil {
			return err
		}
		appended = true
		return saveSession(tx, sess, time.Now())
	})
	return appended, err
}

func (r *sessionRepositoryImpl) UpdateStatus(ctx context.Context, sessionID int64, change repository.StatusChange) (*entity.ChatSession, bool, error) {
	var (
		out     *entity.ChatSession
		changed bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sess, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}
		out = sess
		if !applyStatus(sess, change) {
			return nil
		}
		changed = true
		at := change.At
		if at.IsZero() {
			at = time.Now()
		}
		return saveSession(tx, sess, at)
	})
	if err != nil {
		return nil, false, err
	}
	return out, changed, nil
}

func (r *sessionRepositoryImpl) UpdateContext(ctx context.Context, sessionID int64, fn func(*entity.SessionContext)) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sess, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}
		fn(&sess.Context)
		return saveSession(tx, sess, time.Now())
	})
}

// RecordTurn 客户消息、助手消息、状态迁移与上下文更新同一事务提交
func (r *sessionRepositoryImpl) RecordTurn(ctx context.Context, rec repository.TurnRecord) (*repository.TurnResult, error) {
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	var out *repository.TurnResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sess, err := lockSession(tx, rec.SessionId)
		if err != nil {
			return err
		}
		res := &repository.TurnResult{}

		// 已解决的会话收到新消息即重新打开
		if sess.Status == entity.SessionStatusResolved {
			res.Reopened = applyStatus(sess, repository.StatusChange{Target: entity.SessionStatusActive, Actor: entity.ActorCustomer, At: at})
		}

		customerMsg := &entity.ConversationMessage{Role: entity.RoleCustomer, Content: rec.CustomerContent, CreatedAt: at}
		if err := appendLocked(tx, sess, customerMsg); err != nil {
			return err
		}
		assistantMsg := &entity.ConversationMessage{
			Role:      entity.RoleAssistant,
			Content:   rec.AssistantContent,
			Metadata:  rec.AssistantMetadata,
			CreatedAt: at,
		}
		if err := appendLocked(tx, sess, assistantMsg); err != nil {
			return err
		}

		if rec.Escalate {
			res.Escalated = applyStatus(sess, repository.StatusChange{
				Target: entity.SessionStatusEscalated,
				Reason: rec.EscalationReason,
				Actor:  entity.ActorAssistant,
				At:     at,
			})
		}
		if rec.UpdateContext != nil {
			rec.UpdateContext(&sess.Context)
		}
		if err := saveSession(tx, sess, at); err != nil {
			return err
		}

		res.Session = sess
		res.CustomerMessage = customerMsg
		res.AssistantMessage = assistantMsg
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sessionRepositoryImpl) ListRecentMessages(ctx context.Context, sessionID int64, limit int) ([]entity.ConversationMessage, error) {
	if limit <= 0 {
		limit = 10
	}
	var messages []entity.ConversationMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *sessionRepositoryImpl) ListMessages(ctx context.Context, sessionID int64, limit, offset int) ([]entity.ConversationMessage, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var total int64
	if err := r.db.WithContext(ctx).Model(&entity.ConversationMessage{}).Where("session_id = ?", sessionID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var messages []entity.ConversationMessage
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	return messages, total, err
}
