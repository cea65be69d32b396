package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"StoreSupport/internal/modules/conversation/application/dto/respond"
	"StoreSupport/internal/modules/conversation/domain/entity"
	"StoreSupport/internal/modules/conversation/domain/repository"
	"StoreSupport/pkg/util"
	"StoreSupport/pkg/xerr"
	"StoreSupport/pkg/zlog"

	"go.uber.org/zap"
)

// SessionService 会话存储的应用层入口，供坐席工具与外部客服平台同步使用
type SessionService interface {
	GetOrCreateSession(ctx context.Context, token, orgID string, customerID *string) (*entity.ChatSession, error)
	AppendMessage(ctx context.Context, sessionID int64, role, content string, meta entity.MessageMetadata) (*entity.ConversationMessage, error)
	UpdateStatus(ctx context.Context, sessionID int64, status, reason, actor string) (*entity.ChatSession, error)
	Transcript(ctx context.Context, orgID, token string, limit, offset int) (*respond.TranscriptRespond, error)
	// TranscriptText 最近 limit 条的纯文本，用于转人工时附带上下文
	TranscriptText(ctx context.Context, orgID, token string, limit int) (string, error)

	LinkExternalConversation(ctx context.Context, orgID, token, externalConversationID string) error
	AppendAgentReply(ctx context.Context, orgID, token, externalMessageID, author, content string, at time.Time) (bool, error)
	ResolveByToken(ctx context.Context, orgID, token, assignee string) error
}

type sessionServiceImpl struct {
	repo  repository.SessionRepository
	clock util.Clock
}

func NewSessionService(repo repository.SessionRepository, clock util.Clock) SessionService {
	if clock == nil {
		clock = util.SystemClock()
	}
	return &sessionServiceImpl{repo: repo, clock: clock}
}

func (s *sessionServiceImpl) GetOrCreateSession(ctx context.Context, token, orgID string, customerID *string) (*entity.ChatSession, error) {
	token = strings.TrimSpace(token)
	orgID = strings.TrimSpace(orgID)
	if token == "" || orgID == "" {
		return nil, xerr.ErrParam
	}
	now := s.clock.Now()
	sess, _, err := s.repo.GetOrCreate(ctx, &entity.ChatSession{
		SessionToken: token,
		OrgId:        orgID,
		CustomerId:   util.StrPtr(util.Deref(customerID)),
		Status:       entity.SessionStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("get or create session: %w", err)
	}
	if sess.OrgId != orgID {
		return nil, xerr.ErrSessionOrg
	}
	if cid := util.StrPtr(util.Deref(customerID)); cid != nil && sess.CustomerId == nil {
		if err := s.repo.AttachCustomer(ctx, sess.Id, *cid); err != nil {
			return nil, fmt.Errorf("attach customer: %w", err)
		}
		sess.CustomerId = cid
	}
	return sess, nil
}

func (s *sessionServiceImpl) AppendMessage(ctx context.Context, sessionID int64, role, content string, meta entity.MessageMetadata) (*entity.ConversationMessage, error) {
	switch role {
	case entity.RoleCustomer, entity.RoleAssistant, entity.RoleHumanAgent, entity.RoleSystem:
	default:
		return nil, xerr.New(xerr.BadRequest, "unknown message role")
	}
	return s.repo.Append(ctx, sessionID, &entity.ConversationMessage{
		Role:      role,
		Content:   content,
		Metadata:  meta,
		CreatedAt: s.clock.Now(),
	})
}

// UpdateStatus 非法迁移不报错，返回未变化的会话
func (s *sessionServiceImpl) UpdateStatus(ctx context.Context, sessionID int64, status, reason, actor string) (*entity.ChatSession, error) {
	sess, changed, err := s.repo.UpdateStatus(ctx, sessionID, repository.StatusChange{
		Target: status,
		Reason: reason,
		Actor:  actor,
		At:     s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	if changed {
		zlog.Info("session status changed",
			zap.Int64("session_id", sessionID),
			zap.String("status", sess.Status),
			zap.String("actor", actor))
	}
	return sess, nil
}

func (s *sessionServiceImpl) load(ctx context.Context, orgID, token string) (*entity.ChatSession, error) {
	sess, err := s.repo.GetByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.OrgId != orgID {
		return nil, xerr.ErrSessionNotFound
	}
	return sess, nil
}

func (s *sessionServiceImpl) Transcript(ctx context.Context, orgID, token string, limit, offset int) (*respond.TranscriptRespond, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	sess, err := s.load(ctx, orgID, token)
	if err != nil {
		return nil, err
	}
	msgs, total, err := s.repo.ListMessages(ctx, sess.Id, limit, offset)
	if err != nil {
		return nil, err
	}

	out := &respond.TranscriptRespond{
		SessionID:        sess.Id,
		SessionToken:     sess.SessionToken,
		Status:           sess.Status,
		EscalationReason: sess.EscalationReason,
		CustomerID:       sess.CustomerId,
		Total:            total,
		Messages:         make([]respond.TranscriptMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		out.Messages = append(out.Messages, respond.TranscriptMessage{
			Seq:        m.Seq,
			Role:       m.Role,
			Content:    m.Content,
			Author:     m.Metadata.AuthorName,
			Confidence: m.Metadata.Confidence,
			ModelTier:  m.Metadata.ModelTier,
			Tool:       m.Metadata.ToolInvoked,
			CreatedAt:  m.CreatedAt,
		})
	}
	return out, nil
}

func (s *sessionServiceImpl) TranscriptText(ctx context.Context, orgID, token string, limit int) (string, error) {
	sess, err := s.load(ctx, orgID, token)
	if err != nil {
		return "", err
	}
	msgs, err := s.repo.ListRecentMessages(ctx, sess.Id, limit)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, strings.TrimSpace(m.Content))
	}
	return strings.TrimSpace(b.String()), nil
}

func (s *sessionServiceImpl) LinkExternalConversation(ctx context.Context, orgID, token, externalConversationID string) error {
	sess, err := s.load(ctx, orgID, token)
	if err != nil {
		return err
	}
	if sess.Context.ExternalConversationId == externalConversationID {
		return nil
	}
	return s.repo.UpdateContext(ctx, sess.Id, func(c *entity.SessionContext) {
		c.ExternalConversationId = externalConversationID
	})
}

// AppendAgentReply 人工客服回复写入记录，按外部消息 id 去重
func (s *sessionServiceImpl) AppendAgentReply(ctx context.Context, orgID, token, externalMessageID, author, content string, at time.Time) (bool, error) {
	externalMessageID = strings.TrimSpace(externalMessageID)
	if externalMessageID == "" {
		return false, xerr.ErrParam
	}
	sess, err := s.load(ctx, orgID, token)
	if err != nil {
		return false, err
	}
	if at.IsZero() {
		at = s.clock.Now()
	}
	return s.repo.AppendExternal(ctx, sess.Id, &entity.ConversationMessage{
		Role:              entity.RoleHumanAgent,
		Content:           content,
		Metadata:          entity.MessageMetadata{AuthorName: strings.TrimSpace(author)},
		ExternalMessageId: &externalMessageID,
		CreatedAt:         at,
	})
}

func (s *sessionServiceImpl) ResolveByToken(ctx context.Context, orgID, token, assignee string) error {
	sess, err := s.load(ctx, orgID, token)
	if err != nil {
		if errors.Is(err, xerr.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	reason := "resolved in helpdesk"
	if a := strings.TrimSpace(assignee); a != "" {
		reason = "resolved in helpdesk by " + a
	}
	_, err = s.UpdateStatus(ctx, sess.Id, entity.SessionStatusResolved, reason, entity.ActorHuman)
	if err == nil && assignee != "" {
		err = s.repo.UpdateContext(ctx, sess.Id, func(c *entity.SessionContext) { c.AssigneeName = assignee })
	}
	return err
}
