package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"StoreSupport/internal/config"
	"StoreSupport/internal/modules/helpdesk/domain/entity"
	"StoreSupport/internal/modules/helpdesk/domain/event"
	"StoreSupport/internal/modules/helpdesk/domain/repository"
	"StoreSupport/internal/modules/helpdesk/infrastructure/client"
	storefrontService "StoreSupport/internal/modules/storefront/application/service"
	storefrontRepo "StoreSupport/internal/modules/storefront/domain/repository"
	"StoreSupport/pkg/util"
	"StoreSupport/pkg/ws"
	"StoreSupport/pkg/zlog"

	"go.uber.org/zap"
)

// HandoffSessions 转人工需要的会话读写
type HandoffSessions interface {
	SessionSync
	TranscriptText(ctx context.Context, orgID, token string, limit int) (string, error)
}

// SideEffectProcessor 处理一条已投递的 outbox 事件；返回 error 表示需要重试
type SideEffectProcessor interface {
	Process(ctx context.Context, ev *entity.OutboxEvent) error
}

type SideEffectDeps struct {
	Accounts  repository.AccountMappingRepository
	Mirrors   repository.MirrorRepository
	Surveys   repository.SurveyRepository
	Customers storefrontRepo.CustomerRepository
	Enrich    storefrontService.EnrichService
	Sessions  HandoffSessions
	Client    client.Client
	Notifier  Notifier
	Clock     util.Clock
}

type sideEffectServiceImpl struct {
	deps        SideEffectDeps
	surveyDelay time.Duration
}

func NewSideEffectService(deps SideEffectDeps, conf config.HelpdeskConfig) SideEffectProcessor {
	if deps.Clock == nil {
		deps.Clock = util.SystemClock()
	}
	return &sideEffectServiceImpl{
		deps:        deps,
		surveyDelay: time.Duration(conf.SurveyDelayHours) * time.Hour,
	}
}

func (s *sideEffectServiceImpl) Process(ctx context.Context, ev *entity.OutboxEvent) error {
	if ev == nil {
		return nil
	}
	switch ev.EventType {
	case entity.EventCustomerEnrich:
		var p event.CustomerEnrich
		if err := decode(ev, &p); err != nil {
			return err
		}
		return s.enrich(ctx, p)
	case entity.EventStakeholderNotify:
		var p event.StakeholderNotify
		if err := decode(ev, &p); err != nil {
			return err
		}
		return s.notifyStakeholders(p)
	case entity.EventFollowupTriggered:
		var p event.FollowupTriggered
		if err := decode(ev, &p); err != nil {
			return err
		}
		return s.followup(p)
	case entity.EventSurveySchedule:
		var p event.SurveySchedule
		if err := decode(ev, &p); err != nil {
			return err
		}
		return s.scheduleSurvey(ctx, p)
	case entity.EventAssignmentApply:
		var p event.AssignmentApply
		if err := decode(ev, &p); err != nil {
			return err
		}
		return s.assign(ctx, p)
	case entity.EventEscalationHandoff:
		var p event.EscalationHandoff
		if err := decode(ev, &p); err != nil {
			return err
		}
		return s.handoff(ctx, p)
	default:
		zlog.Warn("unknown outbox event type, skipped", zap.Int64("event_id", ev.Id), zap.String("event_type", ev.EventType))
		return nil
	}
}

func decode(ev *entity.OutboxEvent, dst any) error {
	if err := json.Unmarshal([]byte(ev.PayloadJson), dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", ev.EventType, err)
	}
	return nil
}

func (s *sideEffectServiceImpl) enrich(ctx context.Context, p event.CustomerEnrich) error {
	if s.deps.Enrich == nil || p.CustomerId == "" {
		return nil
	}
	attrs, err := s.deps.Enrich.Enrich(ctx, p.OrgId, p.CustomerId)
	if err != nil {
		return err
	}
	if attrs != nil {
		zlog.Info("customer enriched",
			zap.String("org_id", p.OrgId),
			zap.String("customer_id", p.CustomerId),
			zap.String("tier", attrs.Tier))
	}
	return nil
}

func (s *sideEffectServiceImpl) notifyStakeholders(p event.StakeholderNotify) error {
	zlog.Info("high priority customer opened a conversation",
		zap.String("org_id", p.OrgId),
		zap.String("conversation_id", p.ExternalConversationId),
		zap.String("customer_id", p.CustomerId))
	if s.deps.Notifier == nil {
		return nil
	}
	return s.deps.Notifier.Notify(ws.Notification{
		Type:    ws.NotifyHighPriority,
		OrgId:   p.OrgId,
		Reason:  p.Reason,
		Message: fmt.Sprintf("%s opened conversation %s", nonEmpty(p.CustomerName, "A high-value customer"), p.ExternalConversationId),
		At:      s.deps.Clock.Now(),
	})
}

func (s *sideEffectServiceImpl) followup(p event.FollowupTriggered) error {
	zlog.Info("follow-up keywords matched",
		zap.String("org_id", p.OrgId),
		zap.String("conversation_id", p.ExternalConversationId),
		zap.String("group", p.Group),
		zap.Strings("keywords", p.Keywords))
	if s.deps.Notifier == nil {
		return nil
	}
	return s.deps.Notifier.Notify(ws.Notification{
		Type:    ws.NotifyFollowup,
		OrgId:   p.OrgId,
		Reason:  p.Group,
		Message: fmt.Sprintf("conversation %s mentions %s", p.ExternalConversationId, strings.Join(p.Keywords, ", ")),
		At:      s.deps.Clock.Now(),
	})
}

func (s *sideEffectServiceImpl) scheduleSurvey(ctx context.Context, p event.SurveySchedule) error {
	if s.deps.Surveys == nil {
		return nil
	}
	email := strings.TrimSpace(p.ContactEmail)
	if email == "" {
		zlog.Info("survey skipped, contact has no email", zap.String("conversation_id", p.ExternalConversationId))
		return nil
	}
	resolved := p.ResolvedAt
	if resolved.IsZero() {
		resolved = s.deps.Clock.Now()
	}
	now := s.deps.Clock.Now()
	_, err := s.deps.Surveys.Schedule(ctx, &entity.SatisfactionSurvey{
		OrgId:                  p.OrgId,
		ExternalConversationId: p.ExternalConversationId,
		ContactEmail:           email,
		CustomerId:             util.StrPtr(p.CustomerId),
		Status:                 entity.SurveyStatusPending,
		DueAt:                  resolved.Add(s.surveyDelay),
		CreatedAt:              now,
		UpdatedAt:              now,
	})
	return err
}

func (s *sideEffectServiceImpl) assign(ctx context.Context, p event.AssignmentApply) error {
	if s.deps.Client == nil {
		return nil
	}
	m, err := s.deps.Mirrors.GetByExternalID(ctx, p.OrgId, p.ExternalConversationId)
	if err != nil {
		return err
	}
	if m == nil {
		return nil
	}
	err = s.deps.Client.AssignConversation(ctx, m.ExternalAccountId, m.ExternalConversationId, p.AssigneeId)
	if errors.Is(err, client.ErrDisabled) {
		zlog.Info("helpdesk api disabled, assignment recorded only",
			zap.String("conversation_id", p.ExternalConversationId),
			zap.String("rule", p.RuleName))
		return nil
	}
	return err
}

// handoff 已有镜像会话时只追加内部备注，否则新建外部会话并回写关联
func (s *sideEffectServiceImpl) handoff(ctx context.Context, p event.EscalationHandoff) error {
	if s.deps.Client == nil || s.deps.Accounts == nil {
		return nil
	}
	account, err := s.deps.Accounts.GetByOrgID(ctx, p.OrgId)
	if err != nil {
		return err
	}
	if account == nil {
		zlog.Warn("no helpdesk account mapped, handoff skipped", zap.String("org_id", p.OrgId))
		return nil
	}

	note := fmt.Sprintf("AI assistant escalated this conversation: %s", nonEmpty(p.Reason, "escalated"))
	if s.deps.Mirrors != nil {
		m, err := s.deps.Mirrors.GetBySessionToken(ctx, p.OrgId, p.SessionToken)
		if err != nil {
			return err
		}
		if m != nil {
			return s.ignoreDisabled(s.deps.Client.PostPrivateNote(ctx, m.ExternalAccountId, m.ExternalConversationId, note))
		}
	}

	req := client.HandoffRequest{
		AccountId:    account.ExternalAccountId,
		SessionToken: p.SessionToken,
		Reason:       p.Reason,
		Priority:     "high",
	}
	if p.CustomerId != "" && s.deps.Customers != nil {
		if c, err := s.deps.Customers.GetByID(ctx, p.OrgId, p.CustomerId); err == nil && c != nil {
			req.ContactEmail = c.Email
			req.ContactName = c.DisplayName()
		}
	}
	if s.deps.Sessions != nil {
		text, err := s.deps.Sessions.TranscriptText(ctx, p.OrgId, p.SessionToken, 20)
		if err != nil {
			zlog.Warn("load transcript for handoff failed", zap.String("session_token", p.SessionToken), zap.Error(err))
		}
		req.Transcript = text
	}
	if req.Transcript == "" {
		req.Transcript = "customer: " + p.LastMessage
	}

	convID, err := s.deps.Client.CreateHandoff(ctx, req)
	if err != nil {
		return s.ignoreDisabled(err)
	}
	zlog.Info("handoff conversation created",
		zap.String("org_id", p.OrgId),
		zap.String("session_token", p.SessionToken),
		zap.String("conversation_id", convID))
	if convID != "" && s.deps.Sessions != nil {
		if err := s.deps.Sessions.LinkExternalConversation(ctx, p.OrgId, p.SessionToken, convID); err != nil {
			zlog.Warn("link handoff conversation failed", zap.String("session_token", p.SessionToken), zap.Error(err))
		}
	}
	return nil
}

func (s *sideEffectServiceImpl) ignoreDisabled(err error) error {
	if errors.Is(err, client.ErrDisabled) {
		return nil
	}
	return err
}

func nonEmpty(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
