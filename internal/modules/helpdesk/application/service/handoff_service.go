package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	conversationService "StoreSupport/internal/modules/conversation/application/service"
	"StoreSupport/internal/modules/helpdesk/domain/entity"
	"StoreSupport/internal/modules/helpdesk/domain/event"
	"StoreSupport/internal/modules/helpdesk/domain/repository"
	"StoreSupport/pkg/util"
	"StoreSupport/pkg/ws"
	"StoreSupport/pkg/zlog"

	"go.uber.org/zap"
)

// Notifier 推送给在线坐席，*ws.Hub 实现
type Notifier interface {
	Notify(n ws.Notification) error
}

// HandoffService 会话升级后：写入转人工事件并推送坐席
type HandoffService struct {
	outbox   repository.OutboxRepository
	relay    Kicker
	notifier Notifier
	notify   bool
}

var _ conversationService.EscalationListener = (*HandoffService)(nil)

func NewHandoffService(outbox repository.OutboxRepository, relay Kicker, notifier Notifier, notifyAgents bool) *HandoffService {
	return &HandoffService{outbox: outbox, relay: relay, notifier: notifier, notify: notifyAgents}
}

func (s *HandoffService) OnEscalation(ctx context.Context, n conversationService.EscalationNotice) error {
	if s.notify && s.notifier != nil {
		if err := s.notifier.Notify(ws.Notification{
			Type:         ws.NotifyEscalation,
			OrgId:        n.OrgId,
			SessionToken: n.SessionToken,
			Reason:       n.Reason,
			Message:      util.Truncate(n.LastMessage, 280),
			At:           n.At,
		}); err != nil {
			zlog.Warn("escalation notify failed", zap.String("session_token", n.SessionToken), zap.Error(err))
		}
	}

	if s.outbox == nil {
		return nil
	}
	b, err := json.Marshal(event.EscalationHandoff{
		OrgId:        n.OrgId,
		SessionId:    n.SessionId,
		SessionToken: n.SessionToken,
		CustomerId:   util.Deref(n.CustomerId),
		Reason:       n.Reason,
		LastMessage:  n.LastMessage,
	})
	if err != nil {
		return err
	}
	// 同一会话可能在重新打开后再次升级，按升级时间区分
	dedup := fmt.Sprintf("%s:handoff:%d:%s", n.OrgId, n.SessionId, strconv.FormatInt(n.At.Unix(), 10))
	ok, err := s.outbox.Enqueue(ctx, &entity.OutboxEvent{
		OrgId:       n.OrgId,
		EventType:   entity.EventEscalationHandoff,
		DedupKey:    dedup,
		PayloadJson: string(b),
	})
	if err != nil {
		return fmt.Errorf("enqueue handoff: %w", err)
	}
	if ok && s.relay != nil {
		s.relay.Kick()
	}
	return nil
}
