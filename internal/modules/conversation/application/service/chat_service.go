package service

import (
	"context"
	"strings"
	"time"

	"StoreSupport/internal/config"
	"StoreSupport/internal/modules/conversation/application/dto/request"
	"StoreSupport/internal/modules/conversation/application/dto/respond"
	"StoreSupport/internal/modules/conversation/infrastructure/pipeline"
	"StoreSupport/pkg/xerr"
	"StoreSupport/pkg/zlog"

	"go.uber.org/zap"
)

// EscalationNotice 会话首次升级时对外广播的内容
type EscalationNotice struct {
	OrgId        string
	SessionId    int64
	SessionToken string
	CustomerId   *string
	Reason       string
	LastMessage  string
	At           time.Time
}

// EscalationListener 接收升级通知（转人工、坐席推送）
type EscalationListener interface {
	OnEscalation(ctx context.Context, n EscalationNotice) error
}

// ChatService 店铺前台聊天入口
type ChatService interface {
	// Chat 处理一条客户消息；失败时 error 带错误码，调用方使用 Fallback 兜底
	Chat(ctx context.Context, req request.ChatTurnRequest) (*respond.ChatTurnRespond, error)
	Fallback() string
}

type turnExecutor interface {
	Execute(ctx context.Context, req *pipeline.TurnRequest) (*pipeline.TurnResult, error)
}

type chatServiceImpl struct {
	pipeline  turnExecutor
	listeners []EscalationListener
	fallback  string
	notifyTTL time.Duration
}

func NewChatService(pipe *pipeline.DialoguePipeline, conf config.DialogueConfig, listeners ...EscalationListener) ChatService {
	return newChatService(pipe, conf, listeners...)
}

func newChatService(pipe turnExecutor, conf config.DialogueConfig, listeners ...EscalationListener) *chatServiceImpl {
	fallback := strings.TrimSpace(conf.FallbackResponse)
	if fallback == "" {
		fallback = "Sorry, I'm having trouble right now. A member of our team will follow up with you shortly."
	}
	ls := make([]EscalationListener, 0, len(listeners))
	for _, l := range listeners {
		if l != nil {
			ls = append(ls, l)
		}
	}
	return &chatServiceImpl{
		pipeline:  pipe,
		listeners: ls,
		fallback:  fallback,
		notifyTTL: 30 * time.Second,
	}
}

func (s *chatServiceImpl) Fallback() string { return s.fallback }

func (s *chatServiceImpl) Chat(ctx context.Context, req request.ChatTurnRequest) (*respond.ChatTurnRespond, error) {
	if strings.TrimSpace(req.SessionToken) == "" || strings.TrimSpace(req.OrganizationID) == "" ||
		strings.TrimSpace(req.Message) == "" {
		return nil, xerr.ErrParam
	}

	// 客户端断开不应中断已开始的回合，否则会丢失已产生的回复
	res, err := s.pipeline.Execute(context.WithoutCancel(ctx), &pipeline.TurnRequest{
		SessionToken: req.SessionToken,
		OrgID:        req.OrganizationID,
		CustomerID:   req.CustomerID,
		Message:      req.Message,
		Channel:      strings.TrimSpace(req.Channel),
	})
	if err != nil {
		zlog.Warn("chat turn failed",
			zap.String("org_id", req.OrganizationID),
			zap.String("session_token", req.SessionToken),
			zap.Error(err))
		return nil, err
	}

	if res.NewlyEscalated && len(s.listeners) > 0 {
		n := EscalationNotice{
			OrgId:        req.OrganizationID,
			SessionId:    res.SessionID,
			SessionToken: res.SessionToken,
			Reason:       res.EscalationReason,
			LastMessage:  strings.TrimSpace(req.Message),
			At:           time.Now(),
		}
		if res.Session != nil {
			n.CustomerId = res.Session.CustomerId
			if res.Session.EscalatedAt != nil {
				n.At = *res.Session.EscalatedAt
			}
		}
		go s.notify(n)
	}

	return &respond.ChatTurnRespond{
		Success:        true,
		Response:       res.Reply,
		ShouldEscalate: res.ShouldEscalate,
		SessionID:      res.SessionID,
		Confidence:     res.Confidence,
		QueryID:        res.QueryID,
	}, nil
}

func (s *chatServiceImpl) notify(n EscalationNotice) {
	ctx, cancel := context.WithTimeout(context.Background(), s.notifyTTL)
	defer cancel()
	for _, l := range s.listeners {
		if err := l.OnEscalation(ctx, n); err != nil {
			zlog.Error("escalation listener failed",
				zap.Int64("session_id", n.SessionId),
				zap.String("reason", n.Reason),
				zap.Error(err))
		}
	}
}
