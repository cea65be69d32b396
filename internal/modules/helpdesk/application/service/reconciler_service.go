package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"StoreSupport/internal/config"
	"StoreSupport/internal/modules/conversation/domain/escalation"
	"StoreSupport/internal/modules/helpdesk/domain/entity"
	"StoreSupport/internal/modules/helpdesk/domain/event"
	"StoreSupport/internal/modules/helpdesk/domain/repository"
	"StoreSupport/internal/modules/helpdesk/domain/webhook"
	storefrontEntity "StoreSupport/internal/modules/storefront/domain/entity"
	"StoreSupport/pkg/metrics"
	"StoreSupport/pkg/util"
	"StoreSupport/pkg/xerr"
	"StoreSupport/pkg/zlog"

	"go.uber.org/zap"
)

// SessionSync 镜像变化回写到本地 AI 会话
type SessionSync interface {
	LinkExternalConversation(ctx context.Context, orgID, sessionToken, externalConversationID string) error
	AppendAgentReply(ctx context.Context, orgID, sessionToken, externalMessageID, author, content string, at time.Time) (bool, error)
	ResolveByToken(ctx context.Context, orgID, sessionToken, assignee string) error
}

// DedupStore 原样重投的快速去重，可选
type DedupStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	Remember(ctx context.Context, key string, ttl time.Duration) error
}

// Kicker 事务提交后唤醒 outbox relay
type Kicker interface {
	Kick()
}

type WebhookResult struct {
	Event     string `json:"event"`
	Message   string `json:"message"`
	Duplicate bool   `json:"-"`
}

type ReconcilerService interface {
	Handle(ctx context.Context, body []byte, signature string) (*WebhookResult, error)
}

type ReconcilerDeps struct {
	Accounts repository.AccountMappingRepository
	UoW      repository.HelpdeskUnitOfWork
	Sessions SessionSync
	Dedup    DedupStore
	Relay    Kicker
	Clock    util.Clock
}

type followupGroup struct {
	name    string
	matcher *escalation.KeywordMatcher
}

type reconcilerServiceImpl struct {
	deps      ReconcilerDeps
	secret    []byte
	dedupTTL  time.Duration
	followups []followupGroup
}

func NewReconcilerService(deps ReconcilerDeps, conf config.HelpdeskConfig) ReconcilerService {
	if deps.Clock == nil {
		deps.Clock = util.SystemClock()
	}
	if strings.TrimSpace(conf.WebhookSecret) == "" {
		zlog.Warn("helpdesk webhook secret 未配置，签名校验已关闭，仅限开发环境")
	}
	return &reconcilerServiceImpl{
		deps:     deps,
		secret:   []byte(strings.TrimSpace(conf.WebhookSecret)),
		dedupTTL: time.Duration(conf.DedupTTLSeconds) * time.Second,
		followups: []followupGroup{
			{name: "order", matcher: escalation.NewKeywordMatcher(conf.OrderFollowups)},
			{name: "return", matcher: escalation.NewKeywordMatcher(conf.ReturnFollowups)},
		},
	}
}

// VerifySignature 十六进制 HMAC-SHA256，可带 sha256= 前缀；secret 为空时跳过
func VerifySignature(secret, body []byte, signature string) bool {
	if len(secret) == 0 {
		return true
	}
	sig := strings.TrimSpace(signature)
	sig = strings.TrimPrefix(strings.TrimPrefix(sig, "sha256="), "SHA256=")
	got, err := hex.DecodeString(sig)
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Sign 与 VerifySignature 对应，测试与回放工具使用
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *reconcilerServiceImpl) Handle(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if !VerifySignature(s.secret, body, signature) {
		metrics.WebhookEvents.WithLabelValues("unknown", "bad_signature").Inc()
		zlog.Warn("helpdesk webhook signature mismatch", zap.Int("body_bytes", len(body)))
		return nil, xerr.ErrBadSignature
	}

	var env webhook.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "bad_payload").Inc()
		return nil, xerr.Wrap(xerr.BadRequest, "invalid webhook payload", err)
	}
	env.Event = strings.TrimSpace(env.Event)
	if env.Event == "" {
		metrics.WebhookEvents.WithLabelValues("unknown", "bad_payload").Inc()
		return nil, xerr.New(xerr.BadRequest, "event is required")
	}

	sum := sha256.Sum256(body)
	dedupKey := "helpdesk:webhook:" + hex.EncodeToString(sum[:])
	if s.seen(ctx, dedupKey) {
		metrics.WebhookEvents.WithLabelValues(env.Event, "duplicate").Inc()
		return &WebhookResult{Event: env.Event, Message: "duplicate delivery ignored", Duplicate: true}, nil
	}

	accountID := env.Account.Id.String()
	mapping, err := s.deps.Accounts.GetByExternalID(ctx, accountID)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(env.Event, "error").Inc()
		return nil, fmt.Errorf("resolve helpdesk account %s: %w", accountID, err)
	}
	if mapping == nil || !mapping.Active {
		metrics.WebhookEvents.WithLabelValues(env.Event, "unmapped").Inc()
		zlog.Warn("helpdesk account unmapped", zap.String("account_id", accountID), zap.String("event", env.Event))
		return nil, xerr.ErrUnmappedTenant
	}

	sc := &scope{orgID: mapping.OrgId, accountID: accountID, now: s.deps.Clock.Now(), raw: body}
	msg, err := s.dispatch(ctx, sc, &env)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(env.Event, "error").Inc()
		zlog.Error("helpdesk webhook failed",
			zap.String("event", env.Event),
			zap.String("org_id", mapping.OrgId),
			zap.Error(err))
		return nil, err
	}

	// 本地会话同步在镜像事务之外执行，失败只记日志
	for _, fn := range sc.after {
		fn(ctx)
	}
	if sc.enqueued > 0 && s.deps.Relay != nil {
		s.deps.Relay.Kick()
	}
	s.remember(ctx, dedupKey)

	metrics.WebhookEvents.WithLabelValues(env.Event, "ok").Inc()
	zlog.Info("helpdesk webhook handled",
		zap.String("event", env.Event),
		zap.String("org_id", mapping.OrgId),
		zap.Int("side_effects", sc.enqueued),
		zap.String("result", msg))
	return &WebhookResult{Event: env.Event, Message: msg}, nil
}

func (s *reconcilerServiceImpl) seen(ctx context.Context, key string) bool {
	if s.deps.Dedup == nil {
		return false
	}
	ok, err := s.deps.Dedup.Seen(ctx, key)
	if err != nil {
		zlog.Debug("helpdesk dedup lookup skipped", zap.Error(err))
		return false
	}
	return ok
}

func (s *reconcilerServiceImpl) remember(ctx context.Context, key string) {
	if s.deps.Dedup == nil || s.dedupTTL <= 0 {
		return
	}
	if err := s.deps.Dedup.Remember(ctx, key, s.dedupTTL); err != nil {
		zlog.Debug("helpdesk dedup remember skipped", zap.Error(err))
	}
}

// scope 单次投递的处理上下文
type scope struct {
	orgID     string
	accountID string
	now       time.Time
	raw       []byte

	tx repository.TxRepos

	enqueued int
	after    []func(context.Context)
}

func (s *reconcilerServiceImpl) dispatch(ctx context.Context, sc *scope, env *webhook.Envelope) (string, error) {
	switch env.Event {
	case webhook.EventConversationCreated:
		var conv webhook.Conversation
		if err := webhook.Decode(env.Data, &conv); err != nil {
			return "", xerr.Wrap(xerr.BadRequest, "invalid conversation payload", err)
		}
		return "conversation mirrored", s.inTx(ctx, sc, func(ctx context.Context) error { return s.onCreated(ctx, sc, &conv) })

	case webhook.EventConversationResolved:
		var conv webhook.Conversation
		if err := webhook.Decode(env.Data, &conv); err != nil {
			return "", xerr.Wrap(xerr.BadRequest, "invalid conversation payload", err)
		}
		return "conversation resolved", s.inTx(ctx, sc, func(ctx context.Context) error { return s.onResolved(ctx, sc, &conv) })

	case webhook.EventConversationStatusChanged, webhook.EventConversationUpdated, webhook.EventAssigneeChanged:
		var conv webhook.Conversation
		if err := webhook.Decode(env.Data, &conv); err != nil {
			return "", xerr.Wrap(xerr.BadRequest, "invalid conversation payload", err)
		}
		// 部分平台只发 status_changed 表示解决
		if strings.EqualFold(conv.Status, entity.MirrorStatusResolved) {
			return "conversation resolved", s.inTx(ctx, sc, func(ctx context.Context) error { return s.onResolved(ctx, sc, &conv) })
		}
		clearAssignee := env.Event == webhook.EventAssigneeChanged
		return "conversation updated", s.inTx(ctx, sc, func(ctx context.Context) error { return s.onUpdated(ctx, sc, &conv, clearAssignee) })

	case webhook.EventMessageCreated:
		var m webhook.Message
		if err := webhook.Decode(env.Data, &m); err != nil {
			return "", xerr.Wrap(xerr.BadRequest, "invalid message payload", err)
		}
		if m.ConversationID() == "" || m.Id == "" {
			return "", xerr.New(xerr.BadRequest, "message id and conversation id are required")
		}
		return "message recorded", s.inTx(ctx, sc, func(ctx context.Context) error { return s.onMessage(ctx, sc, &m) })

	default:
		return "event ignored", nil
	}
}

func (s *reconcilerServiceImpl) inTx(ctx context.Context, sc *scope, fn func(ctx context.Context) error) error {
	return s.deps.UoW.Transaction(ctx, func(tx repository.TxRepos) error {
		sc.tx = tx
		sc.enqueued = 0
		sc.after = nil
		return fn(ctx)
	})
}

func (s *reconcilerServiceImpl) lockMirror(ctx context.Context, sc *scope, conversationID string) (*entity.ConversationMirror, error) {
	m, _, err := sc.tx.Mirrors.LockOrCreate(ctx, &entity.ConversationMirror{
		OrgId:                  sc.orgID,
		ExternalConversationId: conversationID,
		ExternalAccountId:      sc.accountID,
		Status:                 entity.MirrorStatusOpen,
	})
	if err != nil {
		return nil, fmt.Errorf("lock mirror %s: %w", conversationID, err)
	}
	return m, nil
}

func (s *reconcilerServiceImpl) onCreated(ctx context.Context, sc *scope, conv *webhook.Conversation) error {
	m, err := s.lockMirror(ctx, sc, conv.Id.String())
	if err != nil {
		return err
	}
	applyConversation(m, conv, sc)
	// 迟到的 created 不能把已解决的会话改回打开
	if m.ResolvedAt != nil {
		m.Status = entity.MirrorStatusResolved
	}
	setIfNil(&m.StartedAt, startTime(conv, sc.now))

	customer, err := s.linkCustomer(ctx, sc, m)
	if err != nil {
		return err
	}

	first := !m.CreatedSeen
	m.CreatedSeen = true
	m.RecomputeDerived()
	if err := sc.tx.Mirrors.Save(ctx, m); err != nil {
		return err
	}

	if first {
		if m.CustomerId != nil {
			if err := s.enqueue(ctx, sc, entity.EventCustomerEnrich, "enrich:"+m.ExternalConversationId, event.CustomerEnrich{
				OrgId:      sc.orgID,
				CustomerId: *m.CustomerId,
			}); err != nil {
				return err
			}
		}
		if m.AssigneeId == "" {
			if err := s.applyAssignmentRules(ctx, sc, m, customer, ""); err != nil {
				return err
			}
		}
		if customer != nil && customer.HighPriority {
			if err := s.enqueue(ctx, sc, entity.EventStakeholderNotify, "notify:"+m.ExternalConversationId, event.StakeholderNotify{
				OrgId:                  sc.orgID,
				ExternalConversationId: m.ExternalConversationId,
				CustomerId:             customer.Id,
				CustomerName:           customer.DisplayName(),
				Reason:                 "high-priority customer opened a conversation",
			}); err != nil {
				return err
			}
		}
	}

	s.linkSession(sc, m)
	return nil
}

func (s *reconcilerServiceImpl) onResolved(ctx context.Context, sc *scope, conv *webhook.Conversation) error {
	m, err := s.lockMirror(ctx, sc, conv.Id.String())
	if err != nil {
		return err
	}
	applyConversation(m, conv, sc)
	m.Status = entity.MirrorStatusResolved
	if conv.CreatedAt.Ptr() != nil {
		setIfNil(&m.StartedAt, conv.CreatedAt.Ptr())
	}

	resolvedAt := conv.EventTime(sc.now)
	first := m.ResolvedAt == nil
	if first {
		m.ResolvedAt = &resolvedAt
	}
	if _, err := s.linkCustomer(ctx, sc, m); err != nil {
		return err
	}
	m.RecomputeDerived()
	if err := sc.tx.Mirrors.Save(ctx, m); err != nil {
		return err
	}

	if first {
		if err := s.enqueue(ctx, sc, entity.EventSurveySchedule, "survey:"+m.ExternalConversationId, event.SurveySchedule{
			OrgId:                  sc.orgID,
			ExternalConversationId: m.ExternalConversationId,
			ContactEmail:           m.ContactEmail,
			CustomerId:             util.Deref(m.CustomerId),
			ResolvedAt:             resolvedAt,
		}); err != nil {
			return err
		}
	}

	if token := m.SessionToken; token != "" && s.deps.Sessions != nil {
		assignee := m.AssigneeName
		sc.after = append(sc.after, func(ctx context.Context) {
			if err := s.deps.Sessions.ResolveByToken(ctx, sc.orgID, token, assignee); err != nil {
				zlog.Warn("resolve linked session failed", zap.String("session_token", token), zap.Error(err))
			}
		})
	}
	return nil
}

func (s *reconcilerServiceImpl) onUpdated(ctx context.Context, sc *scope, conv *webhook.Conversation, clearAssignee bool) error {
	m, err := s.lockMirror(ctx, sc, conv.Id.String())
	if err != nil {
		return err
	}
	applyConversation(m, conv, sc)
	if clearAssignee && conv.Meta.Assignee == nil {
		m.AssigneeId, m.AssigneeName = "", ""
	}
	if conv.CreatedAt.Ptr() != nil {
		setIfNil(&m.StartedAt, conv.CreatedAt.Ptr())
	}
	m.RecomputeDerived()
	if err := sc.tx.Mirrors.Save(ctx, m); err != nil {
		return err
	}
	s.linkSession(sc, m)
	return nil
}

func (s *reconcilerServiceImpl) onMessage(ctx context.Context, sc *scope, msg *webhook.Message) error {
	m, err := s.lockMirror(ctx, sc, msg.ConversationID())
	if err != nil {
		return err
	}
	conv := msg.Conversation
	fillIfEmpty(&m.InboxId, conv.InboxId.String())
	fillIfEmpty(&m.SessionToken, strings.TrimSpace(conv.CustomAttributes.SessionToken))
	fillIfEmpty(&m.ExternalContactId, conv.Meta.Sender.Id.String())
	fillIfEmpty(&m.ContactEmail, conv.Meta.Sender.Email)
	fillIfEmpty(&m.ContactName, conv.Meta.Sender.Name)
	if msg.IsFromContact() {
		fillIfEmpty(&m.ExternalContactId, msg.Sender.Id.String())
		fillIfEmpty(&m.ContactEmail, msg.Sender.Email)
		fillIfEmpty(&m.ContactName, msg.Sender.Name)
	}
	setIfNil(&m.StartedAt, conv.CreatedAt.Ptr())

	if msg.MessageType == webhook.MessageActivity || msg.MessageType == webhook.MessageTemplate {
		return sc.tx.Mirrors.Save(ctx, m)
	}

	sentAt := sc.now
	if t := msg.CreatedAt.Ptr(); t != nil {
		sentAt = *t
	}
	sender := entity.SenderBot
	switch {
	case msg.IsFromAgent():
		sender = entity.SenderAgent
	case msg.IsFromContact():
		sender = entity.SenderContact
	}

	inserted, err := sc.tx.Receipts.Insert(ctx, &entity.MessageReceipt{
		OrgId:                  sc.orgID,
		ExternalMessageId:      msg.Id.String(),
		ExternalConversationId: m.ExternalConversationId,
		SenderType:             sender,
		Private:                msg.Private,
		SentAt:                 sentAt,
	})
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}

	customer, err := s.linkCustomer(ctx, sc, m)
	if err != nil {
		return err
	}

	if inserted {
		m.MessageCount++
		if m.LastActivityAt == nil || sentAt.After(*m.LastActivityAt) {
			t := sentAt
			m.LastActivityAt = &t
		}
		if sender == entity.SenderAgent && !msg.Private {
			if m.FirstResponseAt == nil || sentAt.Before(*m.FirstResponseAt) {
				t := sentAt
				m.FirstResponseAt = &t
				m.FirstResponseSeconds = nil
			}
		}
	}
	m.RecomputeDerived()
	if err := sc.tx.Mirrors.Save(ctx, m); err != nil {
		return err
	}
	if !inserted {
		return nil
	}

	if sender == entity.SenderContact {
		if err := s.evaluateFollowups(ctx, sc, m, msg); err != nil {
			return err
		}
		if m.AssigneeId == "" {
			if err := s.applyAssignmentRules(ctx, sc, m, customer, msg.Content); err != nil {
				return err
			}
		}
	}

	if sender == entity.SenderAgent && !msg.Private && m.SessionToken != "" && s.deps.Sessions != nil && strings.TrimSpace(msg.Content) != "" {
		token, extID, author, content := m.SessionToken, msg.Id.String(), msg.Sender.Name, msg.Content
		sc.after = append(sc.after, func(ctx context.Context) {
			if _, err := s.deps.Sessions.AppendAgentReply(ctx, sc.orgID, token, extID, author, content, sentAt); err != nil {
				zlog.Warn("append agent reply failed", zap.String("session_token", token), zap.Error(err))
			}
		})
	}
	return nil
}

func (s *reconcilerServiceImpl) evaluateFollowups(ctx context.Context, sc *scope, m *entity.ConversationMirror, msg *webhook.Message) error {
	for _, g := range s.followups {
		hits := g.matcher.All(msg.Content)
		if len(hits) == 0 {
			continue
		}
		err := s.enqueue(ctx, sc, entity.EventFollowupTriggered, "followup:"+g.name+":"+msg.Id.String(), event.FollowupTriggered{
			OrgId:                  sc.orgID,
			ExternalConversationId: m.ExternalConversationId,
			ExternalMessageId:      msg.Id.String(),
			Group:                  g.name,
			Keywords:               hits,
			CustomerId:             util.Deref(m.CustomerId),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// applyAssignmentRules 按优先级取第一条命中规则；每个会话最多入队一次
func (s *reconcilerServiceImpl) applyAssignmentRules(ctx context.Context, sc *scope, m *entity.ConversationMirror, customer *storefrontEntity.Customer, text string) error {
	if sc.tx.Rules == nil {
		return nil
	}
	rules, err := sc.tx.Rules.ListActive(ctx, sc.orgID)
	if err != nil {
		return fmt.Errorf("list assignment rules: %w", err)
	}
	subject := entity.RuleSubject{InboxId: m.InboxId, Text: text}
	if customer != nil {
		subject.Tier = customer.CachedAttributes.Tier
		subject.HighPriority = customer.HighPriority
	}
	for i := range rules {
		r := rules[i]
		if !r.Matches(subject) {
			continue
		}
		return s.enqueue(ctx, sc, entity.EventAssignmentApply, "assign:"+m.ExternalConversationId, event.AssignmentApply{
			OrgId:                  sc.orgID,
			ExternalConversationId: m.ExternalConversationId,
			AssigneeId:             r.AssigneeId,
			RuleName:               r.Name,
		})
	}
	return nil
}

// linkCustomer 先按外部联系人 id，再按邮箱；已关联的不再改动
func (s *reconcilerServiceImpl) linkCustomer(ctx context.Context, sc *scope, m *entity.ConversationMirror) (*storefrontEntity.Customer, error) {
	if sc.tx.Customers == nil {
		return nil, nil
	}
	if m.CustomerId != nil {
		c, err := sc.tx.Customers.GetByID(ctx, sc.orgID, *m.CustomerId)
		if err != nil {
			return nil, fmt.Errorf("load linked customer: %w", err)
		}
		return c, nil
	}

	var c *storefrontEntity.Customer
	var err error
	if m.ExternalContactId != "" {
		if c, err = sc.tx.Customers.GetByExternalContact(ctx, sc.orgID, m.ExternalContactId); err != nil {
			return nil, fmt.Errorf("find customer by contact: %w", err)
		}
	}
	if c == nil && m.ContactEmail != "" {
		if c, err = sc.tx.Customers.GetByEmail(ctx, sc.orgID, m.ContactEmail); err != nil {
			return nil, fmt.Errorf("find customer by email: %w", err)
		}
		if c != nil && m.ExternalContactId != "" && c.ExternalContactId == "" {
			if err := sc.tx.Customers.LinkExternalContact(ctx, sc.orgID, c.Id, m.ExternalContactId); err != nil {
				zlog.Warn("link external contact failed", zap.String("customer_id", c.Id), zap.Error(err))
			}
		}
	}
	if c != nil {
		id := c.Id
		m.CustomerId = &id
	}
	return c, nil
}

func (s *reconcilerServiceImpl) linkSession(sc *scope, m *entity.ConversationMirror) {
	if m.SessionToken == "" || s.deps.Sessions == nil {
		return
	}
	token, convID := m.SessionToken, m.ExternalConversationId
	sc.after = append(sc.after, func(ctx context.Context) {
		if err := s.deps.Sessions.LinkExternalConversation(ctx, sc.orgID, token, convID); err != nil && !errors.Is(err, xerr.ErrSessionNotFound) {
			zlog.Warn("link session to helpdesk conversation failed", zap.String("session_token", token), zap.Error(err))
		}
	})
}

func (s *reconcilerServiceImpl) enqueue(ctx context.Context, sc *scope, eventType, dedup string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ok, err := sc.tx.Outbox.Enqueue(ctx, &entity.OutboxEvent{
		OrgId:       sc.orgID,
		EventType:   eventType,
		DedupKey:    sc.orgID + ":" + dedup,
		PayloadJson: string(b),
	})
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", eventType, err)
	}
	if ok {
		sc.enqueued++
	}
	return nil
}

// applyConversation 可变字段一律以最后一次投递为准
func applyConversation(m *entity.ConversationMirror, conv *webhook.Conversation, sc *scope) {
	if st := strings.ToLower(strings.TrimSpace(conv.Status)); st != "" {
		m.Status = st
	}
	if p := strings.TrimSpace(conv.Priority); p != "" {
		m.Priority = p
	}
	if v := conv.InboxId.String(); v != "" {
		m.InboxId = v
	}
	sender := conv.Meta.Sender
	if v := sender.Id.String(); v != "" {
		m.ExternalContactId = v
	}
	if v := strings.TrimSpace(sender.Email); v != "" {
		m.ContactEmail = v
	}
	if v := strings.TrimSpace(sender.Name); v != "" {
		m.ContactName = v
	}
	if v := strings.TrimSpace(conv.CustomAttributes.SessionToken); v != "" {
		m.SessionToken = v
	}
	if a := conv.Meta.Assignee; a != nil && a.Id != "" {
		m.AssigneeId = a.Id.String()
		m.AssigneeName = strings.TrimSpace(a.Name)
	}
	at := conv.EventTime(sc.now)
	if m.LastActivityAt == nil || at.After(*m.LastActivityAt) {
		m.LastActivityAt = &at
	}
	m.RawPayload = entity.RawJSON(sc.raw)
}

func startTime(conv *webhook.Conversation, now time.Time) *time.Time {
	if t := conv.CreatedAt.Ptr(); t != nil {
		return t
	}
	t := conv.EventTime(now)
	return &t
}

func setIfNil(dst **time.Time, v *time.Time) {
	if *dst == nil && v != nil {
		t := *v
		*dst = &t
	}
}

func fillIfEmpty(dst *string, v string) {
	v = strings.TrimSpace(v)
	if *dst == "" && v != "" {
		*dst = v
	}
}
