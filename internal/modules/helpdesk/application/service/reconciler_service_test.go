package service_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"StoreSupport/internal/config"
	"StoreSupport/internal/modules/helpdesk/application/service"
	"StoreSupport/internal/modules/helpdesk/domain/entity"
	"StoreSupport/internal/modules/helpdesk/domain/event"
	"StoreSupport/internal/modules/helpdesk/domain/webhook"
	"StoreSupport/internal/modules/helpdesk/infrastructure/persistence"
	storefrontEntity "StoreSupport/internal/modules/storefront/domain/entity"
	"StoreSupport/internal/testutil"
	"StoreSupport/pkg/util"
	"StoreSupport/pkg/xerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var t0 = testutil.BaseTime

type fakeSessions struct {
	mu       sync.Mutex
	links    map[string]string
	replies  []string
	resolved []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{links: make(map[string]string)}
}

func (f *fakeSessions) LinkExternalConversation(_ context.Context, _, token, convID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[token] = convID
	return nil
}

func (f *fakeSessions) AppendAgentReply(_ context.Context, _, token, extID, author, content string, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, token+"|"+extID+"|"+author+"|"+content)
	return true, nil
}

func (f *fakeSessions) ResolveByToken(_ context.Context, _, token, assignee string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, token+"|"+assignee)
	return nil
}

type kickCounter struct {
	mu sync.Mutex
	n  int
}

func (k *kickCounter) Kick() {
	k.mu.Lock()
	k.n++
	k.mu.Unlock()
}

func (k *kickCounter) count() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.n
}

type memoryDedup struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryDedup) Seen(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memoryDedup) Remember(_ context.Context, key string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = true
	return nil
}

type reconcilerHarness struct {
	db       *gorm.DB
	svc      service.ReconcilerService
	sessions *fakeSessions
	kicks    *kickCounter
}

func newReconciler(t *testing.T, tune func(*config.HelpdeskConfig, *service.ReconcilerDeps)) *reconcilerHarness {
	t.Helper()
	db := testutil.NewTestDB(t)
	testutil.SeedOrg(t, db, testutil.OrgID)
	testutil.SeedAccountMapping(t, db, testutil.AccountID, testutil.OrgID)

	conf := &config.Config{}
	config.ApplyDefaults(conf)
	h := &reconcilerHarness{db: db, sessions: newFakeSessions(), kicks: &kickCounter{}}
	deps := service.ReconcilerDeps{
		Accounts: persistence.NewAccountMappingRepository(db),
		UoW:      persistence.NewHelpdeskUnitOfWork(db),
		Sessions: h.sessions,
		Relay:    h.kicks,
		Clock:    &util.FixedClock{T: t0.Add(time.Hour)},
	}
	if tune != nil {
		tune(&conf.HelpdeskConfig, &deps)
	}
	h.svc = service.NewReconcilerService(deps, conf.HelpdeskConfig)
	return h
}

func (h *reconcilerHarness) send(t *testing.T, body []byte) *service.WebhookResult {
	t.Helper()
	res, err := h.svc.Handle(context.Background(), body, "")
	require.NoError(t, err)
	return res
}

func (h *reconcilerHarness) mirror(t *testing.T, convID string) *entity.ConversationMirror {
	t.Helper()
	m, err := persistence.NewMirrorRepository(h.db).GetByExternalID(context.Background(), testutil.OrgID, convID)
	require.NoError(t, err)
	require.NotNil(t, m)
	return m
}

func (h *reconcilerHarness) outbox(t *testing.T, eventType string) []entity.OutboxEvent {
	t.Helper()
	var out []entity.OutboxEvent
	require.NoError(t, h.db.Where("event_type = ?", eventType).Order("id ASC").Find(&out).Error)
	return out
}

func envelope(t *testing.T, name string, data any) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"event":   name,
		"data":    data,
		"account": map[string]any{"id": testutil.AccountID, "name": "Demo"},
	})
	require.NoError(t, err)
	return b
}

func conversation(id int, status string, extra map[string]any) map[string]any {
	c := map[string]any{
		"id":         id,
		"status":     status,
		"inbox_id":   3,
		"created_at": t0.Unix(),
		"timestamp":  t0.Unix(),
		"meta": map[string]any{
			"sender": map[string]any{"id": 55, "email": "alice@example.com", "name": "Alice"},
		},
		"custom_attributes": map[string]any{"session_token": "tok-chat"},
	}
	for k, v := range extra {
		c[k] = v
	}
	return c
}

func message(id, convID int, kind, senderType, content string, at time.Time) map[string]any {
	return map[string]any{
		"id":           id,
		"content":      content,
		"message_type": kind,
		"private":      false,
		"created_at":   at.Unix(),
		"conversation": map[string]any{
			"id":         convID,
			"inbox_id":   3,
			"created_at": t0.Unix(),
			"meta": map[string]any{
				"sender": map[string]any{"id": 55, "email": "alice@example.com", "name": "Alice"},
			},
			"custom_attributes": map[string]any{"session_token": "tok-chat"},
		},
		"sender": map[string]any{"id": 7, "name": "Sam", "type": senderType},
	}
}

func TestHandle_ResolvedReplayIsIdempotent(t *testing.T) {
	h := newReconciler(t, nil)
	h.send(t, envelope(t, webhook.EventConversationCreated, conversation(101, "open", nil)))

	resolved := conversation(101, "resolved", map[string]any{
		"timestamp": t0.Add(30 * time.Minute).Unix(),
		"meta": map[string]any{
			"sender":   map[string]any{"id": 55, "email": "alice@example.com", "name": "Alice"},
			"assignee": map[string]any{"id": 7, "name": "Sam"},
		},
	})
	h.send(t, envelope(t, webhook.EventConversationResolved, resolved))

	m := h.mirror(t, "101")
	require.NotNil(t, m.ResolutionSeconds)
	assert.EqualValues(t, 1800, *m.ResolutionSeconds)
	firstResolvedAt := m.ResolvedAt.Unix()

	// 原样重投与带新时间戳的重投都不能改写解决时间
	h.send(t, envelope(t, webhook.EventConversationResolved, resolved))
	resolved["timestamp"] = t0.Add(50 * time.Minute).Unix()
	h.send(t, envelope(t, webhook.EventConversationResolved, resolved))

	m = h.mirror(t, "101")
	assert.EqualValues(t, 1800, *m.ResolutionSeconds)
	assert.Equal(t, firstResolvedAt, m.ResolvedAt.Unix())
	assert.Equal(t, entity.MirrorStatusResolved, m.Status)
	assert.Equal(t, "Sam", m.AssigneeName)
	assert.Len(t, h.outbox(t, entity.EventSurveySchedule), 1)
	assert.Contains(t, h.sessions.resolved, "tok-chat|Sam")
}

func TestHandle_LateCreatedKeepsResolvedStatus(t *testing.T) {
	h := newReconciler(t, nil)
	h.send(t, envelope(t, webhook.EventConversationResolved, conversation(102, "resolved", map[string]any{
		"timestamp": t0.Add(20 * time.Minute).Unix(),
	})))
	h.send(t, envelope(t, webhook.EventConversationCreated, conversation(102, "open", nil)))

	m := h.mirror(t, "102")
	assert.Equal(t, entity.MirrorStatusResolved, m.Status)
	assert.True(t, m.CreatedSeen)
	require.NotNil(t, m.ResolutionSeconds)
	assert.EqualValues(t, 1200, *m.ResolutionSeconds)
}

func TestHandle_OutOfOrderMessagesConverge(t *testing.T) {
	created := func(t *testing.T) []byte {
		return envelope(t, webhook.EventConversationCreated, conversation(200, "open", nil))
	}
	agent := func(t *testing.T) []byte {
		return envelope(t, webhook.EventMessageCreated, message(9001, 200, webhook.MessageOutgoing, "user", "Hi Alice, Sam here.", t0.Add(5*time.Minute)))
	}
	contact := func(t *testing.T) []byte {
		return envelope(t, webhook.EventMessageCreated, message(9002, 200, webhook.MessageIncoming, "contact", "thanks!", t0.Add(7*time.Minute)))
	}

	inOrder := newReconciler(t, nil)
	testutil.SeedCustomer(t, inOrder.db, testutil.OrgID, testutil.CustomerID, "alice@example.com", 120, 2)
	for _, b := range [][]byte{created(t), agent(t), contact(t)} {
		inOrder.send(t, b)
	}

	outOfOrder := newReconciler(t, nil)
	testutil.SeedCustomer(t, outOfOrder.db, testutil.OrgID, testutil.CustomerID, "alice@example.com", 120, 2)
	for _, b := range [][]byte{contact(t), agent(t), created(t)} {
		outOfOrder.send(t, b)
	}

	a, b := inOrder.mirror(t, "200"), outOfOrder.mirror(t, "200")
	assert.Equal(t, a.Status, b.Status)
	assert.Equal(t, 2, a.MessageCount)
	assert.Equal(t, a.MessageCount, b.MessageCount)
	require.NotNil(t, a.FirstResponseSeconds)
	require.NotNil(t, b.FirstResponseSeconds)
	assert.EqualValues(t, 300, *a.FirstResponseSeconds)
	assert.Equal(t, *a.FirstResponseSeconds, *b.FirstResponseSeconds)
	assert.Equal(t, a.StartedAt.Unix(), b.StartedAt.Unix())
	assert.Equal(t, a.LastActivityAt.Unix(), b.LastActivityAt.Unix())
	assert.Equal(t, a.SessionToken, b.SessionToken)
	assert.Equal(t, a.CreatedSeen, b.CreatedSeen)
	require.NotNil(t, a.CustomerId)
	require.NotNil(t, b.CustomerId)
	assert.Equal(t, *a.CustomerId, *b.CustomerId)
	assert.Len(t, inOrder.outbox(t, entity.EventCustomerEnrich), 1)
	assert.Len(t, outOfOrder.outbox(t, entity.EventCustomerEnrich), 1)
}

func TestHandle_MessageReplayCountedOnce(t *testing.T) {
	h := newReconciler(t, nil)
	body := envelope(t, webhook.EventMessageCreated, message(9100, 300, webhook.MessageOutgoing, "user", "On it!", t0.Add(2*time.Minute)))
	h.send(t, body)
	h.send(t, body)

	m := h.mirror(t, "300")
	assert.Equal(t, 1, m.MessageCount)
	require.NotNil(t, m.FirstResponseSeconds)
	assert.EqualValues(t, 120, *m.FirstResponseSeconds)
	// 会话同步按外部消息 id 去重，这里只确认转发了人工回复
	assert.Contains(t, h.sessions.replies, "tok-chat|9100|Sam|On it!")
}

func TestHandle_SignatureRequiredWhenSecretSet(t *testing.T) {
	h := newReconciler(t, func(c *config.HelpdeskConfig, _ *service.ReconcilerDeps) {
		c.WebhookSecret = "s3cret"
	})
	body := envelope(t, webhook.EventConversationCreated, conversation(400, "open", nil))

	_, err := h.svc.Handle(context.Background(), body, "sha256=deadbeef")
	require.ErrorIs(t, err, xerr.ErrBadSignature)
	assert.Equal(t, xerr.Unauthorized, xerr.CodeOf(err))
	var n int64
	require.NoError(t, h.db.Model(&entity.ConversationMirror{}).Count(&n).Error)
	assert.Zero(t, n)

	res, err := h.svc.Handle(context.Background(), body, "sha256="+service.Sign([]byte("s3cret"), body))
	require.NoError(t, err)
	assert.Equal(t, webhook.EventConversationCreated, res.Event)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"x"}`)
	sig := service.Sign([]byte("k"), body)
	assert.True(t, service.VerifySignature([]byte("k"), body, sig))
	assert.True(t, service.VerifySignature([]byte("k"), body, "sha256="+sig))
	assert.False(t, service.VerifySignature([]byte("k"), body, "not-hex"))
	assert.False(t, service.VerifySignature([]byte("other"), body, sig))
	assert.True(t, service.VerifySignature(nil, body, ""))
}

func TestHandle_UnmappedAccount(t *testing.T) {
	h := newReconciler(t, nil)
	b, err := json.Marshal(map[string]any{
		"event":   webhook.EventConversationCreated,
		"data":    conversation(500, "open", nil),
		"account": map[string]any{"id": 999, "name": "Stranger"},
	})
	require.NoError(t, err)

	_, err = h.svc.Handle(context.Background(), b, "")
	require.ErrorIs(t, err, xerr.ErrUnmappedTenant)
	assert.Equal(t, xerr.Unprocessable, xerr.CodeOf(err))
}

func TestHandle_BadPayload(t *testing.T) {
	h := newReconciler(t, nil)
	_, err := h.svc.Handle(context.Background(), []byte("{not json"), "")
	require.Error(t, err)
	assert.Equal(t, xerr.BadRequest, xerr.CodeOf(err))

	_, err = h.svc.Handle(context.Background(), envelope(t, webhook.EventMessageCreated, map[string]any{"content": "hi"}), "")
	require.Error(t, err)
	assert.Equal(t, xerr.BadRequest, xerr.CodeOf(err))
}

func TestHandle_UnknownEventIgnored(t *testing.T) {
	h := newReconciler(t, nil)
	res := h.send(t, envelope(t, "contact_updated", map[string]any{"id": 1}))
	assert.Equal(t, "event ignored", res.Message)
}

func TestHandle_DuplicateDeliveryShortCircuits(t *testing.T) {
	dedup := &memoryDedup{keys: make(map[string]bool)}
	h := newReconciler(t, func(_ *config.HelpdeskConfig, d *service.ReconcilerDeps) {
		d.Dedup = dedup
	})
	body := envelope(t, webhook.EventConversationCreated, conversation(600, "open", nil))

	first := h.send(t, body)
	assert.False(t, first.Duplicate)
	second := h.send(t, body)
	assert.True(t, second.Duplicate)
}

func TestHandle_FollowupsForContactMessages(t *testing.T) {
	h := newReconciler(t, nil)
	h.send(t, envelope(t, webhook.EventMessageCreated,
		message(9200, 700, webhook.MessageIncoming, "contact", "Where is my order? I might need a refund", t0.Add(time.Minute))))
	// 客服发出的消息不触发
	h.send(t, envelope(t, webhook.EventMessageCreated,
		message(9201, 700, webhook.MessageOutgoing, "user", "Your order shipped, no refund needed", t0.Add(2*time.Minute))))

	events := h.outbox(t, entity.EventFollowupTriggered)
	require.Len(t, events, 2)
	groups := map[string][]string{}
	for _, ev := range events {
		var p event.FollowupTriggered
		require.NoError(t, json.Unmarshal([]byte(ev.PayloadJson), &p))
		assert.Equal(t, "9200", p.ExternalMessageId)
		groups[p.Group] = p.Keywords
	}
	assert.Contains(t, groups["order"], "order")
	assert.Contains(t, groups["return"], "refund")
	assert.GreaterOrEqual(t, h.kicks.count(), 1)
}

func TestHandle_AssignmentRules(t *testing.T) {
	h := newReconciler(t, nil)
	c := testutil.SeedCustomer(t, h.db, testutil.OrgID, testutil.CustomerID, "alice@example.com", 9000, 30)
	require.NoError(t, h.db.Model(&storefrontEntity.Customer{}).Where("id = ?", c.Id).Update("high_priority", true).Error)
	testutil.SeedAssignmentRule(t, h.db, testutil.OrgID, entity.AssignmentRule{
		Name: "vip desk", Priority: 10, MatchHighPriority: true, AssigneeId: "42", AssigneeName: "VIP Team",
	})
	testutil.SeedAssignmentRule(t, h.db, testutil.OrgID, entity.AssignmentRule{
		Name: "catch all", Priority: 50, AssigneeId: "1",
	})

	h.send(t, envelope(t, webhook.EventConversationCreated, conversation(800, "open", nil)))
	h.send(t, envelope(t, webhook.EventMessageCreated,
		message(9300, 800, webhook.MessageIncoming, "contact", "hello", t0.Add(time.Minute))))

	assigns := h.outbox(t, entity.EventAssignmentApply)
	require.Len(t, assigns, 1)
	var p event.AssignmentApply
	require.NoError(t, json.Unmarshal([]byte(assigns[0].PayloadJson), &p))
	assert.Equal(t, "42", p.AssigneeId)
	assert.Equal(t, "vip desk", p.RuleName)

	notify := h.outbox(t, entity.EventStakeholderNotify)
	require.Len(t, notify, 1)
	assert.Len(t, h.outbox(t, entity.EventCustomerEnrich), 1)
	assert.Equal(t, "800", h.sessions.links["tok-chat"])
}

func TestHandle_AssigneeChangedLastValueWins(t *testing.T) {
	h := newReconciler(t, nil)
	h.send(t, envelope(t, webhook.EventConversationCreated, conversation(900, "open", nil)))
	h.send(t, envelope(t, webhook.EventAssigneeChanged, conversation(900, "open", map[string]any{
		"meta": map[string]any{"assignee": map[string]any{"id": 7, "name": "Sam"}},
	})))
	h.send(t, envelope(t, webhook.EventConversationStatusChanged, conversation(900, "pending", nil)))

	m := h.mirror(t, "900")
	assert.Equal(t, entity.MirrorStatusPending, m.Status)
	assert.Equal(t, "7", m.AssigneeId)

	h.send(t, envelope(t, webhook.EventAssigneeChanged, conversation(900, "pending", map[string]any{
		"meta": map[string]any{},
	})))
	m = h.mirror(t, "900")
	assert.Empty(t, m.AssigneeId)
	assert.Nil(t, m.ResolvedAt)
}
