package persistence_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"StoreSupport/internal/modules/conversation/domain/entity"
	"StoreSupport/internal/modules/conversation/domain/repository"
	"StoreSupport/internal/modules/conversation/infrastructure/persistence"
	"StoreSupport/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T, repo repository.SessionRepository, token string) *entity.ChatSession {
	t.Helper()
	sess, created, err := repo.GetOrCreate(context.Background(), &entity.ChatSession{
		SessionToken: token,
		OrgId:        testutil.OrgID,
		CreatedAt:    testutil.BaseTime,
		UpdatedAt:    testutil.BaseTime,
	})
	require.NoError(t, err)
	require.True(t, created)
	return sess
}

func TestGetOrCreate_ConcurrentSameToken(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := persistence.NewSessionRepository(db)

	const n = 16
	ids := make([]int64, n)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, c, err := repo.GetOrCreate(context.Background(), &entity.ChatSession{
				SessionToken: "tok-race",
				OrgId:        testutil.OrgID,
				CreatedAt:    testutil.BaseTime,
				UpdatedAt:    testutil.BaseTime,
			})
			if !assert.NoError(t, err) {
				return
			}
			ids[i] = sess.Id
			if c {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	var rows int64
	require.NoError(t, db.Model(&entity.ChatSession{}).Where("session_token = ?", "tok-race").Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
	assert.Equal(t, 1, created)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestGetOrCreate_RequiresToken(t *testing.T) {
	repo := persistence.NewSessionRepository(testutil.NewTestDB(t))
	_, _, err := repo.GetOrCreate(context.Background(), &entity.ChatSession{OrgId: testutil.OrgID})
	require.Error(t, err)
}

func TestAppend_SequenceIsOrdered(t *testing.T) {
	repo := persistence.NewSessionRepository(testutil.NewTestDB(t))
	sess := newSession(t, repo, "tok-seq")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Append(ctx, sess.Id, &entity.ConversationMessage{Role: entity.RoleCustomer, Content: "hi"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	msgs, total, err := repo.ListMessages(ctx, sess.Id, 50, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 10, total)
	for i, m := range msgs {
		assert.EqualValues(t, i+1, m.Seq)
	}

	recent, err := repo.ListRecentMessages(ctx, sess.Id, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.EqualValues(t, 8, recent[0].Seq)
	assert.EqualValues(t, 10, recent[2].Seq)

	got, err := repo.GetByID(ctx, sess.Id)
	require.NoError(t, err)
	assert.EqualValues(t, 10, got.LastSeq)
}

func TestAppendExternal_Dedup(t *testing.T) {
	repo := persistence.NewSessionRepository(testutil.NewTestDB(t))
	sess := newSession(t, repo, "tok-ext")
	ctx := context.Background()

	ext := "hd-msg-1"
	msg := func() *entity.ConversationMessage {
		id := ext
		return &entity.ConversationMessage{Role: entity.RoleHumanAgent, Content: "On it", ExternalMessageId: &id}
	}
	ok, err := repo.AppendExternal(ctx, sess.Id, msg())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AppendExternal(ctx, sess.Id, msg())
	require.NoError(t, err)
	assert.False(t, ok)

	_, total, err := repo.ListMessages(ctx, sess.Id, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, err = repo.AppendExternal(ctx, sess.Id, &entity.ConversationMessage{Role: entity.RoleHumanAgent, Content: "x"})
	require.Error(t, err)
}

func TestAppendExternal_DedupIsPerSession(t *testing.T) {
	repo := persistence.NewSessionRepository(testutil.NewTestDB(t))
	ctx := context.Background()
	first := newSession(t, repo, "tok-ext-a")
	second := newSession(t, repo, "tok-ext-b")

	// 不同客服平台账号可能复用同一消息 ID
	for _, sess := range []*entity.ChatSession{first, second} {
		id := "42"
		ok, err := repo.AppendExternal(ctx, sess.Id, &entity.ConversationMessage{Role: entity.RoleHumanAgent, Content: "Hi there", ExternalMessageId: &id})
		require.NoError(t, err)
		assert.True(t, ok)

		_, total, err := repo.ListMessages(ctx, sess.Id, 10, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
	}
}

func TestUpdateStatus_Monotonic(t *testing.T) {
	repo := persistence.NewSessionRepository(testutil.NewTestDB(t))
	sess := newSession(t, repo, "tok-status")
	ctx := context.Background()
	at := testutil.BaseTime.Add(time.Minute)

	got, changed, err := repo.UpdateStatus(ctx, sess.Id, repository.StatusChange{
		Target: entity.SessionStatusEscalated, Reason: "frustration", Actor: entity.ActorAssistant, At: at,
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, entity.SessionStatusEscalated, got.Status)
	require.NotNil(t, got.EscalatedAt)

	// 引擎与客户都不能把 escalated 改回 active
	for _, actor := range []string{entity.ActorAssistant, entity.ActorCustomer} {
		got, changed, err = repo.UpdateStatus(ctx, sess.Id, repository.StatusChange{Target: entity.SessionStatusActive, Actor: actor})
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, entity.SessionStatusEscalated, got.Status)
	}

	_, changed, err = repo.UpdateStatus(ctx, sess.Id, repository.StatusChange{Target: entity.SessionStatusResolved, Actor: entity.ActorAssistant})
	require.NoError(t, err)
	assert.False(t, changed)

	got, changed, err = repo.UpdateStatus(ctx, sess.Id, repository.StatusChange{Target: entity.SessionStatusResolved, Actor: entity.ActorHuman, At: at})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, entity.SessionStatusResolved, got.Status)
	assert.Equal(t, "frustration", got.EscalationReason)
}

func TestRecordTurn_ReopensResolvedSession(t *testing.T) {
	repo := persistence.NewSessionRepository(testutil.NewTestDB(t))
	sess := newSession(t, repo, "tok-turn")
	ctx := context.Background()

	_, _, err := repo.UpdateStatus(ctx, sess.Id, repository.StatusChange{Target: entity.SessionStatusResolved, Actor: entity.ActorHuman})
	require.NoError(t, err)

	conf := 0.7
	res, err := repo.RecordTurn(ctx, repository.TurnRecord{
		SessionId:         sess.Id,
		CustomerContent:   "one more thing",
		AssistantContent:  "Sure, how can I help?",
		AssistantMetadata: entity.MessageMetadata{ModelTier: "fast", Confidence: &conf},
		UpdateContext:     func(c *entity.SessionContext) { c.TurnCount++ },
		At:                testutil.BaseTime,
	})
	require.NoError(t, err)
	assert.True(t, res.Reopened)
	assert.False(t, res.Escalated)
	assert.Equal(t, entity.SessionStatusActive, res.Session.Status)
	assert.Nil(t, res.Session.ResolvedAt)
	assert.EqualValues(t, 1, res.CustomerMessage.Seq)
	assert.EqualValues(t, 2, res.AssistantMessage.Seq)

	msgs, _, err := repo.ListMessages(ctx, sess.Id, 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, entity.RoleCustomer, msgs[0].Role)
	assert.Equal(t, "fast", msgs[1].Metadata.ModelTier)
	require.NotNil(t, msgs[1].Metadata.Confidence)
	assert.InDelta(t, 0.7, *msgs[1].Metadata.Confidence, 1e-9)

	got, err := repo.GetByID(ctx, sess.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Context.TurnCount)
}

func TestRecordTurn_Escalates(t *testing.T) {
	repo := persistence.NewSessionRepository(testutil.NewTestDB(t))
	sess := newSession(t, repo, "tok-esc")

	res, err := repo.RecordTurn(context.Background(), repository.TurnRecord{
		SessionId:        sess.Id,
		CustomerContent:  "I want a human",
		AssistantContent: "Connecting you.",
		Escalate:         true,
		EscalationReason: "human request",
	})
	require.NoError(t, err)
	assert.True(t, res.Escalated)
	assert.Equal(t, "human request", res.Session.EscalationReason)
}

func TestAttachCustomer_OnlyOnce(t *testing.T) {
	repo := persistence.NewSessionRepository(testutil.NewTestDB(t))
	sess := newSession(t, repo, "tok-cus")
	ctx := context.Background()

	require.NoError(t, repo.AttachCustomer(ctx, sess.Id, "cus_1"))
	require.NoError(t, repo.AttachCustomer(ctx, sess.Id, "cus_2"))

	got, err := repo.GetByToken(ctx, "tok-cus")
	require.NoError(t, err)
	require.NotNil(t, got.CustomerId)
	assert.Equal(t, "cus_1", *got.CustomerId)

	missing, err := repo.GetByToken(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
