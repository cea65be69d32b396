package queue

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"StoreSupport/internal/modules/helpdesk/domain/entity"
	"StoreSupport/internal/modules/helpdesk/infrastructure/mq"
	"StoreSupport/internal/modules/helpdesk/infrastructure/persistence"
	"StoreSupport/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type flakyProcessor struct {
	mu       sync.Mutex
	failures int
	seen     []int64
}

func (p *flakyProcessor) Process(_ context.Context, ev *entity.OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, ev.Id)
	if p.failures > 0 {
		p.failures--
		return errors.New("helpdesk returned 503")
	}
	return nil
}

func (p *flakyProcessor) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}

type panicProcessor struct{}

func (panicProcessor) Process(context.Context, *entity.OutboxEvent) error { panic("boom") }

func enqueue(t *testing.T, db *gorm.DB, dedup string) *entity.OutboxEvent {
	t.Helper()
	ev := &entity.OutboxEvent{
		OrgId:       testutil.OrgID,
		EventType:   entity.EventCustomerEnrich,
		DedupKey:    dedup,
		PayloadJson: `{"org_id":"org_demo","customer_id":"cus_alice"}`,
	}
	ok, err := persistence.NewOutboxRepository(db).Enqueue(context.Background(), ev)
	require.NoError(t, err)
	require.True(t, ok)
	return ev
}

func load(t *testing.T, db *gorm.DB, id int64) entity.OutboxEvent {
	t.Helper()
	var ev entity.OutboxEvent
	require.NoError(t, db.Where("id = ?", id).Take(&ev).Error)
	return ev
}

func TestRelayAndWorker_DeliverOverLocalBus(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := persistence.NewOutboxRepository(db)
	bus := mq.NewLocalBus(8)
	proc := &flakyProcessor{}

	relay := NewOutboxRelay(repo, bus, "storesupport.helpdesk.events", 10, 20*time.Millisecond)
	worker := NewSideEffectWorker(bus, repo, proc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = relay.Run(ctx) }()
	go func() { _ = worker.Run(ctx) }()

	ev := enqueue(t, db, "enrich:1")
	relay.Kick()

	require.Eventually(t, func() bool {
		return load(t, db, ev.Id).Status == entity.ProcessStatusSucceeded
	}, 3*time.Second, 20*time.Millisecond)

	got := load(t, db, ev.Id)
	assert.Equal(t, entity.PublishStatusPublished, got.PublishStatus)
	assert.Equal(t, "storesupport.helpdesk.events", got.KafkaTopic)
	assert.Equal(t, 1, proc.calls())
}

func TestWorker_FailureRequeuesUntilSuccess(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := persistence.NewOutboxRepository(db)
	bus := mq.NewLocalBus(8)
	proc := &flakyProcessor{failures: 1}
	relay := NewOutboxRelay(repo, bus, "events", 10, time.Second)
	worker := NewSideEffectWorker(bus, repo, proc)
	ctx := context.Background()

	ev := enqueue(t, db, "enrich:retry")
	n, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	msg := mq.Message{Topic: "events", Value: []byte(strconv.FormatInt(ev.Id, 10))}
	require.NoError(t, worker.Handle(ctx, msg))

	failed := load(t, db, ev.Id)
	assert.Equal(t, entity.ProcessStatusFailed, failed.Status)
	assert.Equal(t, entity.PublishStatusFailed, failed.PublishStatus)
	assert.Equal(t, 1, failed.RetryCount)
	assert.True(t, failed.NextRetryAt.Valid)
	assert.Contains(t, failed.LastError, "503")

	// 还没到重试时间
	n, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, db.Model(&entity.OutboxEvent{}).Where("id = ?", ev.Id).
		Update("next_retry_at", time.Now().Add(-time.Second)).Error)
	n, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, worker.Handle(ctx, msg))
	assert.Equal(t, entity.ProcessStatusSucceeded, load(t, db, ev.Id).Status)

	// 重复投递不会再次执行
	require.NoError(t, worker.Handle(ctx, msg))
	assert.Equal(t, 2, proc.calls())
}

func TestWorker_GivesUpAfterMaxRetries(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := persistence.NewOutboxRepository(db)
	proc := &flakyProcessor{failures: 100}
	worker := NewSideEffectWorker(mq.NewLocalBus(1), repo, proc)
	ctx := context.Background()

	ev := enqueue(t, db, "enrich:exhausted")
	require.NoError(t, db.Model(&entity.OutboxEvent{}).Where("id = ?", ev.Id).Updates(map[string]any{
		"retry_count":    maxProcessRetries,
		"publish_status": entity.PublishStatusPublished,
	}).Error)

	require.NoError(t, worker.Handle(ctx, mq.Message{Value: []byte(strconv.FormatInt(ev.Id, 10))}))
	got := load(t, db, ev.Id)
	assert.Equal(t, entity.ProcessStatusFailed, got.Status)
	assert.Equal(t, entity.PublishStatusPublished, got.PublishStatus)

	claimed, err := repo.ClaimForPublish(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestWorker_RecoversPanicsAndIgnoresBadIDs(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := persistence.NewOutboxRepository(db)
	worker := NewSideEffectWorker(mq.NewLocalBus(1), repo, panicProcessor{})
	ctx := context.Background()

	require.NoError(t, worker.Handle(ctx, mq.Message{Value: []byte("not-a-number")}))
	require.NoError(t, worker.Handle(ctx, mq.Message{Value: []byte("999")}))

	ev := enqueue(t, db, "enrich:panic")
	require.NoError(t, worker.Handle(ctx, mq.Message{Value: []byte(strconv.FormatInt(ev.Id, 10))}))
	got := load(t, db, ev.Id)
	assert.Equal(t, entity.ProcessStatusFailed, got.Status)
	assert.Contains(t, got.LastError, "panic")
}

func TestComputeNextRetry(t *testing.T) {
	now := testutil.BaseTime
	assert.Equal(t, now.Add(500*time.Millisecond), computeNextRetry(now, 0))
	assert.Equal(t, now.Add(time.Second), computeNextRetry(now, 1))
	assert.Equal(t, now.Add(4*time.Second), computeNextRetry(now, 3))
	assert.Equal(t, now.Add(5*time.Minute), computeNextRetry(now, 30))
	assert.Equal(t, now.Add(500*time.Millisecond), computeNextRetry(now, -2))
}

func TestScrubErrMsg(t *testing.T) {
	assert.Equal(t, "redacted", scrubErrMsg("bad api_access_token=abc"))
	assert.Equal(t, "timeout", scrubErrMsg("  timeout "))
	assert.Len(t, scrubErrMsg(string(make([]byte, 400))), 255)
}

func TestOutboxRepository_EnqueueDedup(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := persistence.NewOutboxRepository(db)
	enqueue(t, db, "same")
	ok, err := repo.Enqueue(context.Background(), &entity.OutboxEvent{
		OrgId: testutil.OrgID, EventType: entity.EventCustomerEnrich, DedupKey: "same", PayloadJson: "{}",
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOutboxRepository_ReclaimsExpiredLeases(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := persistence.NewOutboxRepository(db)
	ctx := context.Background()
	publishing := enqueue(t, db, "crashed-relay")
	processing := enqueue(t, db, "crashed-worker")

	now := time.Now()
	claimed, err := repo.ClaimForPublish(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	require.NoError(t, repo.MarkPublished(ctx, processing.Id, "events", 0, 1, now))
	ok, err := repo.TryMarkProcessing(ctx, processing.Id, now)
	require.NoError(t, err)
	require.True(t, ok)

	// 租约未过期前不会被重复认领
	claimed, err = repo.ClaimForPublish(ctx, now.Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	stale := now.Add(-entity.ClaimLease - time.Minute)
	for _, id := range []int64{publishing.Id, processing.Id} {
		require.NoError(t, db.Model(&entity.OutboxEvent{}).Where("id = ?", id).UpdateColumn("updated_at", stale).Error)
	}

	claimed, err = repo.ClaimForPublish(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, publishing.Id, claimed[0].Id)
	assert.Equal(t, processing.Id, claimed[1].Id)

	ev := load(t, db, processing.Id)
	assert.Equal(t, entity.ProcessStatusFailed, ev.Status)
	assert.Equal(t, entity.PublishStatusPublishing, ev.PublishStatus)
	assert.Equal(t, "processing lease expired", ev.LastError)

	ok, err = repo.TryMarkProcessing(ctx, processing.Id, now)
	require.NoError(t, err)
	assert.True(t, ok)
}
