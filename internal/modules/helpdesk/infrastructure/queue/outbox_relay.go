package queue

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"StoreSupport/internal/modules/helpdesk/domain/repository"
	"StoreSupport/internal/modules/helpdesk/infrastructure/mq"
	"StoreSupport/pkg/zlog"

	"go.uber.org/zap"
)

// OutboxRelay 把已提交的 outbox 事件投递到 mq，消息体只携带事件 id
type OutboxRelay struct {
	repo         repository.OutboxRepository
	pub          mq.Publisher
	topic        string
	batchSize    int
	pollInterval time.Duration
	kick         chan struct{}
}

func NewOutboxRelay(repo repository.OutboxRepository, pub mq.Publisher, topic string, batchSize int, pollInterval time.Duration) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &OutboxRelay{
		repo:         repo,
		pub:          pub,
		topic:        strings.TrimSpace(topic),
		batchSize:    batchSize,
		pollInterval: pollInterval,
		kick:         make(chan struct{}, 1),
	}
}

// Kick 事务提交后唤醒 relay，不阻塞调用方
func (r *OutboxRelay) Kick() {
	if r == nil {
		return
	}
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

func (r *OutboxRelay) Run(ctx context.Context) error {
	if r.repo == nil {
		return errors.New("outbox repo is nil")
	}
	if r.pub == nil {
		return errors.New("publisher is nil")
	}

	backoff := r.pollInterval
	for {
		var wait time.Duration
		n, err := r.RunOnce(ctx)
		switch {
		case err != nil:
			wait = backoff
			backoff = backoff * 2
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
		case n == 0:
			backoff = r.pollInterval
			wait = r.pollInterval
		default:
			// 还有积压，立即继续
			backoff = r.pollInterval
		}

		if wait == 0 {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-r.kick:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (r *OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	now := time.Now()
	events, err := r.repo.ClaimForPublish(ctx, now, r.batchSize)
	if err != nil {
		zlog.Warn("helpdesk outbox relay claim failed", zap.Error(err))
		return 0, err
	}

	published := 0
	for i := range events {
		ev := events[i]
		if r.topic == "" {
			_ = r.repo.MarkPublishFailed(ctx, ev.Id, now.Add(5*time.Minute), "topic is empty")
			continue
		}

		res, pubErr := r.pub.Publish(ctx, mq.Message{
			Topic: r.topic,
			Key:   []byte(ev.OrgId),
			Value: []byte(strconv.FormatInt(ev.Id, 10)),
			Headers: map[string]string{
				"event_type": ev.EventType,
				"org_id":     ev.OrgId,
				"dedup_key":  ev.DedupKey,
			},
		})
		if pubErr != nil {
			_ = r.repo.MarkPublishFailed(ctx, ev.Id, computeNextRetry(now, ev.RetryCount), pubErr.Error())
			zlog.Warn("helpdesk outbox relay publish failed", zap.Int64("id", ev.Id), zap.Error(pubErr))
			continue
		}

		if err := r.repo.MarkPublished(ctx, ev.Id, r.topic, int(res.Partition), res.Offset, time.Now()); err != nil {
			zlog.Warn("helpdesk outbox relay mark published failed", zap.Int64("id", ev.Id), zap.Error(err))
			continue
		}
		published++
	}
	return published, nil
}

func computeNextRetry(now time.Time, retryCount int) time.Time {
	if retryCount < 0 {
		retryCount = 0
	}
	d := 500 * time.Millisecond
	for i := 0; i < retryCount && d < 5*time.Minute; i++ {
		d = d * 2
	}
	if d > 5*time.Minute {
		d = 5 * time.Minute
	}
	return now.Add(d)
}
