package queue

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"StoreSupport/internal/modules/helpdesk/application/service"
	"StoreSupport/internal/modules/helpdesk/domain/entity"
	"StoreSupport/internal/modules/helpdesk/domain/repository"
	"StoreSupport/internal/modules/helpdesk/infrastructure/mq"
	"StoreSupport/pkg/zlog"

	"go.uber.org/zap"
)

const maxProcessRetries = 5

// SideEffectWorker 消费 relay 投递的事件 id，按 outbox 处理状态保证只成功执行一次
type SideEffectWorker struct {
	consumer  mq.Consumer
	outbox    repository.OutboxRepository
	processor service.SideEffectProcessor
}

func NewSideEffectWorker(consumer mq.Consumer, outbox repository.OutboxRepository, processor service.SideEffectProcessor) *SideEffectWorker {
	return &SideEffectWorker{
		consumer:  consumer,
		outbox:    outbox,
		processor: processor,
	}
}

func (w *SideEffectWorker) Run(ctx context.Context) error {
	if w == nil || w.consumer == nil {
		return errors.New("consumer is nil")
	}
	if w.outbox == nil {
		return errors.New("outbox repo is nil")
	}
	if w.processor == nil {
		return errors.New("processor is nil")
	}
	return w.consumer.Run(ctx, w)
}

func (w *SideEffectWorker) Handle(ctx context.Context, msg mq.Message) error {
	idStr := strings.TrimSpace(string(msg.Value))
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		zlog.Warn("helpdesk side effect invalid event_id", zap.String("topic", msg.Topic))
		return nil
	}

	ev, err := w.outbox.GetByID(ctx, id)
	if err != nil {
		zlog.Warn("helpdesk side effect get event failed", zap.Int64("event_id", id), zap.Error(err))
		return err
	}
	if ev == nil || ev.Status == entity.ProcessStatusSucceeded {
		return nil
	}

	ok, err := w.outbox.TryMarkProcessing(ctx, ev.Id, time.Now())
	if err != nil {
		zlog.Warn("helpdesk side effect mark processing failed", zap.Int64("event_id", ev.Id), zap.Error(err))
		return err
	}
	if !ok {
		return nil
	}

	procErr := w.process(ctx, ev)
	if procErr != nil {
		var retryAt *time.Time
		if ev.RetryCount < maxProcessRetries {
			next := computeNextRetry(time.Now(), ev.RetryCount)
			retryAt = &next
		}
		_ = w.outbox.MarkFailed(ctx, ev.Id, scrubErrMsg(procErr.Error()), retryAt)
		zlog.Warn("helpdesk side effect failed",
			zap.Int64("event_id", ev.Id),
			zap.String("event_type", ev.EventType),
			zap.String("org_id", ev.OrgId),
			zap.Int("retry_count", ev.RetryCount),
			zap.Bool("will_retry", retryAt != nil),
			zap.String("error", scrubErrMsg(procErr.Error())))
		return nil
	}
	if err := w.outbox.MarkSucceeded(ctx, ev.Id); err != nil {
		zlog.Warn("helpdesk side effect mark succeeded failed", zap.Int64("event_id", ev.Id), zap.Error(err))
		return err
	}
	return nil
}

func (w *SideEffectWorker) process(ctx context.Context, ev *entity.OutboxEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("panic while processing side effect")
			zlog.Error("helpdesk side effect panic", zap.Int64("event_id", ev.Id), zap.Any("panic", r))
		}
	}()
	return w.processor.Process(ctx, ev)
}

func scrubErrMsg(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	low := strings.ToLower(s)
	if strings.Contains(low, "api_access_token") || strings.Contains(low, "secret") || strings.Contains(low, "apikey") {
		return "redacted"
	}
	if len(s) > 255 {
		return s[:255]
	}
	return s
}
