package mq

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var ErrBusClosed = errors.New("local bus closed")

// LocalBus 未配置 Kafka 时的进程内投递，同时实现 Publisher 与 Consumer
type LocalBus struct {
	ch     chan Message
	offset atomic.Int64
	once   sync.Once
	done   chan struct{}
}

func NewLocalBus(buffer int) *LocalBus {
	if buffer <= 0 {
		buffer = 256
	}
	return &LocalBus{ch: make(chan Message, buffer), done: make(chan struct{})}
}

func (b *LocalBus) Publish(ctx context.Context, msg Message) (PublishResult, error) {
	select {
	case <-b.done:
		return PublishResult{}, ErrBusClosed
	default:
	}
	select {
	case b.ch <- msg:
		return PublishResult{Partition: 0, Offset: b.offset.Add(1)}, nil
	case <-b.done:
		return PublishResult{}, ErrBusClosed
	case <-ctx.Done():
		return PublishResult{}, ctx.Err()
	}
}

// Run 处理失败的消息不会重投，依赖 outbox 的处理状态补偿
func (b *LocalBus) Run(ctx context.Context, handler Handler) error {
	if handler == nil {
		return errors.New("handler is nil")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return nil
		case msg := <-b.ch:
			_ = handler.Handle(ctx, msg)
		}
	}
}

func (b *LocalBus) Close() error {
	b.once.Do(func() { close(b.done) })
	return nil
}
