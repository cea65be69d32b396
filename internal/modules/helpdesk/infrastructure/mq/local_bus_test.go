package mq

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collect struct {
	mu   sync.Mutex
	msgs []Message
}

func (c *collect) Handle(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *collect) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func TestLocalBus_PublishAndRun(t *testing.T) {
	bus := NewLocalBus(4)
	ctx := context.Background()

	r1, err := bus.Publish(ctx, Message{Topic: "t", Value: []byte("1")})
	require.NoError(t, err)
	r2, err := bus.Publish(ctx, Message{Topic: "t", Value: []byte("2")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), r1.Offset)
	assert.Equal(t, int64(2), r2.Offset)

	h := &collect{}
	done := make(chan error, 1)
	go func() { done <- bus.Run(ctx, h) }()

	require.Eventually(t, func() bool { return h.len() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "1", string(h.msgs[0].Value))

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bus did not stop after Close")
	}

	_, err = bus.Publish(ctx, Message{Topic: "t"})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestLocalBus_PublishRespectsContext(t *testing.T) {
	bus := NewLocalBus(1)
	_, err := bus.Publish(context.Background(), Message{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = bus.Publish(ctx, Message{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalBus_RunRequiresHandler(t *testing.T) {
	assert.Error(t, NewLocalBus(1).Run(context.Background(), nil))
}
