package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"StoreSupport/internal/config"
	"StoreSupport/internal/modules/conversation/application/dto/request"
	"StoreSupport/internal/modules/conversation/domain/entity"
	"StoreSupport/internal/modules/conversation/infrastructure/pipeline"
	"StoreSupport/pkg/xerr"
	"StoreSupport/pkg/zlog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubExecutor struct {
	res  *pipeline.TurnResult
	err  error
	got  *pipeline.TurnRequest
	ctxE error
}

func (s *stubExecutor) Execute(ctx context.Context, req *pipeline.TurnRequest) (*pipeline.TurnResult, error) {
	s.got = req
	s.ctxE = ctx.Err()
	return s.res, s.err
}

type chanListener struct {
	ch chan EscalationNotice
}

func (l *chanListener) OnEscalation(_ context.Context, n EscalationNotice) error {
	l.ch <- n
	return nil
}

func validRequest() request.ChatTurnRequest {
	return request.ChatTurnRequest{SessionToken: "tok-1", Message: "hello", OrganizationID: "org_demo"}
}

func TestChat_ValidatesRequest(t *testing.T) {
	zlog.SetLogger(zap.NewNop())
	exec := &stubExecutor{}
	svc := newChatService(exec, config.DialogueConfig{})

	req := validRequest()
	req.Message = "   "
	_, err := svc.Chat(context.Background(), req)
	require.ErrorIs(t, err, xerr.ErrParam)
	assert.Nil(t, exec.got)
	assert.NotEmpty(t, svc.Fallback())
}

func TestChat_DetachedFromCallerCancellation(t *testing.T) {
	zlog.SetLogger(zap.NewNop())
	exec := &stubExecutor{res: &pipeline.TurnResult{SessionID: 7, Reply: "hi there"}}
	svc := newChatService(exec, config.DialogueConfig{FallbackResponse: "sorry"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := svc.Chat(ctx, validRequest())
	require.NoError(t, err)
	assert.NoError(t, exec.ctxE)
	assert.True(t, out.Success)
	assert.Equal(t, "hi there", out.Response)
	assert.EqualValues(t, 7, out.SessionID)
	assert.Equal(t, "sorry", svc.Fallback())
}

func TestChat_PropagatesTurnError(t *testing.T) {
	zlog.SetLogger(zap.NewNop())
	exec := &stubExecutor{err: xerr.ErrUpstreamTimeout}
	svc := newChatService(exec, config.DialogueConfig{})

	_, err := svc.Chat(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, xerr.GatewayTimeout, xerr.CodeOf(err))
}

func TestChat_NotifiesListenersOnFirstEscalation(t *testing.T) {
	zlog.SetLogger(zap.NewNop())
	escalatedAt := time.Date(2026, 3, 2, 10, 5, 0, 0, time.UTC)
	customer := "cus_alice"
	exec := &stubExecutor{res: &pipeline.TurnResult{
		SessionID:        9,
		SessionToken:     "tok-1",
		Reply:            "Connecting you now.",
		ShouldEscalate:   true,
		NewlyEscalated:   true,
		EscalationReason: "frustration: furious",
		Session: &entity.ChatSession{
			Id:          9,
			CustomerId:  &customer,
			EscalatedAt: &escalatedAt,
		},
	}}
	l := &chanListener{ch: make(chan EscalationNotice, 1)}
	svc := newChatService(exec, config.DialogueConfig{}, nil, l)

	out, err := svc.Chat(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, out.ShouldEscalate)

	select {
	case n := <-l.ch:
		assert.EqualValues(t, 9, n.SessionId)
		assert.Equal(t, "org_demo", n.OrgId)
		assert.Equal(t, "frustration: furious", n.Reason)
		assert.Equal(t, "hello", n.LastMessage)
		assert.Equal(t, escalatedAt, n.At)
		require.NotNil(t, n.CustomerId)
		assert.Equal(t, customer, *n.CustomerId)
	case <-time.After(2 * time.Second):
		t.Fatal("listener was not notified")
	}
}

func TestChat_AlreadyEscalatedDoesNotNotify(t *testing.T) {
	zlog.SetLogger(zap.NewNop())
	exec := &stubExecutor{res: &pipeline.TurnResult{SessionID: 9, ShouldEscalate: true}}
	l := &chanListener{ch: make(chan EscalationNotice, 1)}
	svc := newChatService(exec, config.DialogueConfig{}, l)

	_, err := svc.Chat(context.Background(), validRequest())
	require.NoError(t, err)

	select {
	case <-l.ch:
		t.Fatal("unexpected notification")
	case <-time.After(100 * time.Millisecond):
	}
}

type failingListener struct{}

func (failingListener) OnEscalation(context.Context, EscalationNotice) error {
	return errors.New("helpdesk down")
}

func TestChat_ListenerFailureDoesNotFailTurn(t *testing.T) {
	zlog.SetLogger(zap.NewNop())
	exec := &stubExecutor{res: &pipeline.TurnResult{SessionID: 3, NewlyEscalated: true, ShouldEscalate: true}}
	l := &chanListener{ch: make(chan EscalationNotice, 1)}
	svc := newChatService(exec, config.DialogueConfig{}, failingListener{}, l)

	out, err := svc.Chat(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, out.Success)

	select {
	case <-l.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("second listener was not notified")
	}
}
