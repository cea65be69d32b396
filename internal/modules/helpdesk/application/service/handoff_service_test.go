package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	conversationService "StoreSupport/internal/modules/conversation/application/service"
	"StoreSupport/internal/modules/helpdesk/application/service"
	"StoreSupport/internal/modules/helpdesk/domain/entity"
	"StoreSupport/internal/modules/helpdesk/domain/event"
	"StoreSupport/internal/modules/helpdesk/infrastructure/persistence"
	"StoreSupport/internal/testutil"
	"StoreSupport/pkg/util"
	"StoreSupport/pkg/ws"
	"StoreSupport/pkg/xerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandoffService_EnqueuesOncePerEscalation(t *testing.T) {
	db := testutil.NewTestDB(t)
	kick := &kickCounter{}
	notifier := &recordingNotifier{}
	svc := service.NewHandoffService(persistence.NewOutboxRepository(db), kick, notifier, true)

	notice := conversationService.EscalationNotice{
		OrgId:        testutil.OrgID,
		SessionId:    7,
		SessionToken: "tok-esc",
		CustomerId:   util.StrPtr(testutil.CustomerID),
		Reason:       `frustration: matched "ridiculous"`,
		LastMessage:  "This is ridiculous, where is my order?",
		At:           testutil.BaseTime,
	}
	ctx := context.Background()
	require.NoError(t, svc.OnEscalation(ctx, notice))
	require.NoError(t, svc.OnEscalation(ctx, notice))

	var events []entity.OutboxEvent
	require.NoError(t, db.Where("event_type = ?", entity.EventEscalationHandoff).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, 1, kick.count())

	var p event.EscalationHandoff
	require.NoError(t, json.Unmarshal([]byte(events[0].PayloadJson), &p))
	assert.Equal(t, "tok-esc", p.SessionToken)
	assert.Equal(t, testutil.CustomerID, p.CustomerId)
	assert.Equal(t, int64(7), p.SessionId)

	got := notifier.all()
	require.Len(t, got, 2)
	assert.Equal(t, ws.NotifyEscalation, got[0].Type)
	assert.Equal(t, notice.Reason, got[0].Reason)

	// 重新打开后的再次升级是新的一次转人工
	notice.At = testutil.BaseTime.Add(30 * time.Minute)
	require.NoError(t, svc.OnEscalation(ctx, notice))
	var n int64
	require.NoError(t, db.Model(&entity.OutboxEvent{}).Count(&n).Error)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 2, kick.count())
}

func TestHandoffService_NotifyDisabled(t *testing.T) {
	db := testutil.NewTestDB(t)
	notifier := &recordingNotifier{}
	svc := service.NewHandoffService(persistence.NewOutboxRepository(db), nil, notifier, false)

	require.NoError(t, svc.OnEscalation(context.Background(), conversationService.EscalationNotice{
		OrgId: testutil.OrgID, SessionId: 1, SessionToken: "tok", Reason: "urgency", At: testutil.BaseTime,
	}))
	assert.Empty(t, notifier.all())
}

func TestAccountService_ResolveOrg(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.SeedAccountMapping(t, db, testutil.AccountID, testutil.OrgID)
	require.NoError(t, db.Create(&entity.AccountMapping{
		ExternalAccountId: "acct_off", OrgId: "org_other", Active: false,
		CreatedAt: testutil.BaseTime, UpdatedAt: testutil.BaseTime,
	}).Error)
	svc := service.NewAccountService(persistence.NewAccountMappingRepository(db))
	ctx := context.Background()

	org, err := svc.ResolveOrg(ctx, testutil.AccountID, "")
	require.NoError(t, err)
	assert.Equal(t, testutil.OrgID, org)

	org, err = svc.ResolveOrg(ctx, " ", testutil.OrgID)
	require.NoError(t, err)
	assert.Equal(t, testutil.OrgID, org)

	_, err = svc.ResolveOrg(ctx, "", "")
	assert.ErrorIs(t, err, xerr.ErrOrgNotFound)

	_, err = svc.ResolveOrg(ctx, "acct_missing", "")
	assert.ErrorIs(t, err, xerr.ErrUnmappedTenant)

	_, err = svc.ResolveOrg(ctx, "acct_off", "")
	assert.ErrorIs(t, err, xerr.ErrUnmappedTenant)

	_, err = svc.ResolveOrg(ctx, testutil.AccountID, "org_other")
	assert.ErrorIs(t, err, xerr.ErrUnauthorized)
}
