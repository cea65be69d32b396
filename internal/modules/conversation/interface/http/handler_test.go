package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"StoreSupport/internal/middleware/jwt"
	"StoreSupport/internal/modules/conversation/application/dto/request"
	"StoreSupport/internal/modules/conversation/application/dto/respond"
	"StoreSupport/internal/modules/conversation/application/service"
	"StoreSupport/internal/modules/conversation/domain/entity"
	"StoreSupport/internal/modules/conversation/infrastructure/persistence"
	"StoreSupport/internal/testutil"
	"StoreSupport/pkg/back"
	"StoreSupport/pkg/util"
	"StoreSupport/pkg/xerr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fallback = "I'm sorry, I'm having trouble answering right now."

type stubChat struct {
	got request.ChatTurnRequest
	res *respond.ChatTurnRespond
	err error
}

func (s *stubChat) Chat(_ context.Context, req request.ChatTurnRequest) (*respond.ChatTurnRespond, error) {
	s.got = req
	return s.res, s.err
}

func (s *stubChat) Fallback() string { return fallback }

func postChat(t *testing.T, h *ChatHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/support/chat", h.Chat)
	req := httptest.NewRequest(http.MethodPost, "/support/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChatHandler_Success(t *testing.T) {
	svc := &stubChat{res: &respond.ChatTurnRespond{Success: true, Response: "Order #1001 is shipped.", SessionID: 3, Confidence: 0.8}}
	w := postChat(t, NewChatHandler(svc), `{"sessionToken":"tok","message":"Where is my order?","organizationId":"org_demo","customerId":"cus_alice"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var got respond.ChatTurnRespond
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Success)
	assert.Equal(t, int64(3), got.SessionID)
	assert.Equal(t, "cus_alice", util.Deref(svc.got.CustomerID))
	assert.Equal(t, "org_demo", svc.got.OrganizationID)
}

func TestChatHandler_FailuresCarryFallback(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"bad json", `{"message":`, nil, http.StatusBadRequest},
		{"timeout", `{"sessionToken":"t","message":"hi","organizationId":"org_demo"}`, xerr.ErrUpstreamTimeout, http.StatusGatewayTimeout},
		{"upstream", `{"sessionToken":"t","message":"hi","organizationId":"org_demo"}`, xerr.ErrUpstream, http.StatusBadGateway},
		{"plain error", `{"sessionToken":"t","message":"hi","organizationId":"org_demo"}`, assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postChat(t, NewChatHandler(&stubChat{err: tc.err}), tc.body)
			assert.Equal(t, tc.status, w.Code)

			var got respond.ChatFailureRespond
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.False(t, got.Success)
			assert.NotEmpty(t, got.Error)
			assert.Equal(t, fallback, got.FallbackResponse)
		})
	}
}

func TestTranscriptHandler_ScopedToAgentOrg(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := service.NewSessionService(persistence.NewSessionRepository(db), &util.FixedClock{T: testutil.BaseTime})
	ctx := context.Background()
	sess, err := svc.GetOrCreateSession(ctx, "tok-view", testutil.OrgID, nil)
	require.NoError(t, err)
	_, err = svc.AppendMessage(ctx, sess.Id, entity.RoleCustomer, "Do you ship to Canada?", entity.MessageMetadata{})
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	h := NewTranscriptHandler(svc)
	serve := func(org string) back.Response {
		r := gin.New()
		r.GET("/support/agent/sessions/:token/messages", func(c *gin.Context) {
			if org != "" {
				c.Set(jwt.CtxOrgID, org)
			}
			c.Next()
		}, h.Messages)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/support/agent/sessions/tok-view/messages?limit=10", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var out back.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		return out
	}

	ok := serve(testutil.OrgID)
	assert.Equal(t, xerr.OK, ok.Code)
	data, err := json.Marshal(ok.Data)
	require.NoError(t, err)
	var tr respond.TranscriptRespond
	require.NoError(t, json.Unmarshal(data, &tr))
	require.Len(t, tr.Messages, 1)
	assert.Equal(t, "Do you ship to Canada?", tr.Messages[0].Content)

	assert.Equal(t, xerr.NotFound, serve("org_other").Code)
	assert.Equal(t, xerr.Unauthorized, serve("").Code)
}
