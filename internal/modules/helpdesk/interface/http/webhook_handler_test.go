package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"StoreSupport/internal/modules/helpdesk/application/service"
	"StoreSupport/pkg/xerr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReconciler struct {
	body      string
	signature string
	res       *service.WebhookResult
	err       error
}

func (s *stubReconciler) Handle(_ context.Context, body []byte, signature string) (*service.WebhookResult, error) {
	s.body = string(body)
	s.signature = signature
	return s.res, s.err
}

func deliver(h *WebhookHandler, header, sig, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/helpdesk", h.Receive)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/helpdesk", strings.NewReader(body))
	if sig != "" {
		req.Header.Set(header, sig)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookHandler_Accepted(t *testing.T) {
	svc := &stubReconciler{res: &service.WebhookResult{Event: "conversation_created", Message: "conversation synced"}}
	w := deliver(NewWebhookHandler(svc, ""), "X-Helpdesk-Signature", "abc123", `{"event":"conversation_created"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc123", svc.signature)
	assert.Equal(t, `{"event":"conversation_created"}`, svc.body)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, true, got["success"])
	assert.Equal(t, "conversation_created", got["event"])
}

func TestWebhookHandler_CustomHeader(t *testing.T) {
	svc := &stubReconciler{res: &service.WebhookResult{Event: "message_created"}}
	w := deliver(NewWebhookHandler(svc, "X-Chatwoot-Signature"), "X-Chatwoot-Signature", "s1", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", svc.signature)
}

func TestWebhookHandler_ErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"bad signature", xerr.ErrBadSignature, http.StatusUnauthorized, xerr.ErrBadSignature.Message},
		{"unmapped", xerr.ErrUnmappedTenant, http.StatusUnprocessableEntity, xerr.ErrUnmappedTenant.Message},
		{"bad payload", xerr.ErrParam, http.StatusBadRequest, xerr.ErrParam.Message},
		{"store down", assert.AnError, http.StatusInternalServerError, xerr.ErrServerError.Message},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := deliver(NewWebhookHandler(&stubReconciler{err: tc.err}, ""), "X-Helpdesk-Signature", "sig", `{}`)
			assert.Equal(t, tc.status, w.Code)
			var got map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, false, got["success"])
			assert.Equal(t, tc.msg, got["error"])
		})
	}
}

func TestWebhookHandler_OversizeBody(t *testing.T) {
	svc := &stubReconciler{res: &service.WebhookResult{Event: "message_created"}}
	h := NewWebhookHandler(svc, "")

	w := deliver(h, "X-Helpdesk-Signature", "sig", strings.Repeat("a", maxWebhookBody+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, svc.body)
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, xerr.ErrBodyTooLarge.Message, got["error"])

	w = deliver(h, "X-Helpdesk-Signature", "sig", strings.Repeat("a", maxWebhookBody))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, svc.body, maxWebhookBody)
}
