package http

import (
	"io"
	"net/http"

	"StoreSupport/internal/modules/helpdesk/application/service"
	"StoreSupport/pkg/back"
	"StoreSupport/pkg/xerr"
	"StoreSupport/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	svc             service.ReconcilerService
	signatureHeader string
}

func NewWebhookHandler(svc service.ReconcilerService, signatureHeader string) *WebhookHandler {
	if signatureHeader == "" {
		signatureHeader = "X-Helpdesk-Signature"
	}
	return &WebhookHandler{svc: svc, signatureHeader: signatureHeader}
}

// Receive 外部客服平台事件回调
//
// 路由: POST /webhooks/helpdesk
// 鉴权: HMAC-SHA256 签名（请求头）
// 响应: 200 {success, event, message}；400/401/413/422/500 {success:false, error}
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		h.fail(c, xerr.ErrParam)
		return
	}
	if len(body) > maxWebhookBody {
		zlog.Warn("helpdesk webhook body too large", zap.Int64("content_length", c.Request.ContentLength))
		h.fail(c, xerr.ErrBodyTooLarge)
		return
	}

	res, err := h.svc.Handle(c.Request.Context(), body, c.GetHeader(h.signatureHeader))
	if err != nil {
		status := back.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			zlog.Error("helpdesk webhook failed", zap.Int("status", status), zap.Error(err))
		} else {
			zlog.Warn("helpdesk webhook rejected", zap.Int("status", status), zap.Error(err))
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"event":   res.Event,
		"message": res.Message,
	})
}

func (h *WebhookHandler) fail(c *gin.Context, err error) {
	msg := xerr.ErrServerError.Message
	if ce, ok := xerr.From(err); ok {
		msg = ce.Message
	}
	c.JSON(back.HTTPStatus(err), gin.H{"success": false, "error": msg})
}
