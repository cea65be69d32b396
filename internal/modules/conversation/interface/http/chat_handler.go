package http

import (
	"net/http"

	"StoreSupport/internal/modules/conversation/application/dto/request"
	"StoreSupport/internal/modules/conversation/application/dto/respond"
	"StoreSupport/internal/modules/conversation/application/service"
	"StoreSupport/pkg/back"
	"StoreSupport/pkg/xerr"
	"StoreSupport/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatHandler 店铺前台聊天接口
type ChatHandler struct {
	svc service.ChatService
}

func NewChatHandler(svc service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Chat 处理一条客户消息
//
// 路由: POST /support/chat
// 鉴权: 无（前台组件直接调用）
// 请求体: ChatTurnRequest
// 响应体: ChatTurnRespond；失败时 ChatFailureRespond，fallbackResponse 始终存在
func (h *ChatHandler) Chat(c *gin.Context) {
	var req request.ChatTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Warn("support chat bind error", zap.Error(err))
		h.fail(c, xerr.ErrParam)
		return
	}

	data, err := h.svc.Chat(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *ChatHandler) fail(c *gin.Context, err error) {
	msg := xerr.ErrServerError.Message
	if ce, ok := xerr.From(err); ok {
		msg = ce.Message
	}
	c.JSON(back.HTTPStatus(err), respond.ChatFailureRespond{
		Success:          false,
		Error:            msg,
		FallbackResponse: h.svc.Fallback(),
	})
}
