package http

import (
	"strings"

	"StoreSupport/internal/middleware/jwt"
	"StoreSupport/internal/modules/conversation/application/dto/request"
	"StoreSupport/internal/modules/conversation/application/service"
	"StoreSupport/pkg/back"
	"StoreSupport/pkg/xerr"
	"StoreSupport/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TranscriptHandler struct {
	svc service.SessionService
}

func NewTranscriptHandler(svc service.SessionService) *TranscriptHandler {
	return &TranscriptHandler{svc: svc}
}

// Messages 坐席查看会话记录
//
// 路由: GET /support/agent/sessions/:token/messages?limit=&offset=
// 鉴权: 需要JWT，只能查看本组织的会话
func (h *TranscriptHandler) Messages(c *gin.Context) {
	var req request.TranscriptRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	orgID := strings.TrimSpace(c.GetString(jwt.CtxOrgID))
	if orgID == "" {
		back.Error(c, xerr.Unauthorized, xerr.ErrUnauthorized.Message)
		return
	}

	data, err := h.svc.Transcript(c.Request.Context(), orgID, c.Param("token"), req.Limit, req.Offset)
	if err != nil {
		zlog.Warn("load transcript failed", zap.String("org_id", orgID), zap.Error(err))
	}
	back.Result(c, data, err)
}
