package http

import (
	"context"
	"strings"

	"StoreSupport/internal/middleware/jwt"
	"StoreSupport/internal/modules/storefront/application/service"
	"StoreSupport/pkg/back"
	"StoreSupport/pkg/xerr"
	"StoreSupport/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrgResolver 把外部客服账号解析为组织
type OrgResolver interface {
	ResolveOrg(ctx context.Context, accountID, fallbackOrgID string) (string, error)
}

type AgentContextHandler struct {
	svc  service.AgentViewService
	orgs OrgResolver
}

func NewAgentContextHandler(svc service.AgentViewService, orgs OrgResolver) *AgentContextHandler {
	return &AgentContextHandler{svc: svc, orgs: orgs}
}

// Context 客服侧边栏的客户视图
//
// 路由: GET /support/agent/context?contactId=&accountId=&action=
// 鉴权: 需要JWT
// action: context|orders|cart|insights|recommendations
func (h *AgentContextHandler) Context(c *gin.Context) {
	contactID := strings.TrimSpace(c.Query("contactId"))
	if contactID == "" {
		back.Error(c, xerr.BadRequest, "contactId is required")
		return
	}

	orgID, err := h.orgs.ResolveOrg(c.Request.Context(), c.Query("accountId"), c.GetString(jwt.CtxOrgID))
	if err != nil {
		back.Result(c, nil, err)
		return
	}

	data, err := h.svc.View(c.Request.Context(), orgID, contactID, c.Query("action"))
	if err != nil {
		zlog.Warn("agent context failed",
			zap.String("org_id", orgID),
			zap.String("contact_id", contactID),
			zap.Error(err))
	}
	back.Result(c, data, err)
}
