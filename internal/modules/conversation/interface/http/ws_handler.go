package http

import (
	"net/http"
	"strings"

	"StoreSupport/pkg/util/myjwt"
	"StoreSupport/pkg/ws"
	"StoreSupport/pkg/zlog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WsHandler 坐席通知长连接
type WsHandler struct {
	hub    *ws.Hub
	jwtKey string
}

func NewWsHandler(hub *ws.Hub, jwtKey string) *WsHandler {
	return &WsHandler{hub: hub, jwtKey: jwtKey}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Connect 路由: GET /support/agent/ws?token=
func (h *WsHandler) Connect(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	var (
		claims *myjwt.CustomClaims
		err    error
	)
	if h.jwtKey != "" {
		claims, err = myjwt.ParseTokenWith(h.jwtKey, token)
	} else {
		claims, err = myjwt.ParseToken(token)
	}
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zlog.Warn("agent ws upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(claims.OrgId, claims.AgentId, conn)
	h.hub.Register(client)
	zlog.Info("agent ws connected",
		zap.String("org_id", claims.OrgId),
		zap.String("agent_id", claims.AgentId),
		zap.Int("online", h.hub.Connected(claims.OrgId)))

	go client.WritePump()
	go client.ReadPump(h.hub)
}
