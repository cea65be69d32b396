package ws

import (
	"encoding/json"
	"sync"
	"time"

	"StoreSupport/pkg/zlog"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Notification 推送给坐席端的通知
type Notification struct {
	Type         string    `json:"type"`
	OrgId        string    `json:"organization_id"`
	SessionToken string    `json:"session_token,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Message      string    `json:"message,omitempty"`
	At           time.Time `json:"at"`
}

const (
	NotifyEscalation   = "escalation"
	NotifyHighPriority = "high_priority_conversation"
	NotifyFollowup     = "followup"
)

// Hub 按组织分组的坐席连接
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	if c == nil || c.orgID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.orgID]
	if set == nil {
		set = make(map[*Client]struct{})
		h.clients[c.orgID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) Unregister(c *Client) {
	if c == nil || c.orgID == "" {
		return
	}
	h.mu.Lock()
	set := h.clients[c.orgID]
	if set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.orgID)
		}
	}
	h.mu.Unlock()
	c.Close()
}

// Connected 组织当前在线的坐席连接数
func (h *Hub) Connected(orgID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[orgID])
}

// Broadcast 发给组织下所有连接，发送队列已满的连接会被踢掉
func (h *Hub) Broadcast(orgID string, payload []byte) int {
	if orgID == "" || len(payload) == 0 {
		return 0
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[orgID]))
	for c := range h.clients[orgID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if c.enqueue(payload) {
			sent++
			continue
		}
		h.Unregister(c)
	}
	return sent
}

func (h *Hub) Notify(n Notification) error {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	h.Broadcast(n.OrgId, b)
	return nil
}

type Client struct {
	orgID   string
	agentID string
	conn    *websocket.Conn
	send    chan []byte

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

func NewClient(orgID, agentID string, conn *websocket.Conn) *Client {
	return &Client{
		orgID:   orgID,
		agentID: agentID,
		conn:    conn,
		send:    make(chan []byte, 64),
	}
}

func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *Client) WritePump() {
	if c.conn == nil {
		return
	}
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			zlog.Warn("ws write failed", zap.String("org_id", c.orgID), zap.String("agent_id", c.agentID), zap.Error(err))
			return
		}
	}
}

// ReadPump 只用于感知断开，坐席端不会上行业务消息
func (c *Client) ReadPump(h *Hub) {
	defer h.Unregister(c)
	if c.conn == nil {
		return
	}
	c.conn.SetReadLimit(4096)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
