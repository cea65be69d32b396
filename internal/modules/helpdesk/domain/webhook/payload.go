// Package webhook 外部客服平台推送的事件信封与载荷。
package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	EventConversationCreated       = "conversation_created"
	EventConversationUpdated       = "conversation_updated"
	EventConversationStatusChanged = "conversation_status_changed"
	EventConversationResolved      = "conversation_resolved"
	EventAssigneeChanged           = "assignee_changed"
	EventMessageCreated            = "message_created"
)

// Envelope {event, data, account{id,name}}
type Envelope struct {
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
	Account Account         `json:"account"`
}

type Account struct {
	Id   ExternalID `json:"id"`
	Name string     `json:"name"`
}

// ExternalID 兼容数字和字符串两种 id
type ExternalID string

func (e *ExternalID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*e = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*e = ExternalID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %s", string(b))
	}
	*e = ExternalID(n.String())
	return nil
}

func (e ExternalID) String() string { return string(e) }

// Timestamp 兼容 unix 秒与 RFC3339 字符串
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			t.Time = time.Unix(n, 0).UTC()
			return nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z", "2006-01-02 15:04:05 MST", "2006-01-02 15:04:05"} {
			if v, err := time.Parse(layout, s); err == nil {
				t.Time = v.UTC()
				return nil
			}
		}
		return fmt.Errorf("invalid timestamp %q", s)
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s", string(b))
	}
	t.Time = time.Unix(int64(f), 0).UTC()
	return nil
}

// Ptr 零值返回 nil
func (t Timestamp) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

type Contact struct {
	Id    ExternalID `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Type  string     `json:"type"`
}

type Agent struct {
	Id    ExternalID `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
}

type ConversationMeta struct {
	Sender   Contact `json:"sender"`
	Assignee *Agent  `json:"assignee"`
}

type CustomAttributes struct {
	SessionToken string `json:"session_token"`
}

// Conversation conversation_* 事件的 data
type Conversation struct {
	Id               ExternalID       `json:"id"`
	Status           string           `json:"status"`
	Priority         string           `json:"priority"`
	InboxId          ExternalID       `json:"inbox_id"`
	Meta             ConversationMeta `json:"meta"`
	CustomAttributes CustomAttributes `json:"custom_attributes"`
	CreatedAt        Timestamp        `json:"created_at"`
	Timestamp        Timestamp        `json:"timestamp"`
	UpdatedAt        Timestamp        `json:"updated_at"`
}

// EventTime 事件发生时间，按可信度依次回退
func (c *Conversation) EventTime(fallback time.Time) time.Time {
	for _, t := range []Timestamp{c.Timestamp, c.UpdatedAt} {
		if !t.IsZero() {
			return t.Time
		}
	}
	return fallback
}

type MessageConversation struct {
	Id               ExternalID       `json:"id"`
	Status           string           `json:"status"`
	InboxId          ExternalID       `json:"inbox_id"`
	CustomAttributes CustomAttributes `json:"custom_attributes"`
	CreatedAt        Timestamp        `json:"created_at"`
	Meta             ConversationMeta `json:"meta"`
}

type MessageSender struct {
	Id    ExternalID `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Type  string     `json:"type"`
}

const (
	MessageIncoming = "incoming"
	MessageOutgoing = "outgoing"
	MessageActivity = "activity"
	MessageTemplate = "template"
)

// Message message_created 事件的 data
type Message struct {
	Id             ExternalID          `json:"id"`
	Content        string              `json:"content"`
	MessageType    string              `json:"message_type"`
	Private        bool                `json:"private"`
	CreatedAt      Timestamp           `json:"created_at"`
	ConversationId ExternalID          `json:"conversation_id"`
	Conversation   MessageConversation `json:"conversation"`
	Sender         MessageSender       `json:"sender"`
}

// ConversationID 兼容两种位置
func (m *Message) ConversationID() string {
	if m.Conversation.Id != "" {
		return m.Conversation.Id.String()
	}
	return m.ConversationId.String()
}

// IsFromAgent 人工客服发出的公开消息
func (m *Message) IsFromAgent() bool {
	if m.Private {
		return false
	}
	if strings.EqualFold(m.Sender.Type, "user") || strings.EqualFold(m.Sender.Type, "agent") {
		return true
	}
	return m.MessageType == MessageOutgoing && m.Sender.Type == ""
}

func (m *Message) IsFromContact() bool {
	if strings.EqualFold(m.Sender.Type, "contact") {
		return true
	}
	return m.MessageType == MessageIncoming
}

func Decode(data json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("event data is empty")
	}
	return json.Unmarshal(data, dst)
}
