package respond

import "time"

// ChatTurnRespond 回合成功响应
type ChatTurnRespond struct {
	Success        bool    `json:"success"`
	Response       string  `json:"response"`
	ShouldEscalate bool    `json:"shouldEscalate"`
	SessionID      int64   `json:"sessionId"`
	Confidence     float64 `json:"confidence"`
	QueryID        string  `json:"queryId,omitempty"`
}

// ChatFailureRespond 回合失败响应，fallbackResponse 始终存在
type ChatFailureRespond struct {
	Success          bool   `json:"success"`
	Error            string `json:"error"`
	FallbackResponse string `json:"fallbackResponse"`
}

type TranscriptMessage struct {
	Seq        int64     `json:"seq"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	Author     string    `json:"author,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	ModelTier  string    `json:"model_tier,omitempty"`
	Tool       string    `json:"tool,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TranscriptRespond 会话记录分页
type TranscriptRespond struct {
	SessionID        int64               `json:"session_id"`
	SessionToken     string              `json:"session_token"`
	Status           string              `json:"status"`
	EscalationReason string              `json:"escalation_reason,omitempty"`
	CustomerID       *string             `json:"customer_id,omitempty"`
	Total            int64               `json:"total"`
	Messages         []TranscriptMessage `json:"messages"`
}
