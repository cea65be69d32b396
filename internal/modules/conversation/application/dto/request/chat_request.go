package request

// ChatTurnRequest 店铺前台组件发来的一条客户消息
type ChatTurnRequest struct {
	SessionToken   string  `json:"sessionToken"`   // 会话令牌（必填，由前台生成）
	Message        string  `json:"message"`        // 客户消息（必填）
	OrganizationID string  `json:"organizationId"` // 组织ID（必填）
	CustomerID     *string `json:"customerId"`     // 已登录客户ID（可选）
	Channel        string  `json:"channel"`        // 渠道：widget/email/...（可选）
}

// TranscriptRequest 坐席查看会话记录
type TranscriptRequest struct {
	Limit  int `form:"limit"`  // 每页数量（默认50，最大200）
	Offset int `form:"offset"` // 偏移量
}
