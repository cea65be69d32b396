// Package event 副作用事件的类型化载荷。
package event

import "time"

type CustomerEnrich struct {
	OrgId      string `json:"org_id"`
	CustomerId string `json:"customer_id"`
}

type StakeholderNotify struct {
	OrgId                  string `json:"org_id"`
	ExternalConversationId string `json:"external_conversation_id"`
	CustomerId             string `json:"customer_id"`
	CustomerName           string `json:"customer_name"`
	Reason                 string `json:"reason"`
}

type FollowupTriggered struct {
	OrgId                  string   `json:"org_id"`
	ExternalConversationId string   `json:"external_conversation_id"`
	ExternalMessageId      string   `json:"external_message_id"`
	Group                  string   `json:"group"`
	Keywords               []string `json:"keywords"`
	CustomerId             string   `json:"customer_id,omitempty"`
}

type SurveySchedule struct {
	OrgId                  string    `json:"org_id"`
	ExternalConversationId string    `json:"external_conversation_id"`
	ContactEmail           string    `json:"contact_email"`
	CustomerId             string    `json:"customer_id,omitempty"`
	ResolvedAt             time.Time `json:"resolved_at"`
}

type AssignmentApply struct {
	OrgId                  string `json:"org_id"`
	ExternalConversationId string `json:"external_conversation_id"`
	AssigneeId             string `json:"assignee_id"`
	RuleName               string `json:"rule_name"`
}

type EscalationHandoff struct {
	OrgId        string `json:"org_id"`
	SessionId    int64  `json:"session_id"`
	SessionToken string `json:"session_token"`
	CustomerId   string `json:"customer_id,omitempty"`
	Reason       string `json:"reason"`
	LastMessage  string `json:"last_message"`
}
