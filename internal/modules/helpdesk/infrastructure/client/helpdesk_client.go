package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"StoreSupport/internal/config"

	"github.com/google/uuid"
)

// ErrDisabled 未配置 apiBaseURL 时的所有出站调用
var ErrDisabled = errors.New("helpdesk api is not configured")

// HandoffRequest 把 AI 会话转交到外部客服平台
type HandoffRequest struct {
	AccountId    string
	SessionToken string
	ContactEmail string
	ContactName  string
	Reason       string
	Priority     string
	Transcript   string
}

type Client interface {
	AssignConversation(ctx context.Context, accountID, conversationID, assigneeID string) error
	CreateHandoff(ctx context.Context, req HandoffRequest) (conversationID string, err error)
	SendSurvey(ctx context.Context, accountID, conversationID, contactEmail string) error
	PostPrivateNote(ctx context.Context, accountID, conversationID, content string) error
}

type httpClient struct {
	baseURL string
	token   string
	inboxID int64
	hc      *http.Client
}

func NewClient(conf config.HelpdeskConfig) Client {
	timeout := time.Duration(conf.RequestTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &httpClient{
		baseURL: strings.TrimRight(strings.TrimSpace(conf.APIBaseURL), "/"),
		token:   strings.TrimSpace(conf.APIToken),
		inboxID: conf.InboxID,
		hc:      &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) AssignConversation(ctx context.Context, accountID, conversationID, assigneeID string) error {
	path := fmt.Sprintf("/api/v1/accounts/%s/conversations/%s/assignments", accountID, conversationID)
	return c.do(ctx, http.MethodPost, path, map[string]any{"assignee_id": assigneeID}, nil)
}

func (c *httpClient) CreateHandoff(ctx context.Context, req HandoffRequest) (string, error) {
	path := fmt.Sprintf("/api/v1/accounts/%s/conversations", req.AccountId)
	body := map[string]any{
		"inbox_id": c.inboxID,
		"status":   "open",
		"priority": req.Priority,
		"contact": map[string]string{
			"email": req.ContactEmail,
			"name":  req.ContactName,
		},
		"custom_attributes": map[string]string{
			"session_token":     req.SessionToken,
			"escalation_reason": req.Reason,
		},
		"message": map[string]any{
			"content": req.Transcript,
			"private": true,
		},
	}
	var out struct {
		Id json.Number `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return "", err
	}
	return out.Id.String(), nil
}

func (c *httpClient) SendSurvey(ctx context.Context, accountID, conversationID, contactEmail string) error {
	path := fmt.Sprintf("/api/v1/accounts/%s/conversations/%s/survey", accountID, conversationID)
	return c.do(ctx, http.MethodPost, path, map[string]any{"email": contactEmail}, nil)
}

func (c *httpClient) PostPrivateNote(ctx context.Context, accountID, conversationID, content string) error {
	path := fmt.Sprintf("/api/v1/accounts/%s/conversations/%s/messages", accountID, conversationID)
	return c.do(ctx, http.MethodPost, path, map[string]any{
		"content":      content,
		"message_type": "outgoing",
		"private":      true,
	}, nil)
}

func (c *httpClient) do(ctx context.Context, method, path string, in any, out any) error {
	if c.baseURL == "" {
		return ErrDisabled
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal helpdesk request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build helpdesk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())
	if c.token != "" {
		req.Header.Set("api_access_token", c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("helpdesk %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read helpdesk response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("helpdesk %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode helpdesk response: %w", err)
	}
	return nil
}
