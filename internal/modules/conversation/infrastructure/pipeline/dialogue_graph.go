package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"StoreSupport/internal/modules/conversation/domain/entity"
	"StoreSupport/internal/modules/conversation/domain/escalation"
	"StoreSupport/internal/modules/conversation/domain/repository"
	"StoreSupport/internal/modules/conversation/infrastructure/llm"
	"StoreSupport/internal/modules/storefront/domain/bundle"
	"StoreSupport/internal/modules/storefront/infrastructure/tools"
	"StoreSupport/pkg/metrics"
	"StoreSupport/pkg/util"
	"StoreSupport/pkg/xerr"
	"StoreSupport/pkg/zlog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// dialogueState Graph 内部状态（在节点间传递）
type dialogueState struct {
	Req            *TurnRequest
	QueryID        string
	Start          time.Time
	Session        *entity.ChatSession
	CustomerID     *string
	History        []entity.ConversationMessage
	Bundle         *bundle.ContextBundle
	Complexity     Complexity
	ChatModel      model.BaseChatModel
	ModelMeta      llm.ChatModelMeta
	PromptMsgs     []*schema.Message
	Draft          string
	Reply          string
	PendingCall    *schema.ToolCall
	Continue       bool
	ToolRounds     int
	Invocation     *tools.Invocation
	AgentRequested bool
	AgentReason    string
	Score          escalation.Breakdown
	Decision       escalation.Decision
	LLMMs          int64
	Err            error
}

const toolUnavailableText = "I wasn't able to look that up just now."

// Node 1: LoadSession - 幂等获取会话并加载最近对话
func (p *DialoguePipeline) loadSessionNode(ctx context.Context, req *TurnRequest, _ ...any) (*dialogueState, error) {
	st := &dialogueState{
		Req:     req,
		Start:   time.Now(),
		QueryID: util.GenerateID("T"),
	}

	req.SessionToken = strings.TrimSpace(req.SessionToken)
	req.OrgID = strings.TrimSpace(req.OrgID)
	req.Message = strings.TrimSpace(req.Message)
	if req.SessionToken == "" || req.OrgID == "" || req.Message == "" {
		st.Err = xerr.Wrap(xerr.BadRequest, xerr.ErrParam.Message, fmt.Errorf("sessionToken, organizationId and message are required"))
		return st, nil
	}
	if req.CustomerID != nil && strings.TrimSpace(*req.CustomerID) == "" {
		req.CustomerID = nil
	}

	now := p.clock.Now()
	sess, created, err := p.sessions.GetOrCreate(ctx, &entity.ChatSession{
		SessionToken: req.SessionToken,
		OrgId:        req.OrgID,
		CustomerId:   req.CustomerID,
		Status:       entity.SessionStatusActive,
		Context:      entity.SessionContext{Channel: req.Channel},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		st.Err = err
		return st, nil
	}
	if sess.OrgId != req.OrgID {
		st.Err = xerr.ErrSessionOrg
		return st, nil
	}
	if req.CustomerID != nil && sess.CustomerId == nil {
		if err := p.sessions.AttachCustomer(ctx, sess.Id, *req.CustomerID); err != nil {
			st.Err = err
			return st, nil
		}
		sess.CustomerId = req.CustomerID
	}
	st.Session = sess
	st.CustomerID = sess.CustomerId

	if !created {
		history, err := p.sessions.ListRecentMessages(ctx, sess.Id, p.conf.TranscriptWindow)
		if err != nil {
			st.Err = err
			return st, nil
		}
		st.History = history
	}

	zlog.Info("dialogue load session done",
		zap.String("query_id", st.QueryID),
		zap.Int64("session_id", sess.Id),
		zap.Bool("is_new", created),
		zap.String("status", sess.Status),
		zap.Int("history_count", len(st.History)))
	return st, nil
}

// Node 2: BuildContext - 聚合店铺与客户上下文，并选择模型档位
func (p *DialoguePipeline) buildContextNode(ctx context.Context, st *dialogueState, _ ...any) (*dialogueState, error) {
	if st == nil || st.Err != nil {
		return st, nil
	}
	b, err := p.contextSvc.Build(ctx, st.Req.OrgID, st.CustomerID)
	if err != nil {
		st.Err = err
		return st, nil
	}
	st.Bundle = b
	st.Complexity = p.classifier.Classify(st.Req.Message, b.HasOrders())
	st.ChatModel, st.ModelMeta = p.models.Pick(st.Complexity.Tier)

	zlog.Info("dialogue build context done",
		zap.String("query_id", st.QueryID),
		zap.Bool("anonymous", b.IsAnonymous()),
		zap.Int("orders", len(b.Orders)),
		zap.Strings("degraded", b.Degraded),
		zap.Int("complexity", st.Complexity.Score),
		zap.String("tier", st.ModelMeta.Tier))
	return st, nil
}

// Node 3: BuildPrompt - 系统提示词 + 最近对话 + 当前消息
func (p *DialoguePipeline) buildPromptNode(_ context.Context, st *dialogueState, _ ...any) (*dialogueState, error) {
	if st == nil || st.Err != nil {
		return st, nil
	}
	msgs := make([]*schema.Message, 0, len(st.History)+2)
	msgs = append(msgs, schema.SystemMessage(buildSystemPrompt(st.Bundle, p.clock.Now())))
	msgs = append(msgs, historyMessages(st.History)...)
	msgs = append(msgs, schema.UserMessage(st.Req.Message))
	st.PromptMsgs = msgs

	zlog.Info("dialogue build prompt done",
		zap.String("query_id", st.QueryID),
		zap.Int("prompt_msgs", len(msgs)),
		zap.Int("tools", len(p.toolInfos)))
	return st, nil
}

// Node 4: Dialogue - 调用 LLM，直接回复或请求一个工具
func (p *DialoguePipeline) dialogueNode(ctx context.Context, st *dialogueState, _ ...any) (*dialogueState, error) {
	if st == nil || st.Err != nil {
		return st, nil
	}
	st.PendingCall = nil
	if st.ChatModel == nil {
		st.Err = xerr.Wrap(xerr.ErrUpstream.Code, xerr.ErrUpstream.Message, fmt.Errorf("no chat model configured"))
		return st, nil
	}

	opts := []model.Option{}
	if len(p.toolInfos) > 0 {
		opts = append(opts, model.WithTools(p.toolInfos))
	}

	llmStart := time.Now()
	resp, err := p.generate(ctx, st.ChatModel, st.PromptMsgs, opts...)
	st.LLMMs += time.Since(llmStart).Milliseconds()
	if err != nil {
		st.Err = err
		zlog.Warn("dialogue model call failed",
			zap.String("query_id", st.QueryID),
			zap.String("tier", st.ModelMeta.Tier),
			zap.Error(err))
		return st, nil
	}

	if len(resp.ToolCalls) > 0 {
		if len(resp.ToolCalls) > 1 {
			zlog.Warn("dialogue extra tool calls ignored",
				zap.String("query_id", st.QueryID),
				zap.Int("tool_calls", len(resp.ToolCalls)))
		}
		call := resp.ToolCalls[0]
		st.PendingCall = &call
		st.Draft = resp.Content
		// 只保留实际执行的那个调用，保证下一轮消息配对
		assistantMsg := schema.AssistantMessage(resp.Content, []schema.ToolCall{call})
		st.PromptMsgs = append(st.PromptMsgs, assistantMsg)
	} else {
		st.Reply = resp.Content
		if strings.TrimSpace(st.Reply) == "" && st.Invocation != nil && st.Invocation.Outcome != nil {
			st.Reply = foldToolResult(st.Draft, st.Invocation.Outcome.Content)
		}
	}

	zlog.Info("dialogue model response",
		zap.String("query_id", st.QueryID),
		zap.String("model", st.ModelMeta.Model),
		zap.Int("tool_round", st.ToolRounds),
		zap.Int("tool_calls", len(resp.ToolCalls)),
		zap.Int("answer_len", len(resp.Content)),
		zap.Int64("llm_ms", st.LLMMs))
	return st, nil
}

// Node 5: Tools - 执行一个工具；达到轮次上限或请求转人工时直接把结果并入回复
func (p *DialoguePipeline) toolsNode(ctx context.Context, st *dialogueState, _ ...any) (*dialogueState, error) {
	if st == nil || st.Err != nil || st.PendingCall == nil {
		return st, nil
	}
	call := *st.PendingCall
	st.PendingCall = nil
	st.ToolRounds++

	name := strings.TrimSpace(call.Function.Name)
	inv, err := p.registry.Execute(ctx, st.Req.OrgID, name, call.Function.Arguments, st.Bundle)
	if err != nil {
		// 存储读取失败按“没查到”处理，不中断回合
		inv.Outcome = &tools.Outcome{Tool: name, Content: toolUnavailableText}
	}
	st.Invocation = inv
	out := inv.Outcome
	if out.Escalate {
		st.AgentRequested = true
		st.AgentReason = out.Reason
	}

	st.Continue = !out.Escalate && st.ToolRounds < p.conf.MaxToolRounds
	if st.Continue {
		st.PromptMsgs = append(st.PromptMsgs, schema.ToolMessage(out.Content, call.ID))
	} else {
		st.Reply = foldToolResult(st.Draft, out.Content)
	}

	zlog.Info("dialogue tool executed",
		zap.String("query_id", st.QueryID),
		zap.String("tool", name),
		zap.Bool("found", out.Found),
		zap.Bool("continue", st.Continue),
		zap.Int("round", st.ToolRounds))
	return st, nil
}

// Node 6: Evaluate - 计算置信度并按规则决定是否升级
func (p *DialoguePipeline) evaluateNode(_ context.Context, st *dialogueState, _ ...any) (*dialogueState, error) {
	if st == nil || st.Err != nil {
		return st, nil
	}
	reply := strings.TrimSpace(st.Reply)
	if reply == "" {
		reply = p.conf.FallbackResponse
	}

	sig := escalation.Signals{
		HasOrders:     st.Bundle.HasOrders(),
		Reply:         reply,
		Knowledge:     st.Bundle.KnowledgeTexts(),
		PriorMessages: int(st.Session.LastSeq),
	}
	if st.Bundle != nil {
		sig.Customer = st.Bundle.Customer
	}
	if inv := st.Invocation; inv != nil && inv.Outcome != nil {
		sig.ToolName = inv.Name
		sig.ToolFound = inv.Outcome.Found && !inv.Outcome.InvalidArgs
	}
	st.Score = p.scorer.Explain(sig)
	st.Decision = p.evaluator.Evaluate(escalation.Input{
		Message:        st.Req.Message,
		Confidence:     st.Score.Total,
		AgentRequested: st.AgentRequested,
		AgentReason:    st.AgentReason,
	})

	// 首次升级时告知客户，escalate 工具自带说明
	if st.Decision.Escalate && !st.AgentRequested && !st.Session.IsEscalated() {
		reply = foldToolResult(reply, p.conf.EscalationAcknowledge)
	}
	st.Reply = reply

	zlog.Info("dialogue evaluate done",
		zap.String("query_id", st.QueryID),
		zap.Float64("confidence", st.Score.Total),
		zap.Any("score", st.Score),
		zap.Bool("escalate", st.Decision.Escalate),
		zap.String("rule", st.Decision.Rule))
	return st, nil
}

// Node 7: Persist - 整个回合一次事务落库
func (p *DialoguePipeline) persistNode(ctx context.Context, st *dialogueState, _ ...any) (*TurnResult, error) {
	if st == nil {
		return &TurnResult{Err: fmt.Errorf("nil state")}, nil
	}
	if st.Err != nil {
		metrics.Turns.WithLabelValues(tierLabel(st), "failed").Inc()
		return p.buildFinalResult(st), nil
	}

	confidence := st.Score.Total
	meta := entity.MessageMetadata{
		ModelTier:        st.ModelMeta.Tier,
		Model:            st.ModelMeta.Model,
		Confidence:       &confidence,
		ToolRounds:       st.ToolRounds,
		EscalationReason: st.Decision.Reason(),
		LatencyMs:        time.Since(st.Start).Milliseconds(),
	}
	if inv := st.Invocation; inv != nil && inv.Outcome != nil {
		found := inv.Outcome.Found
		meta.ToolInvoked = inv.Name
		meta.ToolFound = &found
	}

	tier := st.ModelMeta.Tier
	res, err := p.sessions.RecordTurn(ctx, repository.TurnRecord{
		SessionId:         st.Session.Id,
		CustomerContent:   st.Req.Message,
		AssistantContent:  st.Reply,
		AssistantMetadata: meta,
		Escalate:          st.Decision.Escalate,
		EscalationReason:  st.Decision.Reason(),
		UpdateContext: func(c *entity.SessionContext) {
			c.TurnCount++
			c.LastModelTier = tier
			c.LastConfidence = confidence
			if c.Channel == "" {
				c.Channel = st.Req.Channel
			}
		},
		At: p.clock.Now(),
	})
	if err != nil {
		st.Err = fmt.Errorf("record turn: %w", err)
		metrics.Turns.WithLabelValues(tierLabel(st), "failed").Inc()
		return p.buildFinalResult(st), nil
	}
	st.Session = res.Session

	outcome := "answered"
	if st.Decision.Escalate {
		outcome = "escalated"
		metrics.Escalations.WithLabelValues(st.Decision.Rule).Inc()
	}
	metrics.Turns.WithLabelValues(tier, outcome).Inc()
	metrics.TurnLatency.WithLabelValues(tier).Observe(time.Since(st.Start).Seconds())

	result := p.buildFinalResult(st)
	result.NewlyEscalated = res.Escalated

	zlog.Info("dialogue persist done",
		zap.String("query_id", st.QueryID),
		zap.Int64("session_id", res.Session.Id),
		zap.Int64("last_seq", res.Session.LastSeq),
		zap.String("status", res.Session.Status),
		zap.Bool("reopened", res.Reopened),
		zap.Int64("total_ms", meta.LatencyMs))
	return result, nil
}

func (p *DialoguePipeline) buildFinalResult(st *dialogueState) *TurnResult {
	out := &TurnResult{
		SessionToken: st.Req.SessionToken,
		QueryID:      st.QueryID,
		Err:          st.Err,
	}
	if st.Session != nil {
		out.SessionID = st.Session.Id
		out.Session = st.Session
	}
	if st.Err != nil {
		return out
	}
	out.Reply = st.Reply
	out.Confidence = st.Score.Total
	out.ModelTier = st.ModelMeta.Tier
	out.ShouldEscalate = st.Decision.Escalate || (st.Session != nil && st.Session.IsEscalated())
	out.EscalationReason = st.Decision.Reason()
	if out.EscalationReason == "" && st.Session != nil && st.Session.IsEscalated() {
		out.EscalationReason = st.Session.EscalationReason
	}
	if st.Invocation != nil {
		out.ToolInvoked = st.Invocation.Name
	}
	return out
}

func tierLabel(st *dialogueState) string {
	if st.ModelMeta.Tier == "" {
		return "none"
	}
	return st.ModelMeta.Tier
}
