package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StoreSupport/internal/config"
	"StoreSupport/internal/modules/conversation/domain/entity"
	"StoreSupport/internal/modules/conversation/domain/escalation"
	"StoreSupport/internal/modules/conversation/domain/repository"
	"StoreSupport/internal/modules/conversation/infrastructure/llm"
	storefrontService "StoreSupport/internal/modules/storefront/application/service"
	"StoreSupport/internal/modules/storefront/infrastructure/tools"
	"StoreSupport/pkg/util"
	"StoreSupport/pkg/xerr"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// TurnRequest 一次客户消息
type TurnRequest struct {
	SessionToken string
	OrgID        string
	CustomerID   *string
	Message      string
	Channel      string
}

// TurnResult 回合结果；Err 非空时未写入任何对话数据
type TurnResult struct {
	SessionID        int64
	SessionToken     string
	Reply            string
	ShouldEscalate   bool
	NewlyEscalated   bool
	EscalationReason string
	Confidence       float64
	ModelTier        string
	ToolInvoked      string
	QueryID          string
	Session          *entity.ChatSession
	Err              error
}

type DialogueDeps struct {
	Sessions  repository.SessionRepository
	Context   storefrontService.ContextService
	Tools     *tools.Registry
	Models    *llm.Models
	Scorer    *escalation.Scorer
	Evaluator *escalation.Evaluator
	Clock     util.Clock
}

// DialoguePipeline 单回合对话编排（基于 Eino Graph）
type DialoguePipeline struct {
	sessions   repository.SessionRepository
	contextSvc storefrontService.ContextService
	registry   *tools.Registry
	models     *llm.Models
	scorer     *escalation.Scorer
	evaluator  *escalation.Evaluator
	clock      util.Clock
	classifier *ComplexityClassifier
	conf       config.DialogueConfig
	toolInfos  []*schema.ToolInfo
	r          compose.Runnable[*TurnRequest, *TurnResult]
}

func NewDialoguePipeline(deps DialogueDeps, conf config.DialogueConfig) (*DialoguePipeline, error) {
	if deps.Sessions == nil || deps.Context == nil || deps.Tools == nil || deps.Models == nil ||
		deps.Scorer == nil || deps.Evaluator == nil {
		return nil, fmt.Errorf("required dependencies are nil")
	}
	if deps.Clock == nil {
		deps.Clock = util.SystemClock()
	}

	p := &DialoguePipeline{
		sessions:   deps.Sessions,
		contextSvc: deps.Context,
		registry:   deps.Tools,
		models:     deps.Models,
		scorer:     deps.Scorer,
		evaluator:  deps.Evaluator,
		clock:      deps.Clock,
		classifier: NewComplexityClassifier(conf),
		conf:       conf,
	}
	ctx := context.Background()
	p.toolInfos = deps.Tools.Infos(ctx)

	r, err := p.buildGraph(ctx)
	if err != nil {
		return nil, err
	}
	p.r = r
	return p, nil
}

// Execute 执行一个回合；失败时返回带错误码的 error，不写入部分数据
func (p *DialoguePipeline) Execute(ctx context.Context, req *TurnRequest) (*TurnResult, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}
	if p.r == nil {
		return nil, fmt.Errorf("pipeline runnable is nil")
	}
	res, err := p.r.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return res, res.Err
	}
	return res, nil
}

// buildGraph 构建 Eino Graph；Dialogue 与 Tools 之间按 maxToolRounds 有界循环
func (p *DialoguePipeline) buildGraph(ctx context.Context) (compose.Runnable[*TurnRequest, *TurnResult], error) {
	const (
		LoadSession  = "LoadSession"
		BuildContext = "BuildContext"
		BuildPrompt  = "BuildPrompt"
		Dialogue     = "Dialogue"
		Tools        = "Tools"
		Evaluate     = "Evaluate"
		Persist      = "Persist"
	)

	g := compose.NewGraph[*TurnRequest, *TurnResult]()

	_ = g.AddLambdaNode(LoadSession, compose.InvokableLambdaWithOption(p.loadSessionNode), compose.WithNodeName(LoadSession))
	_ = g.AddLambdaNode(BuildContext, compose.InvokableLambdaWithOption(p.buildContextNode), compose.WithNodeName(BuildContext))
	_ = g.AddLambdaNode(BuildPrompt, compose.InvokableLambdaWithOption(p.buildPromptNode), compose.WithNodeName(BuildPrompt))
	_ = g.AddLambdaNode(Dialogue, compose.InvokableLambdaWithOption(p.dialogueNode), compose.WithNodeName(Dialogue))
	_ = g.AddLambdaNode(Tools, compose.InvokableLambdaWithOption(p.toolsNode), compose.WithNodeName(Tools))
	_ = g.AddLambdaNode(Evaluate, compose.InvokableLambdaWithOption(p.evaluateNode), compose.WithNodeName(Evaluate))
	_ = g.AddLambdaNode(Persist, compose.InvokableLambdaWithOption(p.persistNode), compose.WithNodeName(Persist))

	_ = g.AddEdge(compose.START, LoadSession)
	_ = g.AddEdge(LoadSession, BuildContext)
	_ = g.AddEdge(BuildContext, BuildPrompt)
	_ = g.AddEdge(BuildPrompt, Dialogue)

	afterDialogue := func(_ context.Context, st *dialogueState) (string, error) {
		if st != nil && st.Err == nil && st.PendingCall != nil {
			return Tools, nil
		}
		return Evaluate, nil
	}
	afterTools := func(_ context.Context, st *dialogueState) (string, error) {
		if st != nil && st.Err == nil && st.Continue {
			return Dialogue, nil
		}
		return Evaluate, nil
	}
	_ = g.AddBranch(Dialogue, compose.NewGraphBranch(afterDialogue, map[string]bool{Tools: true, Evaluate: true}))
	_ = g.AddBranch(Tools, compose.NewGraphBranch(afterTools, map[string]bool{Dialogue: true, Evaluate: true}))
	_ = g.AddEdge(Evaluate, Persist)
	_ = g.AddEdge(Persist, compose.END)

	maxSteps := 8 + 2*config.MaxToolRoundsCap
	return g.Compile(ctx,
		compose.WithGraphName("DialoguePipeline"),
		compose.WithNodeTriggerMode(compose.AnyPredecessor),
		compose.WithMaxRunSteps(maxSteps))
}

// generate 单次调用受超时约束，失败最多重试 llmRetries 次
func (p *DialoguePipeline) generate(ctx context.Context, cm model.BaseChatModel, msgs []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	timeout := time.Duration(p.conf.LLMTimeoutSeconds) * time.Second
	attempts := 1 + p.conf.LLMRetries

	var lastErr error
	for i := 0; i < attempts; i++ {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err := cm.Generate(callCtx, msgs, opts...)
		timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
		cancel()
		if err == nil && resp != nil {
			return resp, nil
		}
		if err == nil {
			err = fmt.Errorf("empty model response")
		}
		if timedOut && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	if errors.Is(lastErr, context.DeadlineExceeded) {
		return nil, xerr.Wrap(xerr.ErrUpstreamTimeout.Code, xerr.ErrUpstreamTimeout.Message, lastErr)
	}
	return nil, xerr.Wrap(xerr.ErrUpstream.Code, xerr.ErrUpstream.Message, lastErr)
}
