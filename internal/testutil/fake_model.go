package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Step 假模型的一次应答
type Step struct {
	Reply     string
	ToolCalls []schema.ToolCall
	Err       error
	// Delay 大于调用超时时模拟上游超时
	Delay time.Duration
}

// FakeChatModel 按顺序返回预设应答，用完后重复最后一个
type FakeChatModel struct {
	mu    sync.Mutex
	steps []Step
	calls [][]*schema.Message
}

func NewFakeChatModel(steps ...Step) *FakeChatModel {
	return &FakeChatModel{steps: steps}
}

func (f *FakeChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	idx := len(f.calls)
	f.calls = append(f.calls, input)
	var st Step
	if len(f.steps) > 0 {
		if idx >= len(f.steps) {
			idx = len(f.steps) - 1
		}
		st = f.steps[idx]
	}
	f.mu.Unlock()

	if st.Delay > 0 {
		select {
		case <-time.After(st.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if st.Err != nil {
		return nil, st.Err
	}
	return schema.AssistantMessage(st.Reply, st.ToolCalls), nil
}

func (f *FakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream is not supported by the fake model")
}

// Calls 已发生的调用次数
func (f *FakeChatModel) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// LastInput 最近一次调用的完整消息列表
func (f *FakeChatModel) LastInput() []*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

// ToolCall 构造一次工具调用
func ToolCall(id, name, args string) schema.ToolCall {
	return schema.ToolCall{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}
}
