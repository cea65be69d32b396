// Package tools 对话可调用的只读工具集合，每个工具最多一次存储读取。
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"StoreSupport/internal/modules/storefront/domain/bundle"
	"StoreSupport/internal/modules/storefront/domain/repository"
	"StoreSupport/pkg/metrics"
	"StoreSupport/pkg/zlog"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

const (
	NameOrderLookup    = "order_lookup"
	NameProductSearch  = "product_search"
	NameShippingStatus = "check_shipping_status"
	NameStorePolicies  = "get_store_policies"
	NameEscalate       = "escalate_to_agent"
)

// Outcome 工具执行结果；“没找到”和参数错误都是数据而不是 error
type Outcome struct {
	Tool        string `json:"tool"`
	Found       bool   `json:"found"`
	InvalidArgs bool   `json:"invalid_args,omitempty"`
	Escalate    bool   `json:"escalate,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Content     string `json:"content"`
	Data        any    `json:"data,omitempty"`
}

// Invocation 一次工具调用记录，写入助手消息元数据
type Invocation struct {
	Name      string   `json:"name"`
	Args      string   `json:"args"`
	Outcome   *Outcome `json:"outcome"`
	LatencyMs int64    `json:"latency_ms"`
}

// Tool 单个工具；Info 与 eino 的 BaseTool 同签名，可直接交给 ChatModel
type Tool interface {
	Name() string
	Description() string
	Params() map[string]*schema.ParameterInfo
	Info(ctx context.Context) (*schema.ToolInfo, error)
	Invoke(ctx context.Context, orgID string, args string, b *bundle.ContextBundle) (*Outcome, error)
}

type Deps struct {
	Orders  repository.OrderRepository
	Orgs    repository.OrganizationRepository
	Catalog repository.CatalogRepository
}

// Registry 固定的工具表
type Registry struct {
	tools map[string]Tool
}

func NewRegistry(deps Deps) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range []Tool{
		&orderLookupTool{orders: deps.Orders},
		&productSearchTool{catalog: deps.Catalog},
		&shippingStatusTool{orders: deps.Orders},
		&storePoliciesTool{orgs: deps.Orgs},
		&escalateTool{},
	} {
		r.tools[t.Name()] = t
	}
	return r
}

// Tools 按名称排序返回
func (r *Registry) Tools() []Tool {
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]Tool, 0, len(names))
	for _, n := range names {
		out = append(out, r.tools[n])
	}
	return out
}

func (r *Registry) Infos(ctx context.Context) []*schema.ToolInfo {
	tools := r.Tools()
	out := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil || info == nil {
			continue
		}
		out = append(out, info)
	}
	return out
}

// Execute 执行工具；未知工具返回 InvalidArgs，只有存储读取失败才返回 error
func (r *Registry) Execute(ctx context.Context, orgID, name, args string, b *bundle.ContextBundle) (*Invocation, error) {
	name = strings.TrimSpace(name)
	inv := &Invocation{Name: name, Args: args}
	start := time.Now()

	t, ok := r.tools[name]
	if !ok {
		inv.Outcome = &Outcome{Tool: name, InvalidArgs: true, Content: fmt.Sprintf("Tool %q is not available.", name)}
		zlog.Warn("tool not registered", zap.String("tool", name))
		return inv, nil
	}

	out, err := t.Invoke(ctx, orgID, args, b)
	inv.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		zlog.Error("tool invoke failed", zap.String("tool", name), zap.String("org_id", orgID), zap.Error(err))
		return inv, err
	}
	out.Tool = name
	inv.Outcome = out

	metrics.ToolCalls.WithLabelValues(name, strconv.FormatBool(out.Found)).Inc()
	zlog.Info("tool invoke done",
		zap.String("tool", name),
		zap.Bool("found", out.Found),
		zap.Bool("invalid_args", out.InvalidArgs),
		zap.Int64("latency_ms", inv.LatencyMs))
	return inv, nil
}

func buildInfo(t Tool) *schema.ToolInfo {
	return &schema.ToolInfo{
		Name:        t.Name(),
		Desc:        t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(t.Params()),
	}
}

func decodeArgs(args string, dst any) bool {
	args = strings.TrimSpace(args)
	if args == "" {
		args = "{}"
	}
	return json.Unmarshal([]byte(args), dst) == nil
}

func invalid(msg string) *Outcome {
	return &Outcome{InvalidArgs: true, Content: msg}
}

// flexFloat 兼容模型把数字写成字符串的情况
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimPrefix(s, "$"), 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

func formatMoney(amount float64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}

func formatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}
