package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"StoreSupport/internal/modules/storefront/application/service"
	"StoreSupport/internal/modules/storefront/infrastructure/tools"
	"StoreSupport/pkg/zlog"

	"github.com/cloudwego/eino/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const orgArg = "organization_id"

type orgCtxKey struct{}

// WithOrg 已鉴权的组织；存在时工具参数里的组织必须与之一致
func WithOrg(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, orgCtxKey{}, orgID)
}

func orgFrom(ctx context.Context) string {
	v, _ := ctx.Value(orgCtxKey{}).(string)
	return v
}

// ServerConfig 坐席工具 MCP Server 配置
type ServerConfig struct {
	Name    string
	Version string
}

// ToolServer 把只读工具以 MCP 协议暴露给人工坐席的工具链
type ToolServer struct {
	registry   *tools.Registry
	contextSvc service.ContextService
	srv        *server.MCPServer
}

func NewToolServer(conf ServerConfig, registry *tools.Registry, contextSvc service.ContextService) *ToolServer {
	s := server.NewMCPServer(conf.Name, conf.Version, server.WithToolCapabilities(true))
	ts := &ToolServer{registry: registry, contextSvc: contextSvc, srv: s}
	ts.registerTools()
	return ts
}

func (ts *ToolServer) MCPServer() *server.MCPServer { return ts.srv }

// HTTPHandler streamable-HTTP 传输，请求 context 中的组织会透传到工具处理函数
func (ts *ToolServer) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(ts.srv)
}

func (ts *ToolServer) registerTools() {
	for _, t := range ts.registry.Tools() {
		// 人工坐席本身就是升级目标
		if t.Name() == tools.NameEscalate {
			continue
		}
		ts.srv.AddTool(toMCPTool(t), ts.handler(t.Name()))
		zlog.Info("mcp tool registered", zap.String("tool", t.Name()))
	}
}

func toMCPTool(t tools.Tool) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(t.Description()),
		mcp.WithString(orgArg, mcp.Required(), mcp.Description("Organization (store) ID")),
	}
	for name, p := range t.Params() {
		popts := []mcp.PropertyOption{mcp.Description(p.Desc)}
		if p.Required {
			popts = append(popts, mcp.Required())
		}
		switch p.Type {
		case schema.Number, schema.Integer:
			opts = append(opts, mcp.WithNumber(name, popts...))
		default:
			if len(p.Enum) > 0 {
				popts = append(popts, mcp.Enum(p.Enum...))
			}
			opts = append(opts, mcp.WithString(name, popts...))
		}
	}
	return mcp.NewTool(t.Name(), opts...)
}

func (ts *ToolServer) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		orgID, _ := args[orgArg].(string)
		orgID = strings.TrimSpace(orgID)
		if authed := orgFrom(ctx); authed != "" {
			if orgID != "" && orgID != authed {
				return mcp.NewToolResultError("organization is not accessible"), nil
			}
			orgID = authed
		}
		if orgID == "" {
			return mcp.NewToolResultError(orgArg + " is required"), nil
		}

		toolArgs := make(map[string]any, len(args))
		for k, v := range args {
			if k != orgArg {
				toolArgs[k] = v
			}
		}
		raw, _ := json.Marshal(toolArgs)

		b, err := ts.contextSvc.Build(ctx, orgID, nil)
		if err != nil {
			zlog.Warn("mcp tool context failed", zap.String("tool", name), zap.String("org_id", orgID), zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}
		// 调用方是已鉴权的坐席
		b.StaffView = true

		inv, err := ts.registry.Execute(ctx, orgID, name, string(raw), b)
		if err != nil {
			return mcp.NewToolResultError("store lookup failed"), nil
		}
		if inv.Outcome.InvalidArgs {
			return mcp.NewToolResultError(inv.Outcome.Content), nil
		}
		return mcp.NewToolResultText(inv.Outcome.Content), nil
	}
}
