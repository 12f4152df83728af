// Package mcpserver exposes code analysis, documentation generation and
// scoring as MCP tools so agents can call them directly.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"k8s.io/klog/v2"

	"github.com/helmcode/codescribe/pkg/generator"
	"github.com/helmcode/codescribe/pkg/model"
	apiserver "github.com/helmcode/codescribe/pkg/server"
)

// Tools lists the registered tool names.
var Tools = []string{"analyze_code", "generate_documentation", "score_documentation"}

// Server wraps an MCP server around the documentation pipeline.
type Server struct {
	mcpServer *server.MCPServer
	svc       apiserver.Service
}

func New(svc apiserver.Service, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer("codescribe", version, server.WithToolCapabilities(false)),
		svc:       svc,
	}

	s.mcpServer.AddTool(mcp.NewTool("analyze_code",
		mcp.WithDescription("Analyze source code: functions, classes, exports, imports, cyclomatic complexity and maintainability index."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Source code to analyze")),
		mcp.WithString("language", mcp.Description("Language of the code (detected when omitted)")),
		mcp.WithString("filename", mcp.Description("File name used for language detection")),
	), s.handleAnalyze)

	s.mcpServer.AddTool(mcp.NewTool("generate_documentation",
		mcp.WithDescription("Generate documentation for source code and grade its quality."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Source code to document")),
		mcp.WithString("doc_type", mcp.Description("Documentation type (default: README)"),
			mcp.Enum(docTypeNames(svc)...)),
		mcp.WithString("language", mcp.Description("Language of the code (detected when omitted)")),
		mcp.WithString("filename", mcp.Description("File name used for language detection")),
		mcp.WithString("provider", mcp.Description("Override the provider: claude, openai or gemini")),
		mcp.WithString("model", mcp.Description("Override the model")),
		mcp.WithNumber("temperature", mcp.Description("Override the sampling temperature, 0 to 1")),
	), s.handleGenerate)

	s.mcpServer.AddTool(mcp.NewTool("score_documentation",
		mcp.WithDescription("Grade documentation against the quality rubric. Pass the code to measure API coverage."),
		mcp.WithString("documentation", mcp.Required(), mcp.Description("Documentation text to grade")),
		mcp.WithString("code", mcp.Description("Source code the documentation describes")),
		mcp.WithString("language", mcp.Description("Language of the code")),
	), s.handleScore)

	return s
}

// ServeStdio serves the tools over stdin and stdout until the client
// disconnects.
func (s *Server) ServeStdio() error {
	klog.V(1).InfoS("Serving MCP over stdio", "tools", Tools)
	return server.ServeStdio(s.mcpServer)
}

func docTypeNames(svc apiserver.Service) []string {
	infos := svc.DocTypes()
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return names
}

func (s *Server) handleAnalyze(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	code, _ := args["code"].(string)
	language, _ := args["language"].(string)
	filename, _ := args["filename"].(string)

	a, err := s.svc.Analyze(code, language, filename)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(a)
}

func (s *Server) handleGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	code, _ := args["code"].(string)
	opts := generator.Options{}
	opts.DocType, _ = args["doc_type"].(string)
	opts.Language, _ = args["language"].(string)
	opts.Filename, _ = args["filename"].(string)
	opts.Overrides.Provider, _ = args["provider"].(string)
	opts.Overrides.Model, _ = args["model"].(string)
	if t, ok := args["temperature"].(float64); ok {
		opts.Overrides.Temperature = &t
	}

	res, err := s.svc.GenerateDocumentation(ctx, code, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) handleScore(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	doc, _ := args["documentation"].(string)
	code, _ := args["code"].(string)
	language, _ := args["language"].(string)

	var analysis model.Analysis
	if code != "" {
		a, err := s.svc.Analyze(code, language, "")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		analysis = a
	}
	return jsonResult(s.svc.Score(doc, analysis))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
