// Package mcpserver exposes document analysis as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/legalens/internal/model"
	"github.com/ppiankov/legalens/internal/pipeline"
)

// Tool names
const (
	ToolAnalyze = "legalens_analyze"
	ToolRisks   = "legalens_risks"
)

// Server registers legalens tools on an MCP server
type Server struct {
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
	version  string
}

// New creates the tool server around p
func New(p *pipeline.Pipeline, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{pipeline: p, logger: logger, version: version}
}

// MCPServer builds an mcp.Server with every tool registered
func (s *Server) MCPServer() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "legalens", Version: s.version}, nil)
	s.Register(srv)
	return srv
}

// Register adds the legalens tools to srv
func (s *Server) Register(srv *mcp.Server) {
	s.registerAnalyzeTool(srv)
	s.registerRisksTool(srv)
}

// RunStdio serves the tools over stdin/stdout until ctx is done
func (s *Server) RunStdio(ctx context.Context) error {
	return s.MCPServer().Run(ctx, &mcp.StdioTransport{})
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// documentArgs names a document either by path/URL or by inline text
type documentArgs struct {
	Source   string   `json:"source,omitempty"`
	Text     string   `json:"text,omitempty"`
	Features []string `json:"features,omitempty"`
}

var documentProperties = map[string]any{
	"source": map[string]any{"type": "string", "description": "File path or http(s) URL of a PDF, HTML, Markdown or text document"},
	"text":   map[string]any{"type": "string", "description": "Plain document text, used when source is empty"},
}

// --- analyze ---

func (s *Server) registerAnalyzeTool(srv *mcp.Server) {
	props := map[string]any{
		"features": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string", "enum": featureNames()},
			"description": "Report sections to compute (default: all)",
		},
	}
	for k, v := range documentProperties {
		props[k] = v
	}

	tool := &mcp.Tool{
		Name:        ToolAnalyze,
		Description: "Analyze a legal document: extractive summary, key clauses, keywords, risk terms and regulatory updates.",
		InputSchema: inputSchema(props, nil),
	}

	s.addTool(srv, tool, func(ctx context.Context, args documentArgs) (any, error) {
		return s.analyze(ctx, args)
	})
}

// --- risks ---

// risksResult is the compact risk view of a document
type risksResult struct {
	Subject string            `json:"subject"`
	Risks   []string          `json:"risks"`
	Matches []model.RiskMatch `json:"matches"`
	Profile model.RiskProfile `json:"risk_profile"`
}

func (s *Server) registerRisksTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        ToolRisks,
		Description: "List the risk terms a legal document mentions, with per-term counts and the overall risk level.",
		InputSchema: inputSchema(documentProperties, nil),
	}

	s.addTool(srv, tool, func(ctx context.Context, args documentArgs) (any, error) {
		args.Features = []string{string(model.FeatureRisks)}
		report, err := s.analyze(ctx, args)
		if err != nil {
			return nil, err
		}
		return risksResult{
			Subject: report.Subject,
			Risks:   report.Analysis.Risks,
			Matches: report.Analysis.RiskMatches,
			Profile: report.Profile,
		}, nil
	})
}

func (s *Server) analyze(ctx context.Context, args documentArgs) (*model.Report, error) {
	var features model.FeatureSet
	if len(args.Features) > 0 {
		var err error
		if features, err = model.ParseFeatures(args.Features); err != nil {
			return nil, err
		}
	}

	var (
		req pipeline.Request
		err error
	)
	switch {
	case args.Source != "":
		if req, err = s.pipeline.LoadSource(ctx, args.Source); err != nil {
			return nil, err
		}
	case args.Text != "":
		req = pipeline.Request{Source: "inline text", Subject: "inline text", Text: args.Text}
	default:
		return nil, errors.New("either source or text is required")
	}
	req.Features = features
	return s.pipeline.Analyze(ctx, req)
}

// addTool registers a handler that decodes documentArgs and returns the
// JSON-encoded result as text content. Handler errors become tool errors.
func (s *Server) addTool(srv *mcp.Server, tool *mcp.Tool, handle func(context.Context, documentArgs) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args documentArgs
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
			}
		}

		resp, err := handle(ctx, args)
		if err != nil {
			s.logger.Warn("mcp tool failed", "tool", tool.Name, "error", err)
			return toolError(err), nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			return toolError(fmt.Errorf("marshal: %w", err)), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func toolError(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}

func featureNames() []string {
	var names []string
	for _, f := range model.AllFeatures() {
		names = append(names, string(f))
	}
	return names
}
