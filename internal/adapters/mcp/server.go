// Package mcpadapter exposes the analyzer and processing results as MCP
// tools for agent clients.
package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
)

const (
	ServerName    = "docintel"
	ServerVersion = "1.0.0"
)

type resultReader interface {
	GetProcessingResult(ctx context.Context, documentID string) (*domain.DocumentProcessingResult, error)
}

// Tools holds the ports served as tools. Results and Search are optional;
// their tools are only registered when set.
type Tools struct {
	Analyzer ports.DocumentAnalyzer
	Results  resultReader
	Search   ports.DocumentSearcher
	Logger   *slog.Logger
}

func NewServer(tools Tools) *server.MCPServer {
	if tools.Logger == nil {
		tools.Logger = slog.Default()
	}
	s := server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("analyze_document",
		mcp.WithDescription("Summarize, classify and safety-assess a transit document."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Plain document text.")),
		mcp.WithString("fileName", mcp.Description("Original file name, used as a classification hint.")),
		mcp.WithString("language", mcp.Description("Document language."), mcp.Enum("en", "ml")),
	), tools.analyze)

	if tools.Results != nil {
		s.AddTool(mcp.NewTool("get_processing_result",
			mcp.WithDescription("Fetch the finished processing result of an uploaded document."),
			mcp.WithString("documentId", mcp.Required()),
		), tools.result)
	}
	if tools.Search != nil {
		s.AddTool(mcp.NewTool("search_documents",
			mcp.WithDescription("Keyword search over indexed documents."),
			mcp.WithString("query", mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum hits, default 5.")),
			mcp.WithString("category", mcp.Description("Restrict hits to one category.")),
		), tools.search)
	}
	return s
}

func (t Tools) analyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	analysis, err := t.Analyzer.Analyze(ctx, content, req.GetString("fileName", ""), domain.Language(req.GetString("language", "")))
	if err != nil {
		t.Logger.Warn("mcp_analyze_failed", "error", err.Error())
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(analysis)
}

func (t Tools) result(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("documentId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := t.Results.GetProcessingResult(ctx, id)
	if errors.Is(err, domain.ErrResultNotFound) {
		return mcp.NewToolResultError("document " + id + " has not finished processing"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (t Tools) search(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := int(req.GetFloat("limit", 5))
	hits, err := t.Search.Search(ctx, query, limit, domain.Category(req.GetString("category", "")))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(hits)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}
