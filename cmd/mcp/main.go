package main

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/docintel/internal/adapters/mcp"
	"github.com/kirillkom/docintel/internal/bootstrap"
	"github.com/kirillkom/docintel/internal/config"
	"github.com/kirillkom/docintel/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	// stdout carries the MCP protocol.
	logger := logging.NewStderrLogger("docintel-mcp", cfg.LogLevel)

	app, err := bootstrap.New(context.Background(), cfg, bootstrap.Options{Role: bootstrap.RoleMCP, Logger: logger})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer app.Close()

	tools := mcpadapter.Tools{Analyzer: app.Analyzer, Results: app.Results, Logger: logger}
	if app.Search != nil {
		tools.Search = app.Search
	}
	if err := server.ServeStdio(mcpadapter.NewServer(tools)); err != nil {
		logger.Error("mcp_server_failed", "error", err.Error())
		os.Exit(1)
	}
}
