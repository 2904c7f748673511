// Package mcp exposes the stage gateway as MCP tools over stdio so agent
// clients can query and mutate stage records.
package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/gamestages/internal/gateway"
	"github.com/louisbranch/gamestages/internal/storage"
)

const (
	serverName    = "gamestages"
	serverVersion = "0.1.0"
)

// Server hosts the stage MCP server.
type Server struct {
	mcpServer *mcp.Server
}

// New creates an MCP server with every stage tool registered against the
// gateway and known-stage registry. The journal tool is registered only when
// a reader is provided.
func New(gw *gateway.Gateway, known *storage.KnownStages, journal JournalReader) *Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	mcp.AddTool(server, CheckTool(), CheckHandler(gw, known))
	mcp.AddTool(server, AddTool(), AddHandler(gw, known))
	mcp.AddTool(server, RemoveTool(), RemoveHandler(gw, known))
	mcp.AddTool(server, ClearTool(), ClearHandler(gw))
	mcp.AddTool(server, AnyOfTool(), AnyOfHandler(gw))
	mcp.AddTool(server, AllOfTool(), AllOfHandler(gw))
	mcp.AddTool(server, ListTool(), ListHandler(gw))
	mcp.AddTool(server, KnownStagesTool(), KnownStagesHandler(known))
	if journal != nil {
		mcp.AddTool(server, JournalTool(), JournalHandler(journal))
	}

	return &Server{mcpServer: server}
}

// Run serves MCP over stdio until the context is cancelled or the transport
// closes.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
