// Package mcp exposes the data gateway and the triage pipeline as MCP tools.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/udahub/internal/pipeline"
	"github.com/ziadkadry99/udahub/internal/specialist"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Runner runs one ticket through the pipeline.
type Runner interface {
	RunTicket(ctx context.Context, t pipeline.Ticket, threadID string, observers ...pipeline.Observer) (*pipeline.Result, error)
}

// Server wraps an MCP server that exposes the support tools.
type Server struct {
	lookups specialist.Lookups
	runner  Runner
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server. runner may be nil, in which case the
// triage_ticket tool is not registered.
func NewServer(lookups specialist.Lookups, runner Runner) *Server {
	s := &Server{
		lookups: lookups,
		runner:  runner,
	}

	s.mcp = server.NewMCPServer(
		"udahub",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(accountLookupTool, s.handleAccountLookup)
	s.mcp.AddTool(subscriptionStatusTool, s.handleSubscriptionStatus)
	s.mcp.AddTool(reservationLookupTool, s.handleReservationLookup)
	s.mcp.AddTool(retrieveKnowledgeTool, s.handleRetrieveKnowledge)
	if s.runner != nil {
		s.mcp.AddTool(triageTicketTool, s.handleTriageTicket)
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
