// Package mcpserver exposes slogan generation as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/steveyegge/slogan-gen/internal/generator"
	"github.com/steveyegge/slogan-gen/internal/types"
)

// GenerateArgs are the arguments of the generate_slogan tool.
type GenerateArgs struct {
	Input    string `json:"input"`
	Model    string `json:"model,omitempty"`
	MaxTurns int    `json:"max_turns,omitempty"`
	Verbose  bool   `json:"verbose,omitempty"`
}

// TurnResult is one turn of a verbose result.
type TurnResult struct {
	Turn     int    `json:"turn" jsonschema_description:"Turn number, starting at 1"`
	Slogan   string `json:"slogan"`
	Feedback string `json:"feedback"`
	Approved bool   `json:"approved"`
}

// GenerateResult is the structured output of generate_slogan.
type GenerateResult struct {
	Slogan           string                 `json:"slogan" jsonschema_description:"Final slogan, empty when generation failed before any draft"`
	CompletionReason types.CompletionReason `json:"completion_reason" jsonschema_description:"approved, round-limit-reached or error"`
	TurnCount        int                    `json:"turn_count"`
	Model            string                 `json:"model"`
	SessionID        string                 `json:"session_id"`
	Error            string                 `json:"error,omitempty"`
	Turns            []TurnResult           `json:"turns,omitempty"`
}

// Server wraps a generator.Service as an MCP server.
type Server struct {
	svc       *generator.Service
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(svc *generator.Service, version string) *Server {
	s := &Server{
		svc:       svc,
		mcpServer: server.NewMCPServer("slogan-gen", strings.TrimSpace(version)),
	}
	s.registerTools()
	return s
}

// MCPServer exposes the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	// TOOL: generate_slogan
	generateTool := mcp.NewTool("generate_slogan",
		mcp.WithDescription("Generate a slogan through writer/reviewer iteration until the reviewer approves or the turn budget runs out."),
		mcp.WithString("input", mcp.Required(), mcp.Description("Product or topic to write a slogan for")),
		mcp.WithString("model", mcp.Description("Model name (optional, uses the configured default)")),
		mcp.WithNumber("max_turns", mcp.Description("Maximum writer/reviewer turns, 1-10 (optional)"),
			mcp.Min(types.MinRoundBudget), mcp.Max(types.MaxRoundBudget)),
		mcp.WithBoolean("verbose", mcp.Description("Include every turn in the result (optional)")),
		mcp.WithOutputSchema[GenerateResult](),
	)
	s.mcpServer.AddTool(generateTool, mcp.NewStructuredToolHandler(s.handleGenerate))

	// TOOL: list_models
	s.mcpServer.AddTool(mcp.NewTool("list_models",
		mcp.WithDescription("List the models the configured backend can serve."),
	), s.handleListModels)
}

func (s *Server) handleGenerate(ctx context.Context, _ mcp.CallToolRequest, args GenerateArgs) (GenerateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.svc.Config().GenerationTimeout())
	defer cancel()

	session, err := s.svc.Generate(ctx, generator.Request{
		Input:    args.Input,
		Model:    args.Model,
		MaxTurns: args.MaxTurns,
	})
	if err != nil {
		return GenerateResult{}, fmt.Errorf("generation failed: %w", err)
	}

	reason, _ := session.CompletionReason()
	final, _ := session.FinalArtifact()
	result := GenerateResult{
		Slogan:           final,
		CompletionReason: reason,
		TurnCount:        session.TurnCount(),
		Model:            session.Model(),
		SessionID:        session.ID(),
		Error:            session.Fault(),
	}
	if args.Verbose {
		for _, t := range session.Turns() {
			result.Turns = append(result.Turns, TurnResult{
				Turn:     t.Sequence(),
				Slogan:   t.Artifact(),
				Feedback: t.Critique(),
				Approved: t.Approved(),
			})
		}
	}
	return result, nil
}

func (s *Server) handleListModels(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	models, err := s.svc.Client().Models(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list models failed: %v", err)), nil
	}
	jsonBytes, _ := json.Marshal(map[string]any{
		"models":        models,
		"default_model": s.svc.DefaultModel(),
		"count":         len(models),
	})
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
