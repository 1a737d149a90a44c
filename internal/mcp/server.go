package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"research-reports/backend/internal/repository"
	"research-reports/backend/pkg/models"
)

// ResearchService is the research behaviour exposed as MCP tools.
type ResearchService interface {
	List(ctx context.Context) ([]*models.Research, error)
	Get(ctx context.Context, id string) (*models.Research, error)
	Create(ctx context.Context, in models.NewResearch) (*models.Research, error)
}

type Server struct {
	mcpServer *server.MCPServer
	research  ResearchService
}

func NewServer(research ResearchService, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Research Reports",
			version,
			server.WithToolCapabilities(true),
		),
		research: research,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// researchSummary is the list_researches view of a record; reports are
// fetched one at a time with get_research_report.
type researchSummary struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Query   string `json:"query"`
	Status  string `json:"status"`
	Created string `json:"created_at"`
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_researches",
			mcp.WithDescription("List research reports, newest first"),
		),
		s.handleList,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_research_report",
			mcp.WithDescription("Get the Markdown report of a research"),
			mcp.WithString("id", mcp.Required(), mcp.Description("The ID of the research")),
		),
		s.handleGetReport,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"start_research",
			mcp.WithDescription("Start a new research job"),
			mcp.WithString("query", mcp.Required(), mcp.Description("What to research")),
			mcp.WithString("depth", mcp.Description("How deep the research should go")),
			mcp.WithString("breadth", mcp.Description("How broad the research should be")),
		),
		s.handleStart,
	)
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	researches, err := s.research.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list researches: %v", err)), nil
	}

	summaries := make([]researchSummary, 0, len(researches))
	for _, r := range researches {
		summaries = append(summaries, researchSummary{
			ID:      r.ID,
			Title:   r.DisplayTitle(),
			Query:   r.Query,
			Status:  r.Status.String(),
			Created: r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	jsonBytes, _ := json.Marshal(summaries)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGetReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	id, ok := args["id"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}

	research, err := s.research.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return mcp.NewToolResultError("research not found"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get research: %v", err)), nil
	}

	if research.Result == nil {
		return mcp.NewToolResultText(models.RunningReportPlaceholder), nil
	}
	return mcp.NewToolResultText(*research.Result), nil
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcp.NewToolResultError("Missing required parameter: query"), nil
	}
	depth, _ := args["depth"].(string)
	breadth, _ := args["breadth"].(string)

	research, err := s.research.Create(ctx, models.NewResearch{
		Query:     query,
		Depth:     depth,
		Breadth:   breadth,
		Questions: []models.QuestionAnswer{},
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to start research: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(map[string]string{"id": research.ID, "status": research.Status.String()})
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
