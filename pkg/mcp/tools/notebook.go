package tools

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

type projectSummary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	IsPublic    bool    `json:"is_public"`
	CreatedAt   string  `json:"created_at"`
}

type listProjectsResult struct {
	Projects []projectSummary `json:"projects"`
	Count    int              `json:"count"`
}

type analyzeReportResult struct {
	AnalysisID string `json:"analysis_id,omitempty"`
	*models.ReportCategories
}

// RegisterNotebookTools adds list_projects, get_analysis and analyze_report.
func RegisterNotebookTools(s *server.MCPServer, deps *NotebookToolDeps) {
	registerListProjectsTool(s, deps)
	registerGetAnalysisTool(s, deps)
	registerAnalyzeReportTool(s, deps)
}

func registerListProjectsTool(s *server.MCPServer, deps *NotebookToolDeps) {
	tool := mcp.NewTool(
		"list_projects",
		mcp.WithDescription("Lists the caller's notebook projects, newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		access, err := acquireToolAccess(ctx, deps, "list_projects")
		if err != nil {
			if result := AsToolAccessResult(err); result != nil {
				return result, nil
			}
			return nil, err
		}
		defer access.Cleanup()

		projects, err := deps.Projects.List(access.Ctx, access.UserID)
		if err != nil {
			if result := serviceErrorResult(err); result != nil {
				return result, nil
			}
			return nil, err
		}

		out := listProjectsResult{Projects: make([]projectSummary, 0, len(projects)), Count: len(projects)}
		for _, p := range projects {
			out.Projects = append(out.Projects, projectSummary{
				ID:          p.ID.String(),
				Name:        p.Name,
				Description: p.Description,
				IsPublic:    p.IsPublic,
				CreatedAt:   p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			})
		}
		return jsonResult(out)
	})
}

func registerGetAnalysisTool(s *server.MCPServer, deps *NotebookToolDeps) {
	tool := mcp.NewTool(
		"get_analysis",
		mcp.WithDescription("Returns one analysis with its sections in order."),
		mcp.WithString(
			"analysis_id",
			mcp.Required(),
			mcp.Description("UUID of the analysis"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		analysisID, errResult := requireUUID(req, "analysis_id")
		if errResult != nil {
			return errResult, nil
		}

		access, err := acquireToolAccess(ctx, deps, "get_analysis")
		if err != nil {
			if result := AsToolAccessResult(err); result != nil {
				return result, nil
			}
			return nil, err
		}
		defer access.Cleanup()

		detail, err := deps.Analyses.Get(access.Ctx, analysisID)
		if err != nil {
			if result := serviceErrorResult(err); result != nil {
				return result, nil
			}
			return nil, err
		}
		return jsonResult(detail)
	})
}

func registerAnalyzeReportTool(s *server.MCPServer, deps *NotebookToolDeps) {
	tool := mcp.NewTool(
		"analyze_report",
		mcp.WithDescription(
			"Categorizes radiology report text into explicit findings, implied concerns and hedging language. "+
				"Pass report_text directly, or analysis_id to analyze the text of that analysis's sections.",
		),
		mcp.WithString("report_text", mcp.Description("Report text, 10 to 50,000 characters")),
		mcp.WithString("analysis_id", mcp.Description("UUID of an analysis whose sections form the report")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text := req.GetString("report_text", "")
		rawAnalysisID := strings.TrimSpace(req.GetString("analysis_id", ""))
		if (text == "") == (rawAnalysisID == "") {
			return NewErrorResult("invalid_parameters", "provide exactly one of report_text or analysis_id"), nil
		}

		access, err := acquireToolAccess(ctx, deps, "analyze_report")
		if err != nil {
			if result := AsToolAccessResult(err); result != nil {
				return result, nil
			}
			return nil, err
		}
		defer access.Cleanup()

		out := analyzeReportResult{}
		if rawAnalysisID != "" {
			analysisID, err := uuid.Parse(rawAnalysisID)
			if err != nil {
				return NewErrorResult("invalid_parameters", "analysis_id must be a UUID"), nil
			}
			detail, err := deps.Analyses.Get(access.Ctx, analysisID)
			if err != nil {
				if result := serviceErrorResult(err); result != nil {
					return result, nil
				}
				return nil, err
			}
			text = models.ReportText(detail.Sections)
			out.AnalysisID = analysisID.String()
		}

		categories, err := deps.ReportAnalysis.Analyze(access.Ctx, text)
		if err != nil {
			if result := serviceErrorResult(err); result != nil {
				return result, nil
			}
			deps.Logger.Error("analyze_report failed",
				zap.String("user_id", access.UserID.String()),
				zap.Error(err))
			return NewErrorResult("analysis_failed", "AI analysis failed"), nil
		}

		out.ReportCategories = categories
		return jsonResult(out)
	})
}

// requireUUID reads a required UUID argument, returning an error result
// when it is missing or malformed.
func requireUUID(req mcp.CallToolRequest, name string) (uuid.UUID, *mcp.CallToolResult) {
	raw, err := req.RequireString(name)
	if err != nil || strings.TrimSpace(raw) == "" {
		return uuid.Nil, NewErrorResult("invalid_parameters", name+" is required")
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, NewErrorResult("invalid_parameters", name+" must be a UUID")
	}
	return id, nil
}
