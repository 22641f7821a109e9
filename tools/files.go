package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexandro/localsearch-mcp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FilesArgs defines the input parameters for the localsearch_files tool.
type FilesArgs struct {
	Repo          string   `json:"repo,omitempty" jsonschema:"Restrict the listing to one top-level directory"`
	PathPattern   string   `json:"path_pattern,omitempty" jsonschema:"Glob pattern to match files (e.g. **/*.ts or src/**/*.go)"`
	FileTypes     []string `json:"file_types,omitempty" jsonschema:"Only list these file extensions"`
	IncludeHidden bool     `json:"include_hidden,omitempty" jsonschema:"Include files under dot-directories"`
	Limit         int      `json:"limit,omitempty" jsonschema:"Maximum number of files to return (default 100, max 500)"`
	Offset        int      `json:"offset,omitempty" jsonschema:"Number of files to skip for pagination"`
}

// ListOptions converts the arguments into store listing options.
func (a FilesArgs) ListOptions() index.ListOptions {
	return index.ListOptions{
		Repo:          a.Repo,
		PathPattern:   a.PathPattern,
		FileTypes:     a.FileTypes,
		IncludeHidden: a.IncludeHidden,
		Limit:         a.Limit,
		Offset:        a.Offset,
	}
}

// FilesHandler holds the dependencies for the files tool.
type FilesHandler struct {
	Store  *index.Store
	Logger *slog.Logger
}

// Handle processes a localsearch_files request.
func (h *FilesHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FilesArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	result, err := h.Store.ListFiles(ctx, args.ListOptions())
	if err != nil {
		h.Logger.Error("localsearch_files failed", "pattern", args.PathPattern, "error", err)
		return errorResult(fmt.Sprintf("Listing error: %v", err)), nil, nil
	}

	h.Logger.Info("localsearch_files",
		"repo", args.Repo,
		"pattern", args.PathPattern,
		"returned", result.Returned,
		"total", result.Total,
		"elapsed", time.Since(start),
	)

	return jsonResult(result)
}
