package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexandro/localsearch-mcp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ReadArgs defines the input parameters for the localsearch_read tool.
type ReadArgs struct {
	Path   string `json:"path" jsonschema:"Relative file path to read from the index (e.g. src/main.go)"`
	Offset int    `json:"offset,omitempty" jsonschema:"1-based line to start from"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of lines to return"`
}

// ReadHandler holds the dependencies for the read tool.
type ReadHandler struct {
	Store  *index.Store
	Logger *slog.Logger
}

// Handle processes a localsearch_read request. Content comes from the index,
// so it is already redacted.
func (h *ReadHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReadArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Path == "" {
		h.Logger.Warn("localsearch_read called with empty path")
		return errorResult("Error: path parameter is required"), nil, nil
	}

	file, ok, err := h.Store.GetFile(ctx, args.Path)
	if err != nil {
		h.Logger.Error("localsearch_read failed", "path", args.Path, "error", err)
		return errorResult(fmt.Sprintf("Read error: %v", err)), nil, nil
	}
	if !ok {
		h.Logger.Info("localsearch_read file not found", "path", args.Path)
		return errorResult(fmt.Sprintf("File not found in index: %s", args.Path)), nil, nil
	}

	h.Logger.Info("localsearch_read", "path", args.Path, "elapsed", time.Since(start))

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatFileContent(file.Path, file.Content, args.Offset, args.Limit)}},
	}, nil, nil
}
