package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexandro/localsearch-mcp/config"
	"github.com/lexandro/localsearch-mcp/index"
	"github.com/lexandro/localsearch-mcp/indexer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatusArgs defines the input parameters for the localsearch_status tool (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Store     *index.Store
	Status    *indexer.Status
	Config    *config.Config
	StartTime time.Time
	Logger    *slog.Logger
}

// Handle processes a localsearch_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	response, err := BuildStatus(ctx, h.Store, h.Status, h.Config, h.StartTime)
	if err != nil {
		h.Logger.Error("localsearch_status failed", "error", err)
		return errorResult(fmt.Sprintf("Status error: %v", err)), nil, nil
	}

	h.Logger.Info("localsearch_status",
		"state", response.State,
		"indexed", response.IndexedTotal,
		"fts", response.FullTextEnabled,
	)
	return jsonResult(response)
}

// RescanFunc schedules a rescan and reports whether the request was accepted.
type RescanFunc func() bool

// RescanArgs defines the input parameters for the localsearch_rescan tool (none required).
type RescanArgs struct{}

// RescanHandler holds the dependencies for the rescan tool.
type RescanHandler struct {
	DoRescan RescanFunc
	Logger   *slog.Logger
}

// Handle processes a localsearch_rescan request.
func (h *RescanHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args RescanArgs) (*mcp.CallToolResult, any, error) {
	response := RequestRescan(h.DoRescan)
	h.Logger.Info("localsearch_rescan", "accepted", response.Accepted)
	return jsonResult(response)
}
