package server

import (
	"github.com/lexandro/localsearch-mcp/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// Handlers bundles the tool handlers registered by Setup.
type Handlers struct {
	Search         *tools.SearchHandler
	Files          *tools.FilesHandler
	RepoCandidates *tools.RepoCandidatesHandler
	Status         *tools.StatusHandler
	Rescan         *tools.RescanHandler
	Read           *tools.ReadHandler
}

// Setup creates and configures the MCP server with all tool registrations.
func Setup(handlers Handlers) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "localsearch-mcp",
			Version: Version,
		},
		&mcp.ServerOptions{
			Instructions: `This server searches a persistent local index of the workspace. The index is refreshed in the background by periodic rescans, and secrets are redacted before anything is stored.

Suggested workflow:
- Use localsearch_repo_candidates to find which top-level directory is relevant
- Use localsearch_search with the 'repo' parameter to search inside it
- Use localsearch_read to read an indexed file with line numbers
- Use localsearch_files to list indexed files by repo, type or glob
- Use localsearch_status to check whether the first scan has finished
- Use localsearch_rescan after large edits instead of waiting for the next interval`,
		},
	)

	// Register localsearch_search tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "localsearch_search",
		Description: `Search indexed file contents. Results are ranked and each hit carries a snippet with the matching line marked '>' and matches wrapped in [[ ]].

Modes:
  - Plain words: full-text ranking (falls back to substring matching if full-text search is unavailable)
  - use_regex: regular expression over file contents

Filtering:
  - repo: one top-level directory (e.g., "backend")
  - file_types: extensions (e.g., ["go", "md"])
  - path_pattern: glob on the relative path (e.g., "src/**/*.ts")
  - exclude_patterns: globs or substrings to drop
  - recency_boost: favour recently modified files`,
	}, handlers.Search.Handle)

	// Register localsearch_repo_candidates tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "localsearch_repo_candidates",
		Description: "Rank top-level directories by how many of their files match the query, with one line of evidence each. Use it to pick a 'repo' before searching.",
	}, handlers.RepoCandidates.Handle)

	// Register localsearch_files tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "localsearch_files",
		Description: `List indexed files (metadata only) with a per-repo breakdown.

Pattern examples:
  - "**/*.go" - all Go files
  - "src/**/*.ts" - TypeScript files under src/`,
	}, handlers.Files.Handle)

	// Register localsearch_read tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "localsearch_read",
		Description: `Read a file's redacted contents from the index. Returns numbered lines (format: "N: content"); use offset and limit for large files.`,
	}, handlers.Read.Handle)

	// Register localsearch_status tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "localsearch_status",
		Description: "Show indexer status: readiness, last scan counters, full-text availability, database path and effective configuration.",
	}, handlers.Status.Handle)

	// Register localsearch_rescan tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "localsearch_rescan",
		Description: "Schedule an incremental rescan now. Requests arriving faster than the configured minimum interval are declined.",
	}, handlers.Rescan.Handle)

	return mcpServer
}
