package tools

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lexandro/localsearch-mcp/config"
	"github.com/lexandro/localsearch-mcp/index"
	"github.com/lexandro/localsearch-mcp/indexer"
	"github.com/lexandro/localsearch-mcp/language"
	"github.com/lexandro/localsearch-mcp/search"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, files map[string]string) *index.Store {
	t.Helper()
	store, err := index.Open(context.Background(), index.Options{
		Path:   filepath.Join(t.TempDir(), "index.db"),
		Logger: testLogger(),
	})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	var rows []index.IndexedFile
	for path, content := range files {
		rows = append(rows, index.IndexedFile{
			Path:    path,
			Repo:    language.RepoOf(path),
			Mtime:   time.Now().Unix(),
			Size:    int64(len(content)),
			Content: content,
		})
	}
	if len(rows) > 0 {
		if _, err := store.UpsertFiles(context.Background(), rows); err != nil {
			t.Fatalf("failed to seed store: %v", err)
		}
	}
	return store
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("expected content in result")
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return text.Text
}

func decodeResult[T any](t *testing.T, result *mcp.CallToolResult) T {
	t.Helper()
	var payload T
	if err := json.Unmarshal([]byte(resultText(t, result)), &payload); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	return payload
}

// --- search ---

func Test_SearchHandler_EmptyQuery(t *testing.T) {
	store := newTestStore(t, nil)
	handler := &SearchHandler{Engine: search.NewEngine(store, testLogger()), Logger: testLogger()}

	result, _, err := handler.Handle(context.Background(), nil, SearchArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError for empty query")
	}
	if !strings.Contains(resultText(t, result), "query parameter is required") {
		t.Errorf("unexpected message: %s", resultText(t, result))
	}
}

func Test_SearchHandler_ReturnsHits(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"repo1/src/utils.py": "def util():\n    return 1\n",
		"repo2/main.go":      "package main\n",
	})
	handler := &SearchHandler{Engine: search.NewEngine(store, testLogger()), Logger: testLogger()}

	result, _, err := handler.Handle(context.Background(), nil, SearchArgs{Query: "util"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}

	response := decodeResult[SearchResponse](t, result)
	if len(response.Hits) != 1 || response.Hits[0].Path != "repo1/src/utils.py" {
		t.Fatalf("expected one hit in utils.py, got %+v", response.Hits)
	}
	if response.Hits[0].Repo != "repo1" {
		t.Errorf("expected repo repo1, got %s", response.Hits[0].Repo)
	}
	if response.Limit != search.DefaultLimit {
		t.Errorf("expected default limit %d, got %d", search.DefaultLimit, response.Limit)
	}
	if len(response.Hints) != 0 {
		t.Errorf("expected no hints when there are hits, got %v", response.Hints)
	}
}

func Test_RunSearch_ZeroResultHints(t *testing.T) {
	store := newTestStore(t, map[string]string{"repo1/a.go": "package a\n"})
	engine := search.NewEngine(store, testLogger())

	response, err := RunSearch(context.Background(), engine, SearchArgs{Query: "nothingmatches"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(response.Hints) != 1 || response.Hints[0] != HintBroaden {
		t.Errorf("expected only the broaden hint, got %v", response.Hints)
	}

	response, err = RunSearch(context.Background(), engine, SearchArgs{Query: "nothingmatches", FileTypes: []string{"py"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(response.Hints) != 2 || response.Hints[0] != HintRemoveFilters {
		t.Errorf("expected filter hint first, got %v", response.Hints)
	}
}

func Test_RunSearch_InvalidRegexReportsError(t *testing.T) {
	store := newTestStore(t, map[string]string{"repo1/a.go": "package a\n"})
	engine := search.NewEngine(store, testLogger())

	response, err := RunSearch(context.Background(), engine, SearchArgs{Query: "(unclosed", UseRegex: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.RegexError == "" {
		t.Error("expected regex_error to be set")
	}
	if len(response.Hits) != 0 {
		t.Errorf("expected no hits, got %d", len(response.Hits))
	}
	if len(response.Hints) == 0 || response.Hints[0] != HintRegex {
		t.Errorf("expected regex hint first, got %v", response.Hints)
	}
}

func Test_RunSearch_RoundsScores(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"repo1/a.md": "alpha beta gamma alpha\n",
		"repo1/b.md": "alpha\n",
	})
	engine := search.NewEngine(store, testLogger())

	response, err := RunSearch(context.Background(), engine, SearchArgs{Query: "alpha"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, hit := range response.Hits {
		scaled := hit.Score * 1000
		if math.Abs(scaled-math.Round(scaled)) > 1e-6 {
			t.Errorf("expected score rounded to 3 decimals, got %v", hit.Score)
		}
	}
}

func Test_DescribeFilters(t *testing.T) {
	filters := describeFilters(search.Options{Repo: "repo1", PathPattern: "src/**", RecencyBoost: true})
	want := []string{"repo=repo1", "path_pattern=src/**", "recency_boost=true"}
	if strings.Join(filters, ",") != strings.Join(want, ",") {
		t.Errorf("describeFilters = %v, want %v", filters, want)
	}
}

// --- repo candidates ---

func Test_CandidateReason(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		expected string
	}{
		{"High", 12, "High match (12 files contain 'auth')"},
		{"Moderate", 5, "Moderate match (5 files)"},
		{"Low", 2, "Low match (2 files)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := candidateReason(tt.score, "auth")
			if got != tt.expected {
				t.Errorf("candidateReason(%v) = %q, want %q", tt.score, got, tt.expected)
			}
		})
	}
}

func Test_RepoCandidatesHandler_RanksRepos(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"auth/login.go":  "func login() { token() }\n",
		"auth/logout.go": "func logout() { token() }\n",
		"web/index.html": "<p>token</p>\n",
		"docs/guide.md":  "nothing here\n",
	})
	handler := &RepoCandidatesHandler{Engine: search.NewEngine(store, testLogger()), Logger: testLogger()}

	result, _, err := handler.Handle(context.Background(), nil, RepoCandidatesArgs{Query: "token"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	response := decodeResult[RepoCandidatesResponse](t, result)
	if len(response.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %+v", response.Candidates)
	}
	if response.Candidates[0].Repo != "auth" {
		t.Errorf("expected auth first, got %s", response.Candidates[0].Repo)
	}
	if response.Candidates[0].Reason != "Low match (2 files)" {
		t.Errorf("unexpected reason: %s", response.Candidates[0].Reason)
	}
	if response.Hint != HintCandidates {
		t.Errorf("unexpected hint: %s", response.Hint)
	}
}

// --- files ---

func Test_FilesHandler_ListsMetadata(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"repo1/a.go":         "package a\n",
		"repo1/b.py":         "print(1)\n",
		"repo2/.hidden/c.go": "package c\n",
	})
	handler := &FilesHandler{Store: store, Logger: testLogger()}

	result, _, err := handler.Handle(context.Background(), nil, FilesArgs{FileTypes: []string{"go"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	listing := decodeResult[index.ListResult](t, result)
	if listing.Total != 1 || listing.Files[0].Path != "repo1/a.go" {
		t.Errorf("expected only repo1/a.go, got %+v", listing.Files)
	}
	if strings.Contains(resultText(t, result), "package a") {
		t.Error("listing must not include file content")
	}
}

// --- read ---

func Test_ReadHandler_NotFound(t *testing.T) {
	handler := &ReadHandler{Store: newTestStore(t, nil), Logger: testLogger()}

	result, _, err := handler.Handle(context.Background(), nil, ReadArgs{Path: "missing.go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError for missing file")
	}
	if !strings.Contains(resultText(t, result), "File not found in index: missing.go") {
		t.Errorf("unexpected message: %s", resultText(t, result))
	}
}

func Test_ReadHandler_ReturnsNumberedLines(t *testing.T) {
	store := newTestStore(t, map[string]string{"repo1/a.go": "package a\n\nfunc A() {}\n"})
	handler := &ReadHandler{Store: store, Logger: testLogger()}

	result, _, err := handler.Handle(context.Background(), nil, ReadArgs{Path: "repo1/a.go", Offset: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := resultText(t, result)
	if !strings.Contains(got, "3: func A() {}") {
		t.Errorf("expected line 3, got:\n%s", got)
	}
	if strings.Contains(got, "1: package a") {
		t.Errorf("expected offset to skip line 1, got:\n%s", got)
	}
}

// --- status and rescan ---

func Test_StatusHandler_ReportsStoreAndConfig(t *testing.T) {
	store := newTestStore(t, map[string]string{"repo1/a.go": "package a\n"})
	cfg := config.Default("/workspace")
	handler := &StatusHandler{
		Store:     store,
		Status:    indexer.NewStatus(),
		Config:    cfg,
		StartTime: time.Now().Add(-90 * time.Second),
		Logger:    testLogger(),
	}

	result, _, err := handler.Handle(context.Background(), nil, StatusArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	status := decodeResult[StatusResponse](t, result)
	if status.IndexedTotal != 1 {
		t.Errorf("expected 1 indexed file, got %d", status.IndexedTotal)
	}
	if !status.FullTextEnabled {
		t.Error("expected full-text search to be enabled")
	}
	if status.Ready {
		t.Error("expected not ready before the first scan")
	}
	if status.Config.WorkspaceRoot != "/workspace" {
		t.Errorf("unexpected workspace root: %s", status.Config.WorkspaceRoot)
	}
	if status.Uptime != "1m30s" {
		t.Errorf("expected uptime 1m30s, got %s", status.Uptime)
	}
}

func Test_RescanHandler_ForwardsDecision(t *testing.T) {
	calls := 0
	accept := true
	handler := &RescanHandler{
		DoRescan: func() bool {
			calls++
			return accept
		},
		Logger: testLogger(),
	}

	result, _, _ := handler.Handle(context.Background(), nil, RescanArgs{})
	if response := decodeResult[RescanResponse](t, result); !response.Accepted {
		t.Error("expected rescan to be accepted")
	}

	accept = false
	result, _, _ = handler.Handle(context.Background(), nil, RescanArgs{})
	if response := decodeResult[RescanResponse](t, result); response.Accepted {
		t.Error("expected rescan to be throttled")
	}
	if calls != 2 {
		t.Errorf("expected 2 rescan calls, got %d", calls)
	}
}
