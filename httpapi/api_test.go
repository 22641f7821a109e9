package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexandro/localsearch-mcp/config"
	"github.com/lexandro/localsearch-mcp/index"
	"github.com/lexandro/localsearch-mcp/indexer"
	"github.com/lexandro/localsearch-mcp/search"
	"github.com/lexandro/localsearch-mcp/tools"
)

func newTestAPI(t *testing.T, accept bool) *API {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := index.Open(context.Background(), index.Options{
		Path:   filepath.Join(t.TempDir(), "index.db"),
		Logger: logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.UpsertFiles(context.Background(), []index.IndexedFile{
		{Path: "api/handler.go", Repo: "api", Mtime: 10, Size: 31, Content: "package api\nfunc Handle() {}\n"},
		{Path: "docs/handler.md", Repo: "docs", Mtime: 10, Size: 18, Content: "# Handler notes\n"},
	})
	require.NoError(t, err)

	return &API{
		Engine:    search.NewEngine(store, logger),
		Store:     store,
		Status:    indexer.NewStatus(),
		Config:    config.Default(t.TempDir()),
		StartTime: time.Now(),
		DoRescan:  func() bool { return accept },
		Logger:    logger,
	}
}

func do(t *testing.T, api *API, method string, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var payload T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func Test_API_SearchRequiresQuery(t *testing.T) {
	rec := do(t, newTestAPI(t, true), http.MethodGet, "/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_API_SearchFiltersByFileType(t *testing.T) {
	rec := do(t, newTestAPI(t, true), http.MethodGet, "/search?q=handle&file_types=go")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	response := decode[tools.SearchResponse](t, rec)
	require.Len(t, response.Hits, 1)
	assert.Equal(t, "api/handler.go", response.Hits[0].Path)
}

func Test_API_ReposReturnsCandidates(t *testing.T) {
	rec := do(t, newTestAPI(t, true), http.MethodGet, "/repos?q=handler&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)

	response := decode[tools.RepoCandidatesResponse](t, rec)
	assert.Len(t, response.Candidates, 1)
	assert.Equal(t, tools.HintCandidates, response.Hint)
}

func Test_API_FilesListsByRepo(t *testing.T) {
	rec := do(t, newTestAPI(t, true), http.MethodGet, "/files?repo=docs")
	require.Equal(t, http.StatusOK, rec.Code)

	result := decode[index.ListResult](t, rec)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, "docs/handler.md", result.Files[0].Path)
	assert.Len(t, result.Repos, 2)
}

func Test_API_ReadNotFound(t *testing.T) {
	rec := do(t, newTestAPI(t, true), http.MethodGet, "/read?path=missing.go")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_API_StatusReportsIndexedTotal(t *testing.T) {
	rec := do(t, newTestAPI(t, true), http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	status := decode[tools.StatusResponse](t, rec)
	assert.Equal(t, 2, status.IndexedTotal)
	assert.False(t, status.ReadOnly)
}

func Test_API_RescanAcceptedAndThrottled(t *testing.T) {
	assert.Equal(t, http.StatusAccepted, do(t, newTestAPI(t, true), http.MethodPost, "/rescan").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, newTestAPI(t, false), http.MethodPost, "/rescan").Code)
}

func Test_API_RescanRejectsGet(t *testing.T) {
	rec := do(t, newTestAPI(t, true), http.MethodGet, "/rescan")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func Test_API_ListParam(t *testing.T) {
	assert.Equal(t, []string{"go", "md", "py"}, listParam([]string{"go, md", "py", ""}))
	assert.Nil(t, listParam(nil))
}
