// Package httpapi exposes the search, listing and status operations as a
// small JSON API for callers that do not speak MCP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lexandro/localsearch-mcp/config"
	"github.com/lexandro/localsearch-mcp/index"
	"github.com/lexandro/localsearch-mcp/indexer"
	"github.com/lexandro/localsearch-mcp/search"
	"github.com/lexandro/localsearch-mcp/tools"
)

const shutdownTimeout = 5 * time.Second

// API holds the dependencies shared by the HTTP handlers.
type API struct {
	Engine    *search.Engine
	Store     *index.Store
	Status    *indexer.Status
	Config    *config.Config
	StartTime time.Time
	DoRescan  tools.RescanFunc
	Logger    *slog.Logger
}

// Router returns the API routes.
func (api *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/search", api.search())
	r.Get("/repos", api.repoCandidates())
	r.Get("/files", api.files())
	r.Get("/read", api.read())
	r.Get("/status", api.status())
	r.Post("/rescan", api.rescan())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	return r
}

// Serve listens on addr until ctx is cancelled.
func (api *API) Serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		api.Logger.Info("HTTP API listening", "addr", addr)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (api *API) search() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		args := tools.SearchArgs{
			Query:           query.Get("q"),
			Repo:            query.Get("repo"),
			Limit:           intParam(query.Get("limit")),
			Offset:          intParam(query.Get("offset")),
			SnippetLines:    intParam(query.Get("snippet_lines")),
			FileTypes:       listParam(query["file_types"]),
			PathPattern:     query.Get("path_pattern"),
			ExcludePatterns: listParam(query["exclude"]),
			RecencyBoost:    boolParam(query.Get("recency_boost")),
			UseRegex:        boolParam(query.Get("regex")),
			CaseSensitive:   boolParam(query.Get("case_sensitive")),
			TotalMode:       query.Get("total_mode"),
		}
		if strings.TrimSpace(args.Query) == "" {
			writeError(w, http.StatusBadRequest, "q parameter is required")
			return
		}

		response, err := tools.RunSearch(r.Context(), api.Engine, args)
		if err != nil {
			api.Logger.Error("HTTP search failed", "query", args.Query, "error", err)
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
		writeJSON(w, http.StatusOK, response)
	}
}

func (api *API) repoCandidates() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if strings.TrimSpace(q) == "" {
			writeError(w, http.StatusBadRequest, "q parameter is required")
			return
		}
		response, err := tools.FindRepoCandidates(r.Context(), api.Engine, q, intParam(r.URL.Query().Get("limit")))
		if err != nil {
			api.Logger.Error("HTTP repo candidates failed", "query", q, "error", err)
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
		writeJSON(w, http.StatusOK, response)
	}
}

func (api *API) files() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		args := tools.FilesArgs{
			Repo:          query.Get("repo"),
			PathPattern:   query.Get("path_pattern"),
			FileTypes:     listParam(query["file_types"]),
			IncludeHidden: boolParam(query.Get("include_hidden")),
			Limit:         intParam(query.Get("limit")),
			Offset:        intParam(query.Get("offset")),
		}
		result, err := api.Store.ListFiles(r.Context(), args.ListOptions())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (api *API) read() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" {
			writeError(w, http.StatusBadRequest, "path parameter is required")
			return
		}
		file, ok, err := api.Store.GetFile(r.Context(), path)
		if err != nil {
			api.Logger.Error("HTTP read failed", "path", path, "error", err)
			writeError(w, http.StatusInternalServerError, "read failed")
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "file not found in index: "+path)
			return
		}
		writeJSON(w, http.StatusOK, file)
	}
}

func (api *API) status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response, err := tools.BuildStatus(r.Context(), api.Store, api.Status, api.Config, api.StartTime)
		if err != nil {
			api.Logger.Error("HTTP status failed", "error", err)
			writeError(w, http.StatusInternalServerError, "status failed")
			return
		}
		writeJSON(w, http.StatusOK, response)
	}
}

func (api *API) rescan() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := tools.RequestRescan(api.DoRescan)
		code := http.StatusAccepted
		if !response.Accepted {
			code = http.StatusTooManyRequests
		}
		writeJSON(w, code, response)
	}
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

func intParam(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return n
}

func boolParam(value string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(value))
	return b
}

// listParam accepts both repeated parameters and comma-separated values.
func listParam(values []string) []string {
	var out []string
	for _, value := range values {
		for part := range strings.SplitSeq(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
