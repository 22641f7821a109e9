package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexandro/localsearch-mcp/ignore"
	"github.com/lexandro/localsearch-mcp/index"
	"github.com/lexandro/localsearch-mcp/language"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, disableFullText bool, files ...index.IndexedFile) (*Engine, *index.Store) {
	t.Helper()
	store, err := index.Open(context.Background(), index.Options{
		Path:            filepath.Join(t.TempDir(), "index.db"),
		DisableFullText: disableFullText,
		Logger:          testLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	if len(files) > 0 {
		_, err = store.UpsertFiles(context.Background(), files)
		require.NoError(t, err)
	}
	return NewEngine(store, testLogger()), store
}

func file(path string, content string) index.IndexedFile {
	return index.IndexedFile{
		Path:    path,
		Repo:    language.RepoOf(path),
		Mtime:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).Unix(),
		Size:    int64(len(content)),
		Content: content,
	}
}

func hitPaths(hits []Hit) []string {
	paths := make([]string, len(hits))
	for i, h := range hits {
		paths[i] = h.Path
	}
	return paths
}

func stripHighlights(s string) string {
	return strings.NewReplacer(highlightOpen, "", highlightClose, "").Replace(s)
}

func Test_Engine_Search_FileTypeFilterSelectsPythonFile(t *testing.T) {
	engine, _ := newTestEngine(t, false,
		file("repo1/src/utils.py", "def util(): pass\n"),
		file("repo1/src/helper.rb", "def helper; end\n"),
	)

	hits, meta, err := engine.Search(context.Background(), Options{Query: "def", FileTypes: []string{"py"}})
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, "repo1/src/utils.py", hits[0].Path)
	assert.Equal(t, "repo1", hits[0].Repo)
	assert.Equal(t, "py", hits[0].FileType)
	assert.Contains(t, stripHighlights(hits[0].Snippet), "def util(): pass")
	assert.Equal(t, "> 1: [[def]] util(): pass", hits[0].Snippet)
	assert.False(t, meta.FallbackUsed)
	assert.Equal(t, 1, meta.Total)
}

func Test_Engine_Search_NoMatches(t *testing.T) {
	for _, disableFullText := range []bool{false, true} {
		t.Run(fmt.Sprintf("degraded=%v", disableFullText), func(t *testing.T) {
			engine, _ := newTestEngine(t, disableFullText, file("repo1/a.py", "def util(): pass\n"))

			hits, meta, err := engine.Search(context.Background(), Options{Query: "zzzznotthere"})
			require.NoError(t, err)

			assert.Empty(t, hits)
			assert.NotNil(t, hits)
			assert.Zero(t, meta.Total)
			assert.Equal(t, disableFullText, meta.FallbackUsed)
		})
	}
}

func Test_Engine_Search_EmptyQuery(t *testing.T) {
	engine, _ := newTestEngine(t, true, file("repo1/a.py", "def util(): pass\n"))

	hits, meta, err := engine.Search(context.Background(), Options{Query: "   "})
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.False(t, meta.FallbackUsed)
	assert.Zero(t, meta.TotalScanned)
}

func Test_Engine_Search_PagesDoNotOverlap(t *testing.T) {
	engine, _ := newTestEngine(t, false,
		file("repo1/a.py", "def a(): pass\n"),
		file("repo1/b.py", "def b(): pass\n"),
	)
	ctx := context.Background()

	first, _, err := engine.Search(ctx, Options{Query: "def", Limit: 1, Offset: 0})
	require.NoError(t, err)
	second, _, err := engine.Search(ctx, Options{Query: "def", Limit: 1, Offset: 1})
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].Path, second[0].Path)
	assert.ElementsMatch(t, []string{"repo1/a.py", "repo1/b.py"}, []string{first[0].Path, second[0].Path})
}

func Test_Engine_Search_PaginationCoversAllResults(t *testing.T) {
	var files []index.IndexedFile
	for i := 0; i < 7; i++ {
		files = append(files, file(fmt.Sprintf("repo%d/file%d.go", i%3, i), strings.Repeat("needle ", i+1)))
	}

	for _, disableFullText := range []bool{false, true} {
		t.Run(fmt.Sprintf("degraded=%v", disableFullText), func(t *testing.T) {
			engine, _ := newTestEngine(t, disableFullText, files...)
			ctx := context.Background()

			seen := map[string]bool{}
			total := -1
			for offset := 0; offset < 9; offset += 3 {
				hits, meta, err := engine.Search(ctx, Options{Query: "needle", Limit: 3, Offset: offset, TotalMode: TotalExact})
				require.NoError(t, err)
				if total < 0 {
					total = meta.Total
				}
				for _, h := range hits {
					assert.False(t, seen[h.Path], "duplicate %s", h.Path)
					seen[h.Path] = true
				}
			}
			assert.Equal(t, 7, total)
			assert.Len(t, seen, 7)
		})
	}
}

func Test_Engine_Search_InvalidRegex(t *testing.T) {
	engine, _ := newTestEngine(t, false, file("repo1/a.py", "def util(): pass\n"))

	hits, meta, err := engine.Search(context.Background(), Options{Query: "(", UseRegex: true})
	require.NoError(t, err)

	assert.Empty(t, hits)
	assert.True(t, meta.RegexMode)
	assert.NotEmpty(t, meta.RegexError)
}

func Test_Engine_Search_ExcludedFileTypeNeverReturned(t *testing.T) {
	files := []index.IndexedFile{
		file("repo1/a.py", "shared token\n"),
		file("repo1/b.go", "shared token\n"),
	}
	for _, options := range []Options{
		{Query: "shared", FileTypes: []string{"go"}},
		{Query: "shared", FileTypes: []string{".GO"}, UseRegex: true},
	} {
		engine, _ := newTestEngine(t, false, files...)
		hits, _, err := engine.Search(context.Background(), options)
		require.NoError(t, err)
		assert.Equal(t, []string{"repo1/b.go"}, hitPaths(hits))
	}
}

func Test_Engine_Search_FilterConjunctionAcrossModes(t *testing.T) {
	files := []index.IndexedFile{
		file("svc/src/handler.go", "token handler\n"),
		file("svc/src/handler_test.go", "token test\n"),
		file("svc/docs/guide.md", "token docs\n"),
		file("svc/src/util.py", "token util\n"),
		file("lib/src/client.go", "token client\n"),
		file("lib/vendor/dep.go", "token vendored\n"),
	}
	options := Options{
		Query:           "token",
		FileTypes:       []string{"go"},
		PathPattern:     "src/*.go",
		ExcludePatterns: []string{"*_test.go", "vendor"},
	}

	modes := []struct {
		name            string
		disableFullText bool
		useRegex        bool
	}{
		{"fulltext", false, false},
		{"substring", true, false},
		{"regex", false, true},
	}
	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			engine, _ := newTestEngine(t, mode.disableFullText, files...)
			opts := options
			opts.UseRegex = mode.useRegex

			hits, _, err := engine.Search(context.Background(), opts)
			require.NoError(t, err)

			assert.ElementsMatch(t, []string{"svc/src/handler.go", "lib/src/client.go"}, hitPaths(hits))
			for _, h := range hits {
				assert.Equal(t, "go", h.FileType)
				assert.True(t, ignore.MatchPath(opts.PathPattern, h.Path))
				for _, exclude := range opts.ExcludePatterns {
					assert.False(t, ignore.MatchesExclude(exclude, h.Path))
				}
			}
		})
	}
}

func Test_Engine_Search_FullTextSyntaxErrorFallsBack(t *testing.T) {
	engine, _ := newTestEngine(t, false, file("repo1/a.py", "def util(): pass\n"))

	hits, meta, err := engine.Search(context.Background(), Options{Query: `"def`})
	require.NoError(t, err)

	assert.True(t, meta.FallbackUsed)
	assert.Equal(t, []string{"repo1/a.py"}, hitPaths(hits))
	assert.Equal(t, "substring", hits[0].Reason)
}

func Test_Engine_Search_RegexScoresByMatchCount(t *testing.T) {
	engine, _ := newTestEngine(t, false,
		file("repo1/one.go", "err := f()\n"),
		file("repo1/three.go", "err := f()\nerr = g()\nreturn err\n"),
		file("repo1/none.go", "package none\n"),
	)

	hits, meta, err := engine.Search(context.Background(), Options{Query: `\berr\b`, UseRegex: true})
	require.NoError(t, err)

	assert.True(t, meta.RegexMode)
	assert.Equal(t, 3, meta.TotalScanned)
	assert.Equal(t, []string{"repo1/three.go", "repo1/one.go"}, hitPaths(hits))
	assert.Equal(t, 3, hits[0].MatchCount)
	assert.Equal(t, 3.0, hits[0].Score)
	assert.Equal(t, "regex", hits[0].Reason)
}

func Test_Engine_Search_RegexCaseSensitivity(t *testing.T) {
	engine, _ := newTestEngine(t, false, file("repo1/a.go", "const MaxSize = 1\n"))
	ctx := context.Background()

	insensitive, _, err := engine.Search(ctx, Options{Query: "maxsize", UseRegex: true})
	require.NoError(t, err)
	sensitive, _, err := engine.Search(ctx, Options{Query: "maxsize", UseRegex: true, CaseSensitive: true})
	require.NoError(t, err)

	assert.Len(t, insensitive, 1)
	assert.Empty(t, sensitive)
}

func Test_Engine_Search_RecencyBoost(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	old := file("repo1/a_old.go", "needle\n")
	recent := file("repo1/b_recent.go", "needle\n")
	recent.Mtime = now.Add(-2 * time.Hour).Unix()

	engine, _ := newTestEngine(t, true, old, recent)
	engine.now = func() time.Time { return now }

	plain, _, err := engine.Search(context.Background(), Options{Query: "needle"})
	require.NoError(t, err)
	assert.Equal(t, []string{"repo1/a_old.go", "repo1/b_recent.go"}, hitPaths(plain))
	assert.Zero(t, plain[0].Score)

	boosted, _, err := engine.Search(context.Background(), Options{Query: "needle", RecencyBoost: true})
	require.NoError(t, err)
	require.Len(t, boosted, 2)
	assert.Equal(t, "repo1/b_recent.go", boosted[0].Path)
	assert.Equal(t, 1.5, boosted[0].Score)
	assert.Equal(t, "substring+recent", boosted[0].Reason)
	assert.Equal(t, 1.0, boosted[1].Score)
}

func Test_Engine_Search_RecencyBoostedPagesDoNotOverlap(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var files []index.IndexedFile
	for i := 0; i < 10; i++ {
		f := file(fmt.Sprintf("repo1/f%02d.txt", i), "needle\n")
		if i == 7 {
			f.Mtime = now.Add(-time.Hour).Unix()
		}
		files = append(files, f)
	}

	for _, disableFullText := range []bool{false, true} {
		t.Run(fmt.Sprintf("degraded=%v", disableFullText), func(t *testing.T) {
			engine, _ := newTestEngine(t, disableFullText, files...)
			engine.now = func() time.Time { return now }
			ctx := context.Background()

			var paths []string
			for offset := 0; offset < 10; offset++ {
				hits, _, err := engine.Search(ctx, Options{Query: "needle", Limit: 1, Offset: offset, RecencyBoost: true})
				require.NoError(t, err)
				require.Len(t, hits, 1, "offset %d", offset)
				paths = append(paths, hits[0].Path)
			}

			assert.Equal(t, "repo1/f07.txt", paths[0])
			seen := map[string]bool{}
			for _, p := range paths {
				assert.False(t, seen[p], "duplicate %s", p)
				seen[p] = true
			}
			assert.Len(t, seen, 10)
		})
	}
}

func Test_Engine_Search_TotalModes(t *testing.T) {
	var files []index.IndexedFile
	for i := 0; i < 30; i++ {
		files = append(files, file(fmt.Sprintf("repo1/f%02d.txt", i), "needle\n"))
	}
	engine, _ := newTestEngine(t, false, files...)
	ctx := context.Background()

	_, approx, err := engine.Search(ctx, Options{Query: "needle", Limit: 5})
	require.NoError(t, err)
	_, exact, err := engine.Search(ctx, Options{Query: "needle", Limit: 5, TotalMode: TotalExact})
	require.NoError(t, err)

	assert.Equal(t, TotalApprox, approx.TotalMode)
	assert.Equal(t, 5, approx.Total)
	assert.Equal(t, 5, approx.TotalScanned)
	assert.Equal(t, TotalExact, exact.TotalMode)
	assert.Equal(t, 30, exact.Total)
}

func Test_Engine_Search_RepoFilter(t *testing.T) {
	engine, _ := newTestEngine(t, false,
		file("repo1/a.go", "needle\n"),
		file("repo2/b.go", "needle\n"),
	)

	hits, _, err := engine.Search(context.Background(), Options{Query: "needle", Repo: "repo2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"repo2/b.go"}, hitPaths(hits))
}

type failingReader struct {
	Reader
	fullTextErr  error
	substringErr error
}

func (r failingReader) FullTextEnabled() bool { return true }

func (r failingReader) FullTextQuery(context.Context, string, string, int) ([]index.ScoredFile, error) {
	return nil, r.fullTextErr
}

func (r failingReader) SubstringQuery(ctx context.Context, options index.SubstringOptions) ([]index.ScoredFile, error) {
	if r.substringErr != nil {
		return nil, r.substringErr
	}
	return r.Reader.SubstringQuery(ctx, options)
}

func Test_Engine_Search_AnyFullTextErrorFallsBack(t *testing.T) {
	_, store := newTestEngine(t, false, file("repo1/a.go", "needle\n"))
	engine := NewEngine(failingReader{Reader: store, fullTextErr: errors.New("disk I/O error")}, testLogger())

	hits, meta, err := engine.Search(context.Background(), Options{Query: "needle"})
	require.NoError(t, err)
	assert.True(t, meta.FallbackUsed)
	assert.Equal(t, []string{"repo1/a.go"}, hitPaths(hits))
}

func Test_Engine_Search_SubstringFailureIsReturned(t *testing.T) {
	_, store := newTestEngine(t, false)
	engine := NewEngine(failingReader{
		Reader:       store,
		fullTextErr:  errors.New("disk I/O error"),
		substringErr: errors.New("database is locked"),
	}, testLogger())

	_, _, err := engine.Search(context.Background(), Options{Query: "needle"})
	assert.Error(t, err)
}

func Test_Engine_RepoCandidates(t *testing.T) {
	for _, disableFullText := range []bool{false, true} {
		t.Run(fmt.Sprintf("degraded=%v", disableFullText), func(t *testing.T) {
			engine, _ := newTestEngine(t, disableFullText,
				file("billing/api/invoice.go", "package api\n// invoice totals\n"),
				file("billing/api/tax.go", "package api\nfunc invoice() {}\n"),
				file("web/pages/invoice.tsx", "export const Invoice = () => null\n"),
				file("auth/login.go", "package auth\n"),
			)

			candidates, err := engine.RepoCandidates(context.Background(), "invoice", 0)
			require.NoError(t, err)

			require.Len(t, candidates, 2)
			assert.Equal(t, "billing", candidates[0].Repo)
			assert.Equal(t, 2.0, candidates[0].Score)
			assert.Contains(t, candidates[0].Evidence, "billing/api/")
			assert.Equal(t, "web", candidates[1].Repo)
			assert.Equal(t, "web/pages/invoice.tsx: export const Invoice = () => null", candidates[1].Evidence)
		})
	}
}

func Test_Engine_RepoCandidates_LimitAndEmptyQuery(t *testing.T) {
	var files []index.IndexedFile
	for i := 0; i < 8; i++ {
		files = append(files, file(fmt.Sprintf("repo%d/a.go", i), "needle\n"))
	}
	engine, _ := newTestEngine(t, false, files...)

	candidates, err := engine.RepoCandidates(context.Background(), "needle", 50)
	require.NoError(t, err)
	assert.Len(t, candidates, MaxRepoCandidates)

	empty, err := engine.RepoCandidates(context.Background(), "", 3)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
