package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_FileType(t *testing.T) {
	tests := map[string]string{
		"src/utils.py":        "py",
		"docs/INDEX.MD":       "md",
		"Makefile":            "",
		".gitignore":          "",
		"archive.tar.gz":      "gz",
		"dir.with.dots/file":  "",
		"windows\\style\\a.Go": "go",
		"trailing.":           "",
	}
	for input, want := range tests {
		assert.Equal(t, want, FileType(input), "FileType(%q)", input)
	}
}

func Test_NormalizeFileTypes(t *testing.T) {
	assert.Equal(t, []string{"py", "md", "ts"}, NormalizeFileTypes([]string{".PY", " md", "", "ts"}))
}

func Test_RepoOf(t *testing.T) {
	assert.Equal(t, "src", RepoOf("src/utils.py"))
	assert.Equal(t, "repo1", RepoOf("repo1/a/b/c.go"))
	assert.Equal(t, RootRepo, RepoOf("README.md"))
	assert.Equal(t, "pkg", RepoOf("/pkg/x.go"))
}

func Test_IsHidden(t *testing.T) {
	assert.True(t, IsHidden(".github/workflows/ci.yml"))
	assert.True(t, IsHidden("src/.env"))
	assert.False(t, IsHidden("src/main.go"))
	assert.False(t, IsHidden("./src/main.go"))
}

func Test_Detect(t *testing.T) {
	assert.Equal(t, "Go", Detect("main.go"))
	assert.Equal(t, "Python", Detect("src/utils.py"))
	assert.Equal(t, "Makefile", Detect("build/Makefile"))
	assert.Equal(t, "Unknown", Detect("data.bin"))
}
