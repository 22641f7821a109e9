// Package language classifies indexed files by extension.
package language

import (
	"path"
	"strings"
)

// RootRepo is the repo group of files that sit directly in the workspace root.
const RootRepo = "__root__"

// FileType returns the lower-cased extension of p without the dot,
// or "" when the file has none ("Makefile", ".gitignore").
func FileType(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	idx := strings.LastIndexByte(base, '.')
	if idx <= 0 || idx == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[idx+1:])
}

// NormalizeFileType turns user input like ".PY", " py" or "py" into "py".
func NormalizeFileType(fileType string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(fileType), "."))
}

// NormalizeFileTypes normalizes a filter list, dropping empty entries.
func NormalizeFileTypes(fileTypes []string) []string {
	out := make([]string, 0, len(fileTypes))
	for _, ft := range fileTypes {
		if n := NormalizeFileType(ft); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// RepoOf returns the repo group of a workspace-relative path: its first
// segment, or RootRepo for top-level files.
func RepoOf(relativePath string) string {
	relativePath = strings.TrimPrefix(strings.ReplaceAll(relativePath, "\\", "/"), "/")
	idx := strings.IndexByte(relativePath, '/')
	if idx <= 0 {
		return RootRepo
	}
	return relativePath[:idx]
}

// IsHidden reports whether any segment of the path starts with a dot.
func IsHidden(relativePath string) bool {
	for _, segment := range strings.Split(relativePath, "/") {
		if len(segment) > 1 && segment[0] == '.' {
			return true
		}
	}
	return false
}

var languageByType = map[string]string{
	"go": "Go",
	"py": "Python", "pyi": "Python",
	"js": "JavaScript", "jsx": "JavaScript", "mjs": "JavaScript", "cjs": "JavaScript",
	"ts": "TypeScript", "tsx": "TypeScript",
	"rs": "Rust", "java": "Java", "kt": "Kotlin", "rb": "Ruby", "php": "PHP",
	"c": "C", "h": "C", "cpp": "C++", "cc": "C++", "hpp": "C++", "cs": "C#",
	"swift": "Swift", "scala": "Scala", "lua": "Lua",
	"sh": "Shell", "bash": "Shell", "zsh": "Shell", "ps1": "PowerShell",
	"html": "HTML", "css": "CSS", "scss": "SCSS", "vue": "Vue", "svelte": "Svelte",
	"json": "JSON", "yaml": "YAML", "yml": "YAML", "toml": "TOML", "xml": "XML", "ini": "INI",
	"md": "Markdown", "mdx": "Markdown", "rst": "reStructuredText", "txt": "Text",
	"sql": "SQL", "proto": "Protobuf", "graphql": "GraphQL", "tf": "Terraform",
}

// Detect returns a display language for p, "Unknown" when not recognised.
func Detect(p string) string {
	if lang, ok := languageByType[FileType(p)]; ok {
		return lang
	}
	switch strings.ToLower(path.Base(p)) {
	case "makefile", "gnumakefile":
		return "Makefile"
	case "dockerfile":
		return "Dockerfile"
	}
	return "Unknown"
}
