package ignore

// DataDirName is the workspace-scoped directory holding the index database.
// It is always pruned from scans.
const DataDirName = ".localsearch"

// DefaultIncludeExtensions lists the file extensions indexed when the
// configuration does not name any.
var DefaultIncludeExtensions = []string{
	".go", ".py", ".pyi", ".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx",
	".java", ".kt", ".kts", ".rs", ".rb", ".php", ".cs", ".swift", ".scala",
	".c", ".h", ".cpp", ".cc", ".hpp", ".lua", ".sh", ".bash", ".zsh", ".ps1",
	".html", ".css", ".scss", ".vue", ".svelte",
	".json", ".yaml", ".yml", ".toml", ".xml", ".ini", ".cfg", ".conf",
	".md", ".mdx", ".rst", ".txt",
	".sql", ".proto", ".graphql", ".tf",
}

// DefaultIncludeFilenames lists extension-less files worth indexing.
var DefaultIncludeFilenames = []string{
	"Makefile", "Dockerfile", "Jenkinsfile", "Procfile", "Gemfile", "Rakefile",
	".gitignore", ".dockerignore", ".editorconfig", ".env",
}

// DefaultExcludeDirs are directory names never descended into.
var DefaultExcludeDirs = []string{
	// Version control
	".git", ".svn", ".hg",
	// Dependencies
	"node_modules", "vendor", "bower_components", ".npm", ".yarn",
	// Build output
	"dist", "build", "out", "target", "bin", "obj",
	// IDE / Editor
	".idea", ".vscode", ".vs",
	// Python
	"__pycache__", ".venv", "venv", ".mypy_cache", ".pytest_cache", ".tox",
	// Coverage and caches
	"coverage", ".nyc_output", "htmlcov", ".cache", ".parcel-cache", ".next", ".nuxt",
	DataDirName,
}

// DefaultExcludeGlobs are file globs checked against the bare name and the relative path.
var DefaultExcludeGlobs = []string{
	"*.min.js", "*.min.css", "*.map",
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "Cargo.lock", "poetry.lock", "go.sum",
	"*.log", "*.swp", "*~",
	"*.sqlite", "*.sqlite3", "*.db",
	".DS_Store",
}
