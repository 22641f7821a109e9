// Package config loads the localsearch configuration: defaults, then an
// optional YAML (or JSON) file, then LOCALSEARCH_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lexandro/localsearch-mcp/ignore"
	"github.com/lexandro/localsearch-mcp/indexer"
)

const (
	// FileName is looked up inside the data directory when no explicit path is given.
	FileName = "config.yaml"

	defaultDBRelPath  = ignore.DataDirName + "/data/index.db"
	defaultLogRelPath = ignore.DataDirName + "/localsearch.log"
)

// Config is the full runtime configuration.
type Config struct {
	WorkspaceRoot            string   `yaml:"workspace_root" json:"workspace_root"`
	DBPath                   string   `yaml:"db_path" json:"db_path,omitempty"`
	IncludeExt               []string `yaml:"include_ext" json:"include_ext"`
	IncludeFiles             []string `yaml:"include_files" json:"include_files"`
	ExcludeDirs              []string `yaml:"exclude_dirs" json:"exclude_dirs"`
	ExcludeGlobs             []string `yaml:"exclude_globs" json:"exclude_globs"`
	MaxFileBytes             int64    `yaml:"max_file_bytes" json:"max_file_bytes"`
	ScanIntervalSeconds      int      `yaml:"scan_interval_seconds" json:"scan_interval_seconds"`
	BatchSize                int      `yaml:"batch_size" json:"batch_size"`
	Workers                  int      `yaml:"workers" json:"workers"`
	RespectGitignore         bool     `yaml:"respect_gitignore" json:"respect_gitignore"`
	DisableFTS               bool     `yaml:"disable_fts" json:"disable_fts"`
	RescanMinIntervalSeconds int      `yaml:"rescan_min_interval_seconds" json:"rescan_min_interval_seconds"`
	HTTPAddr                 string   `yaml:"http_addr" json:"http_addr,omitempty"`
	LogLevel                 string   `yaml:"log_level" json:"log_level"`
	LogFile                  string   `yaml:"log_file" json:"log_file,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default(workspaceRoot string) *Config {
	return &Config{
		WorkspaceRoot:            workspaceRoot,
		IncludeExt:               slices.Clone(ignore.DefaultIncludeExtensions),
		IncludeFiles:             slices.Clone(ignore.DefaultIncludeFilenames),
		ExcludeDirs:              slices.Clone(ignore.DefaultExcludeDirs),
		ExcludeGlobs:             slices.Clone(ignore.DefaultExcludeGlobs),
		MaxFileBytes:             indexer.DefaultMaxFileBytes,
		ScanIntervalSeconds:      int(indexer.DefaultInterval / time.Second),
		BatchSize:                indexer.DefaultBatchSize,
		Workers:                  indexer.DefaultWorkers,
		RespectGitignore:         true,
		RescanMinIntervalSeconds: int(indexer.DefaultRescanMinInterval / time.Second),
		LogLevel:                 "info",
	}
}

// DefaultPath returns where Load looks for a config file under workspaceRoot.
func DefaultPath(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, ignore.DataDirName, FileName)
}

// Load builds the configuration for workspaceRoot. An empty path means
// DefaultPath; a missing file at the default location is not an error.
func Load(workspaceRoot string, path string) (*Config, error) {
	cfg := Default(workspaceRoot)

	explicit := path != ""
	if !explicit {
		path = DefaultPath(workspaceRoot)
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if cfg.WorkspaceRoot == "" {
		cfg.WorkspaceRoot = workspaceRoot
	}
	if abs, err := filepath.Abs(cfg.WorkspaceRoot); err == nil {
		cfg.WorkspaceRoot = abs
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies LOCALSEARCH_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LOCALSEARCH_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("LOCALSEARCH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOCALSEARCH_HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
}

// Validate returns an error describing the first invalid value.
func (c *Config) Validate() error {
	if c.WorkspaceRoot == "" {
		return errors.New("workspace_root must be set")
	}
	if c.MaxFileBytes <= 0 {
		return fmt.Errorf("max_file_bytes must be positive, got %d", c.MaxFileBytes)
	}
	if c.ScanIntervalSeconds < 1 {
		return fmt.Errorf("scan_interval_seconds must be at least 1, got %d", c.ScanIntervalSeconds)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", c.BatchSize)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.RescanMinIntervalSeconds < 0 {
		return fmt.Errorf("rescan_min_interval_seconds must be non-negative, got %d", c.RescanMinIntervalSeconds)
	}
	if len(c.IncludeExt) == 0 && len(c.IncludeFiles) == 0 {
		return errors.New("include_ext and include_files are both empty, nothing would be indexed")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.LogLevel)
	}
	return nil
}

// ResolvedDBPath returns the database location: the workspace-scoped
// default, or db_path resolved against the workspace root.
func (c *Config) ResolvedDBPath() string {
	return c.resolve(c.DBPath, defaultDBRelPath)
}

// ResolvedLogFile returns the log file location.
func (c *Config) ResolvedLogFile() string {
	return c.resolve(c.LogFile, defaultLogRelPath)
}

func (c *Config) resolve(value string, fallback string) string {
	if value == "" {
		return filepath.Join(c.WorkspaceRoot, filepath.FromSlash(fallback))
	}
	value = expandHome(value)
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(c.WorkspaceRoot, value)
}

// ScanInterval is the indexer tick period.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalSeconds) * time.Second
}

// RescanMinInterval is the minimum spacing of accepted rescan requests.
func (c *Config) RescanMinInterval() time.Duration {
	return time.Duration(c.RescanMinIntervalSeconds) * time.Second
}

// MatcherOptions returns the scanner rules for this configuration.
func (c *Config) MatcherOptions() ignore.MatcherOptions {
	return ignore.MatcherOptions{
		RootDir:           c.WorkspaceRoot,
		IncludeExtensions: c.IncludeExt,
		IncludeFilenames:  c.IncludeFiles,
		ExcludeDirs:       append(slices.Clone(c.ExcludeDirs), ignore.DataDirName),
		ExcludeGlobs:      c.ExcludeGlobs,
		RespectGitignore:  c.RespectGitignore,
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
