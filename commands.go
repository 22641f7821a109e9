package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/lexandro/localsearch-mcp/config"
	"github.com/lexandro/localsearch-mcp/register"
	"github.com/lexandro/localsearch-mcp/server"
	"github.com/lexandro/localsearch-mcp/tools"
)

// globalFlags are shared by every subcommand. Empty values leave the
// configuration file (or its defaults) in effect.
type globalFlags struct {
	root       string
	configPath string
	dbPath     string
	logLevel   string
	logFile    string
	httpAddr   string
	disableFTS bool
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:   "localsearch-mcp",
		Short: "Incremental local file index with full-text search over MCP",
		Long: `localsearch-mcp keeps a persistent SQLite index of a workspace, refreshed by
periodic incremental rescans, and serves ranked search over it as MCP tools.

Running it without a subcommand starts the MCP server on stdio.`,
		Version:       server.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), &flags)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.root, "root", "", "Workspace root directory (default: current working directory)")
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Config file (default: <root>/.localsearch/config.yaml)")
	cmd.PersistentFlags().StringVar(&flags.dbPath, "db-path", "", "Index database path (default: <root>/.localsearch/data/index.db)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "Log file path (default: <root>/.localsearch/localsearch.log)")
	cmd.PersistentFlags().StringVar(&flags.httpAddr, "http-addr", "", "Also serve the JSON API on this address (e.g. 127.0.0.1:8765)")
	cmd.PersistentFlags().BoolVar(&flags.disableFTS, "disable-fts", false, "Use substring search only")

	cmd.AddCommand(newServeCmd(&flags))
	cmd.AddCommand(newIndexCmd(&flags))
	cmd.AddCommand(newSearchCmd(&flags))
	cmd.AddCommand(newStatusCmd(&flags))
	cmd.AddCommand(newRegisterCmd())

	return cmd
}

// loadConfig resolves the workspace root, loads the config file and
// applies flag overrides.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	root := f.root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}

	cfg, err := config.Load(root, f.configPath)
	if err != nil {
		return nil, err
	}
	if f.dbPath != "" {
		cfg.DBPath = f.dbPath
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.logFile != "" {
		cfg.LogFile = f.logFile
	}
	if f.httpAddr != "" {
		cfg.HTTPAddr = f.httpAddr
	}
	if f.disableFTS {
		cfg.DisableFTS = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// open loads the configuration, sets up logging and opens the components.
func (f *globalFlags) open(ctx context.Context) (*app, func(), error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, closeLog := setupLogger(cfg.LogLevel, cfg.ResolvedLogFile())

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	cleanup := func() {
		if err := a.Close(); err != nil {
			logger.Error("closing index failed", "error", err)
		}
		closeLog()
	}
	return a, cleanup, nil
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the indexer and the MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
}

func runServe(ctx context.Context, flags *globalFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := flags.open(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	a.logger.Info("starting localsearch-mcp",
		"root", a.cfg.WorkspaceRoot,
		"db", a.store.Path(),
		"fts", a.store.FullTextEnabled(),
		"readOnly", a.store.ReadOnly(),
		"interval", a.cfg.ScanInterval(),
	)

	a.startIndexer(ctx)

	if a.cfg.HTTPAddr != "" {
		api := a.httpAPI()
		go func() {
			if err := api.Serve(ctx, a.cfg.HTTPAddr); err != nil {
				a.logger.Error("HTTP API error", "error", err)
			}
		}()
	}

	mcpServer := server.Setup(a.handlers())

	a.logger.Info("MCP server starting on stdio")
	if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		a.logger.Error("MCP server error", "error", err)
		return err
	}
	a.logger.Info("MCP server stopped")
	return nil
}

func newIndexCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Run one incremental scan and print its counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if a.store.ReadOnly() {
				return fmt.Errorf("index %s is locked by another process", a.store.Path())
			}
			snapshot := a.indexer.ScanOnce(cmd.Context())
			return writeJSON(cmd.OutOrStdout(), snapshot)
		},
	}
}

func newSearchCmd(flags *globalFlags) *cobra.Command {
	var args tools.SearchArgs

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Query the index and print the result as JSON",
		Example: `  localsearch-mcp search "connection pool" --repo backend
  localsearch-mcp search 'func \w+Handler' --regex --type go`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			a, cleanup, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			args.Query = strings.Join(positional, " ")
			response, err := tools.RunSearch(cmd.Context(), a.engine, args)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), response)
		},
	}

	cmd.Flags().StringVar(&args.Repo, "repo", "", "Restrict to one top-level directory")
	cmd.Flags().IntVarP(&args.Limit, "limit", "n", 0, "Maximum number of hits (default 20)")
	cmd.Flags().IntVar(&args.Offset, "offset", 0, "Hits to skip")
	cmd.Flags().IntVar(&args.SnippetLines, "snippet-lines", 0, "Snippet lines (default 5)")
	cmd.Flags().StringSliceVarP(&args.FileTypes, "type", "t", nil, "File types (repeatable)")
	cmd.Flags().StringVar(&args.PathPattern, "path", "", "Glob the relative path must match")
	cmd.Flags().StringSliceVar(&args.ExcludePatterns, "exclude", nil, "Globs or substrings to drop (repeatable)")
	cmd.Flags().BoolVar(&args.RecencyBoost, "recent", false, "Boost recently modified files")
	cmd.Flags().BoolVar(&args.UseRegex, "regex", false, "Treat the query as a regular expression")
	cmd.Flags().BoolVar(&args.CaseSensitive, "case-sensitive", false, "Case-sensitive substring and regex matching")
	cmd.Flags().StringVar(&args.TotalMode, "total", "", "Total mode: exact or approx")

	return cmd
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print index statistics and the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			response, err := tools.BuildStatus(cmd.Context(), a.store, a.indexer.Status(), a.cfg, a.startTime)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), response)
		},
	}
}

func newRegisterCmd() *cobra.Command {
	var serverName string

	cmd := &cobra.Command{
		Use:   "register <project|user> [directory] [-- server args...]",
		Short: "Add this server to an MCP client configuration",
		Long: `Add this server to .mcp.json in a project directory (default: .) or to
~/.claude.json for the current user. Arguments after -- are passed to the
server; for project scope the default is "serve --root <directory>".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			positional, serverArgs := args, []string(nil)
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				positional, serverArgs = args[:dash], args[dash:]
			}
			if len(positional) == 0 || len(positional) > 2 {
				return fmt.Errorf("expected a scope and an optional directory, got %v", positional)
			}
			scope, err := register.ParseScope(positional[0])
			if err != nil {
				return err
			}
			options := register.Options{Scope: scope, ServerName: serverName, ServerArgs: serverArgs}
			if len(positional) == 2 {
				options.Directory = positional[1]
			}

			configPath, err := register.Register(options)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered in %s\n", configPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&serverName, "name", "", "Server name in the client config (default: derived from the binary name)")
	return cmd
}

func writeJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}
