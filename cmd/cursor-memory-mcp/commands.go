package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeanpaul/cursor-memory-mcp/internal/config"
	"github.com/jeanpaul/cursor-memory-mcp/internal/logging"
	"github.com/jeanpaul/cursor-memory-mcp/internal/mcpserver"
	"github.com/jeanpaul/cursor-memory-mcp/internal/tools"
	"github.com/jeanpaul/cursor-memory-mcp/pkg/version"
)

// app carries state shared by all subcommands once setup has run.
type app struct {
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
	level      *slog.LevelVar
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "cursor-memory-mcp",
		Short: "MCP server that records task summaries as Cursor rule files",
		Long: `cursor-memory-mcp speaks the Model Context Protocol on stdin/stdout and
exposes a single tool, create_cursor_memory, which writes a task summary to
<project>/.cursor/rules/<task_name>.mdc.

Run without a subcommand to serve.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.runServe,
	}
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "",
		"config file (default ./config.yaml or ~/.config/cursor-memory-mcp/config.yaml)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdio (default)",
		Args:  cobra.NoArgs,
		RunE:  a.runServe,
	}

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the registered tools and their input schemas as JSON",
		Args:  cobra.NoArgs,
		RunE:  a.runTools,
	}

	callCmd := &cobra.Command{
		Use:   "call <tool> [json-arguments]",
		Short: "Invoke a tool once and print its payload; arguments are read from stdin when omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  a.runCall,
	}

	var force bool
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default config.yaml",
		Args:  cobra.MaximumNArgs(1),
		// The file may not exist or be valid yet.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			if err := config.Save(config.DefaultConfig(), path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	configInitCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)

	versionCmd := &cobra.Command{
		Use:               "version",
		Short:             "Print version",
		Args:              cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cursor-memory-mcp %s\n", version.String())
		},
	}

	rootCmd.AddCommand(serveCmd, toolsCmd, callCmd, configCmd, versionCmd)
	return rootCmd
}

// setup loads configuration and builds the logger. Logs go to stderr only.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	logger, level, err := logging.New(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}
	a.cfg, a.logger, a.level = cfg, logger, level
	slog.SetDefault(logger)
	if f := cfg.File(); f != "" {
		logger.Debug("configuration loaded", "file", f)
	}
	return nil
}

func (a *app) runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.Watch {
		a.cfg.OnChange(func(c *config.Config, err error) {
			if err != nil {
				a.logger.Warn("ignoring config change", "error", err)
				return
			}
			if err := logging.Apply(a.level, c.Log); err != nil {
				a.logger.Warn("ignoring config change", "error", err)
				return
			}
			a.logger.Info("config reloaded", "log_level", c.Log.Level)
		})
	}

	reg := tools.NewDefaultRegistry(a.logger)
	s, err := mcpserver.New(reg, mcpserver.Options{
		Name:         a.cfg.Server.Name,
		Version:      version.Version,
		Instructions: a.cfg.Server.Instructions,
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}

	a.logger.Info("starting", "name", a.cfg.Server.Name, "version", version.Version)
	return mcpserver.Serve(ctx, s, cmd.InOrStdin(), cmd.OutOrStdout(), a.logger)
}

type toolListing struct {
	Name        string            `json:"name"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description"`
	InputSchema map[string]any    `json:"inputSchema"`
	Annotations tools.Annotations `json:"annotations"`
}

func (a *app) runTools(cmd *cobra.Command, _ []string) error {
	reg := tools.NewDefaultRegistry(a.logger)

	var listing []toolListing
	for _, d := range reg.List() {
		listing = append(listing, toolListing{
			Name:        d.Name,
			Title:       d.Title,
			Description: d.Description,
			InputSchema: d.InputSchema,
			Annotations: d.Annotations,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(listing)
}

func (a *app) runCall(cmd *cobra.Command, args []string) error {
	name := args[0]
	var raw string
	if len(args) == 2 {
		raw = args[1]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading arguments from stdin: %w", err)
		}
		raw = string(data)
	}

	reg := tools.NewDefaultRegistry(a.logger)
	res, err := reg.Invoke(cmd.Context(), name, raw)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.Text)
	if res.IsError {
		return fmt.Errorf("%s reported an error", name)
	}
	return nil
}
