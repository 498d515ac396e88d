package main

import (
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/CTAG07/bananafilter/pkg/filters"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// cliState carries what the root command's pre-run sets up to the sub-commands.
type cliState struct {
	configPath string
	app        *App
}

// close releases whatever the pre-run opened. It is safe to call when the
// pre-run never ran or failed.
func (s *cliState) close() {
	if s.app != nil {
		s.app.Close()
		s.app = nil
	}
}

// rootCommand instantiates the root command, with all sub-commands bound.
// The returned state must be closed once the command has executed, whether
// or not it succeeded.
func rootCommand() (*cobra.Command, *cliState) {
	state := &cliState{configPath: "./config.json"}

	cmd := &cobra.Command{
		Use:          "bananafilter [command] [flags]",
		Short:        "Renders templates with the banana filters",
		Version:      fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			config, err := LoadConfig(state.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			// Diagnostics go to stderr, stdout carries rendered output.
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: parseLogLevel(config.Server.LogLevel)}))
			slog.SetDefault(logger)

			// Filters are registered into the process-wide registry exactly
			// once, before any template is parsed.
			state.app, err = NewApp(config, logger, filters.Default())
			return err
		},
	}

	cmd.PersistentFlags().StringVarP(
		&state.configPath,
		"config", "c",
		state.configPath,
		"path to the configuration file",
	)

	cmd.AddCommand(
		buildCommand(state),
		renderCommand(state),
		filtersCommand(state),
		statsCommand(state),
	)
	return cmd, state
}

func buildCommand(state *cliState) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Render every page template into the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if outDir == "" {
				outDir = state.app.config.Server.OutputDir
			}
			written, err := state.app.BuildSite(cmd.Context(), outDir)
			if err != nil {
				return err
			}
			state.app.logger.Info("Build finished", "pages", len(written), "output_dir", outDir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "output directory (defaults to the configured one)")
	return cmd
}

func renderCommand(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "render [template text]",
		Short: "Render a template string to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.Join(args, " ")
			if err := state.app.tm.ExecuteTemplateString(cmd.OutOrStdout(), content, nil); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout())
			return err
		},
	}
}

func filtersCommand(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List the registered filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, name := range state.app.registry.Names() {
				if _, err := fmt.Fprintln(out, name); err != nil {
					return err
				}
			}
			if state.app.registry.HasFallback() {
				_, err := fmt.Fprintln(out, "* (fallback)")
				return err
			}
			return nil
		},
	}
}

func statsCommand(state *cliState) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show how often each filter has been called",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec := state.app.recorder
			if rec == nil {
				return fmt.Errorf("usage recording is disabled in the configuration")
			}
			if reset {
				return rec.Reset(cmd.Context())
			}

			stats, err := rec.Stats(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "FILTER\tCALLS\tFALLBACK\tLAST CALLED")
			for _, s := range stats {
				_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", s.Name, s.Calls, s.FallbackCalls, s.LastCalled.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "delete all recorded counts")
	return cmd
}
