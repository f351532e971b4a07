// Package cli implements gpsr, the command-line tool for the GPS report store:
// table administration, CSV import, SELECT/JOIN queries, and cloud sync.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"gps-report/internal/store"
)

var (
	version = "dev"
	commit  = "none"
)

const defaultDBPath = "data/gps_data.db"

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			_ = printJSON(os.Stdout, map[string]any{"error": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// globals holds the resolved persistent flags shared by every command.
type globals struct {
	db        string
	output    string
	profile   string
	remoteDir string
	verbose   bool
	stderr    io.Writer
}

func (g *globals) logger() *slog.Logger {
	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(g.stderr, &slog.HandlerOptions{Level: level}))
}

func (g *globals) store() *store.Store {
	return store.New(g.db, g.logger())
}

func (g *globals) json() bool { return g.output == "json" }

func newRootCmd() *cobra.Command {
	g := &globals{stderr: os.Stderr}

	rootCmd := &cobra.Command{
		Use:           "gpsr",
		Short:         "GPS report store CLI",
		Long:          "Command-line interface for the GPS session store: tables, CSV import, queries, and cloud sync.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			g.stderr = cmd.ErrOrStderr()

			// Config file is optional
			cfg, err := LoadUserConfig()
			if err != nil {
				cfg = newUserConfig()
			}
			p, err := cfg.ActiveProfile(g.profile)
			if err != nil {
				return err
			}

			// Apply precedence: flag > env > profile > default
			if !cmd.Flags().Changed("db") {
				if v := os.Getenv("GPSR_DB"); v != "" {
					g.db = v
				} else if p.DB != "" {
					g.db = p.DB
				}
			}
			if !cmd.Flags().Changed("output") {
				if v := os.Getenv("GPSR_OUTPUT"); v != "" {
					g.output = v
				} else if p.Output != "" {
					g.output = p.Output
				}
			}
			if p.RemoteDir != "" {
				g.remoteDir = p.RemoteDir
			}
			return validateOutputFormat(g.output)
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.db, "db", defaultDBPath, "Path to the SQLite store file")
	rootCmd.PersistentFlags().StringVarP(&g.output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVarP(&g.profile, "profile", "p", "", "Config profile to use")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(newTableCmd(g))
	rootCmd.AddCommand(newImportCmd(g))
	rootCmd.AddCommand(newSelectCmd(g))
	rootCmd.AddCommand(newJoinCmd(g))
	rootCmd.AddCommand(newSyncCmd(g))
	rootCmd.AddCommand(newConfigCmd(g))
	rootCmd.AddCommand(newVersionCmd(g))
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}
