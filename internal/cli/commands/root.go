// Package commands implements the inkwell command line: the API server,
// migrations and the administrative commands that replace the admin site.
package commands

import (
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/inkwell-dev/inkwell/internal/cli/ui"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	return newRootCommand(newEnv())
}

func newRootCommand(e *env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "inkwell",
		Short: "Inkwell library, blog and social API",
		Long: color.CyanString(`Inkwell - books, libraries, blog and social API

Inkwell serves a JSON API for a book catalog, permission-gated library
shelves, a blog with comments and tags, and a follow/like social layer.`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&e.configPath, "config", "c", "", "Config file (default ./inkwell.yaml or /etc/inkwell/inkwell.yaml)")
	rootCmd.PersistentFlags().BoolVar(&e.noColor, "no-color", false, "Disable coloured output")

	rootCmd.AddCommand(newVersionCommand(e))
	rootCmd.AddCommand(newServeCommand(e))
	rootCmd.AddCommand(newMigrateCommand(e))
	rootCmd.AddCommand(newGroupsCommand(e))
	rootCmd.AddCommand(newUsersCommand(e))
	rootCmd.AddCommand(newSeedCommand(e))
	rootCmd.AddCommand(newRoutesCommand(e))
	rootCmd.AddCommand(newCompletionCommand())

	return rootCmd
}

func newVersionCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			kv := ui.NewKeyValue(cmd.OutOrStdout(), e.noColor)
			kv.Add("Inkwell version", Version)
			kv.Add("Git commit", GitCommit)
			kv.Add("Build date", BuildDate)
			kv.Add("Go version", runtime.Version())
			kv.Render()
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
