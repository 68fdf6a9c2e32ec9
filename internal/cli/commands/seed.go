package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkwell-dev/inkwell/internal/cli/ui"
	"github.com/inkwell-dev/inkwell/internal/seed"
)

func newSeedCommand(e *env) *cobra.Command {
	var opts seed.Options

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load sample data",
		Long: `Load sample groups, accounts, books, libraries, posts and follows.

Every row goes through the same validation as the API. Rows that already
exist are left alone, so seeding twice is safe.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Readers < 0 {
				return fmt.Errorf("--count must not be negative, got %d", opts.Readers)
			}
			p := e.printer(cmd)
			return e.withServices(cmd.Context(), func(a *app) error {
				s := a.services
				rep, err := seed.New(s.Accounts, s.Library, s.Blog, s.Social, a.logger).Run(cmd.Context(), opts)
				if err != nil {
					return fmt.Errorf("seeding failed: %w", err)
				}

				p.Success("Sample data loaded")
				kv := ui.NewKeyValue(p.Writer(), p.NoColor())
				kv.Add("Groups", rep.Groups)
				kv.Add("Users", rep.Users)
				kv.Add("Books", rep.Books)
				kv.Add("Libraries", rep.Libraries)
				kv.Add("Posts", rep.Posts)
				kv.Add("Follows", rep.Follows)
				kv.Render()
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&opts.Readers, "count", "n", 5, "Number of reader accounts")
	cmd.Flags().StringVar(&opts.Password, "password", seed.DefaultPassword, "Password for every seeded account")

	return cmd
}
