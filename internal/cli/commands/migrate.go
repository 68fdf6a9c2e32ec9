package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkwell-dev/inkwell/internal/db/migrate"
)

func newMigrateCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long: `Apply and inspect the schema migrations compiled into the binary.

Available subcommands:
  up      - Apply all pending migrations
  down    - Roll back the last applied migration
  status  - Show applied and pending migrations`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE:  e.runMigrateUp,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		Args:  cobra.NoArgs,
		RunE:  e.runMigrateDown,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Args:  cobra.NoArgs,
		RunE:  e.runMigrateStatus,
	})

	return cmd
}

// migrator connects without wiring services; migrations must run before
// the tables they query exist
func (e *env) migrator(cmd *cobra.Command) (*migrate.Runner, func() error, error) {
	cfg, logger, err := e.load()
	if err != nil {
		return nil, nil, err
	}
	conn, err := e.openDB(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return migrate.NewRunner(conn, logger), conn.Close, nil
}

func (e *env) runMigrateUp(cmd *cobra.Command, args []string) error {
	p := e.printer(cmd)

	migrations, err := migrate.Embedded()
	if err != nil {
		return err
	}
	runner, closeDB, err := e.migrator(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	applied, err := runner.MigrateUp(cmd.Context(), migrations)
	if err != nil {
		return fmt.Errorf("migration failed after %d applied: %w", applied, err)
	}
	if applied == 0 {
		p.Info("No pending migrations")
		return nil
	}
	p.Success("Applied %d migration(s)", applied)
	return nil
}

func (e *env) runMigrateDown(cmd *cobra.Command, args []string) error {
	p := e.printer(cmd)

	runner, closeDB, err := e.migrator(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	m, err := runner.MigrateDown(cmd.Context())
	if err != nil {
		return err
	}
	if m == nil {
		p.Info("No migrations to roll back")
		return nil
	}
	p.Success("Rolled back %04d_%s", m.Version, m.Name)
	return nil
}

func (e *env) runMigrateStatus(cmd *cobra.Command, args []string) error {
	p := e.printer(cmd)

	migrations, err := migrate.Embedded()
	if err != nil {
		return err
	}
	runner, closeDB, err := e.migrator(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	status, err := runner.Status(cmd.Context(), migrations)
	if err != nil {
		return err
	}

	p.Header("Migration Status")
	applied := make(map[int64]string, len(status.Applied))
	for _, m := range status.Applied {
		applied[m.Version] = m.AppliedAt.Format("2006-01-02 15:04:05")
	}
	t := p.Table("Version", "Name", "Status", "Applied at")
	for _, m := range migrations {
		at, ok := applied[m.Version]
		state := "pending"
		if ok {
			state = "applied"
		}
		t.AddRow(fmt.Sprintf("%04d", m.Version), m.Name, state, at)
	}
	t.Render()
	fmt.Fprintln(p.Writer(), status.Summary())
	return nil
}
