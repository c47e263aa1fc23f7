package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eleven-am/taskboard/internal/migrator"
	"github.com/eleven-am/taskboard/internal/orm"
)

var (
	createDBIfNotExists bool
	migrateStatusOnly   bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply the embedded schema migrations that have not run yet. Each
migration runs in its own transaction and is recorded in schema_migrations.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&createDBIfNotExists, "create-db", false, "Create the database if it does not exist (postgres)")
	migrateCmd.Flags().BoolVar(&migrateStatusOnly, "status", false, "Show migration status without applying anything")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	c := currentConfig()
	if c.Database.URL == "" {
		return fmt.Errorf("database connection required: use --url, %s or taskboard.yaml", databaseURLEnv)
	}
	dialect, err := orm.ParseDialect(c.Database.Driver)
	if err != nil {
		return err
	}

	if createDBIfNotExists && dialect == orm.Postgres {
		if err := migrator.EnsureDatabaseExists(ctx, c.Database.URL); err != nil {
			return err
		}
	}

	db, err := orm.NewDBConfig(dialect, c.Database.URL).Connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	m := migrator.New(db, dialect)
	out := cmd.OutOrStdout()

	if migrateStatusOnly {
		statuses, err := m.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			state := "pending"
			if s.AppliedAt != nil {
				state = "applied " + s.AppliedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(out, "%03d %-20s %s\n", s.Version, s.Name, state)
		}
		return nil
	}

	applied, err := m.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	if len(applied) == 0 {
		fmt.Fprintln(out, "Database is up to date")
		return nil
	}
	for _, name := range applied {
		fmt.Fprintf(out, "Applied %s\n", name)
	}
	return nil
}
