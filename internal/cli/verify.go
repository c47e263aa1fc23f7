package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eleven-am/taskboard/internal/app"
	"github.com/eleven-am/taskboard/internal/migrator"
	"github.com/eleven-am/taskboard/internal/orm"
)

var verifyProjects []string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the database schema and board invariants",
	Long: `Verify that the live database schema contains every table, column and
index the engine expects, and optionally that the lanes of the given
projects hold dense positions.

Returns a non-zero exit code when differences are found.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringSliceVar(&verifyProjects, "project", nil, "Project ids whose lane positions are checked")
}

func runVerify(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		out := cmd.OutOrStdout()
		dialect, err := orm.ParseDialect(currentConfig().Database.Driver)
		if err != nil {
			return err
		}

		fmt.Fprintln(out, "Verifying database schema...")
		drift, err := migrator.Inspect(ctx, a.DB, dialect)
		if err != nil {
			return fmt.Errorf("failed to inspect database: %w", err)
		}
		failed := false
		if drift.Empty() {
			fmt.Fprintln(out, "Schema matches")
		} else {
			failed = true
			fmt.Fprintln(out, drift.String())
		}

		for _, projectID := range verifyProjects {
			violations, err := a.Board.VerifyProject(ctx, projectID)
			if err != nil {
				return err
			}
			if len(violations) == 0 {
				fmt.Fprintf(out, "Project %s: lanes are dense\n", projectID)
				continue
			}
			failed = true
			for _, v := range violations {
				fmt.Fprintf(out, "Project %s: status %s: %s\n", projectID, v.StatusID, v.Detail)
			}
		}

		if failed {
			return fmt.Errorf("verification failed")
		}
		return nil
	})
}
