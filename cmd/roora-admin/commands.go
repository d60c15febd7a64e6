package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"roora/internal/auth"
	"roora/internal/cli"
	"roora/internal/config"
	"roora/internal/core"
	"roora/internal/log"
	"roora/internal/storage"
	"roora/internal/worker"
)

// env is what every subcommand needs. Admin commands skip the server's
// validation since they never issue sessions.
type env struct {
	cfg    *config.Config
	logger *log.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := log.Setup(cfg.LogFormat, cfg.LogLevel, log.ComponentAdmin)
	return &env{cfg: cfg, logger: logger}, nil
}

func (e *env) openRepo() (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(e.cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", e.cfg.SQLiteDBPath, err)
	}
	return repo, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "roora-admin",
		Short:        "Maintenance commands for the roora wedding planner",
		SilenceUsage: true,
	}
	root.AddCommand(
		newMigrateCmd(),
		newCreateUserCmd(),
		newExportBudgetCmd(),
		newScanOverdueCmd(),
		newSheetsAuthCmd(),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			repo, err := e.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			version, dirty, err := storage.SchemaVersion(storage.DSN(e.cfg.SQLiteDBPath))
			if err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}
}

func newCreateUserCmd() *cobra.Command {
	var email, name, password string
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Register a user account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			repo, err := e.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			user, err := auth.NewPasswordAuthenticator(repo).Register(cmd.Context(), email, name, password)
			if err != nil {
				return err
			}
			e.logger.InfoContext(cmd.Context(), "User created", log.FieldUserID, user.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s <%s>\n", user.ID, user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the email's local part)")
	cmd.Flags().StringVar(&password, "password", "", "password, at least 8 characters")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newExportBudgetCmd() *cobra.Command {
	var coupleID string
	cmd := &cobra.Command{
		Use:   "export-budget",
		Short: "Export a couple's budget sheet, or print it when Sheets is not configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			repo, err := e.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			ctx := cmd.Context()
			if !e.cfg.SheetsEnabled() {
				sheet, err := worker.NewChangeWorker(repo, nil, nil, e.logger).BuildSheet(ctx, coupleID)
				if err != nil {
					return notFound(err, "couple", coupleID)
				}
				return sheet.WriteTSV(cmd.OutOrStdout())
			}

			exporter, err := cli.InitExporter(ctx, e.logger, e.cfg)
			if err != nil {
				return err
			}
			ref, err := worker.NewChangeWorker(repo, exporter, nil, e.logger).ExportBudget(ctx, coupleID)
			if err != nil {
				return notFound(err, "couple", coupleID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", ref)
			return nil
		},
	}
	cmd.Flags().StringVar(&coupleID, "couple", "", "couple id")
	_ = cmd.MarkFlagRequired("couple")
	return cmd
}

func newScanOverdueCmd() *cobra.Command {
	var record bool
	cmd := &cobra.Command{
		Use:   "scan-overdue",
		Short: "List open tasks and unpaid quotes past their due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			repo, err := e.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			ctx := cmd.Context()
			report, err := repo.ScanOverdue(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			printOverdue(cmd, report)

			if !record {
				return nil
			}
			added, err := worker.NewChangeWorker(repo, nil, nil, e.logger).RecordOverdue(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %d new activity entries\n", added)
			return nil
		},
	}
	cmd.Flags().BoolVar(&record, "record", false, "also add overdue entries to each couple's activity feed")
	return cmd
}

func printOverdue(cmd *cobra.Command, report storage.OverdueReport) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tCOUPLE\tITEM\tDUE\tDETAIL")
	for _, t := range report.Tasks {
		fmt.Fprintf(w, "task\t%s\t%s\t%s\t%s\n", t.CoupleID, t.Title, t.DueDate.Format(core.DateLayout), t.EventName)
	}
	for _, q := range report.Quotes {
		fmt.Fprintf(w, "quote\t%s\t%s\t%s\t%s outstanding\n", q.CoupleID, q.SupplierName,
			q.DueDate.Format(core.DateLayout), core.FormatCurrency(q.Outstanding, q.Currency))
	}
	_ = w.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "%d overdue tasks, %d overdue quotes\n", len(report.Tasks), len(report.Quotes))
}

func notFound(err error, what, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s %s not found", what, id)
	}
	return err
}
