package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/smallbiznis/invoicenexus/internal/auth"
	"github.com/smallbiznis/invoicenexus/internal/clock"
	"github.com/smallbiznis/invoicenexus/internal/config"
	"github.com/smallbiznis/invoicenexus/internal/gateway"
	"github.com/smallbiznis/invoicenexus/internal/migration"
	"github.com/smallbiznis/invoicenexus/internal/observability"
	"github.com/smallbiznis/invoicenexus/internal/ratelimit"
	"github.com/smallbiznis/invoicenexus/internal/reconcile"
	"github.com/smallbiznis/invoicenexus/internal/render"
	"github.com/smallbiznis/invoicenexus/internal/server"
	"github.com/smallbiznis/invoicenexus/internal/workspace"
	"github.com/smallbiznis/invoicenexus/pkg/db"
)

// NewRootCommand builds the invoicenexus CLI.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "invoicenexus",
		Short:         "Employee invoicing backed by a relational store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newReconcileCommand())
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		clock.Module,
		db.Module,
		migration.Module,
	)
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				infrastructure(),
				gateway.Module,
				workspace.Module,
				auth.Module,
				ratelimit.Module,
				render.Module,
				reconcile.Module,
				reconcile.Scheduled,
				server.Module,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), fx.Options(infrastructure()), func(context.Context) error {
				return nil
			})
		},
	}
}

func newReconcileCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Scan the store for invoices whose items or employee are missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			var job *reconcile.Job
			opts := fx.Options(
				infrastructure(),
				gateway.Module,
				ratelimit.Module,
				reconcile.Module,
				fx.Populate(&job),
			)
			return runOnce(cmd.Context(), opts, func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()

				report, err := job.Run(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "abort the scan after this long")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cfg.AppName, cfg.AppVersion)
		},
	}
}

// runOnce starts the graph, runs fn and stops it again.
func runOnce(ctx context.Context, opts fx.Option, fn func(context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	app := fx.New(opts, fx.NopLogger)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, fx.DefaultTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	runErr := fn(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
