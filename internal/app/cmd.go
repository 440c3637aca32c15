package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hitoshi/notekeeper/internal/config"
)

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。サブコマンドを省略した場合はserveとして起動する。
// SIGINTまたはSIGTERMを受信するとコマンドのcontextをキャンセルする。
func Run(w io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(w)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand はサブコマンドを登録したルートコマンドを生成する。
// wはログとコマンド出力の書き込み先。
func NewRootCommand(w io.Writer) *cobra.Command {
	serve := withConfig(w, func(cmd *cobra.Command, cfg *config.Config, _ []string) error {
		return runServe(cmd.Context(), cfg)
	})

	root := &cobra.Command{
		Use:           "notekeeper",
		Short:         "Notes API with local and Google sign-in",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          serve,
	}
	root.SetOut(w)

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the API server",
			Args:  cobra.NoArgs,
			RunE:  serve,
		},
		&cobra.Command{
			Use:   "worker",
			Short: "Run background jobs such as expired reset token cleanup",
			Args:  cobra.NoArgs,
			RunE: withConfig(w, func(cmd *cobra.Command, cfg *config.Config, _ []string) error {
				return runWorker(cmd.Context(), cfg)
			}),
		},
		newMigrateCommand(w),
		&cobra.Command{
			Use:   "promote-admin <email>",
			Short: "Grant the admin role to the user with the given email",
			Args:  cobra.ExactArgs(1),
			RunE: withConfig(w, func(cmd *cobra.Command, cfg *config.Config, args []string) error {
				return runPromoteAdmin(cmd.Context(), cmd.OutOrStdout(), cfg, args[0])
			}),
		},
		&cobra.Command{
			Use:   "generate-secret",
			Short: "Print a random secret suitable for JWT_SECRET",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return generateSecret(cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "healthcheck",
			Short: "Probe the local /health endpoint (for container health checks)",
			Args:  cobra.NoArgs,
			// フル初期化をスキップする
			RunE: func(cmd *cobra.Command, _ []string) error {
				port := os.Getenv("SERVER_PORT")
				if port == "" {
					port = defaultServerPort
				}
				return runHealthcheck(cmd.Context(), port)
			},
		},
	)

	return root
}

// newMigrateCommand はmigrateコマンドとup/down/versionサブコマンドを生成する。
// サブコマンドを省略した場合はupとして動作する。
func newMigrateCommand(w io.Writer) *cobra.Command {
	up := withConfig(w, func(_ *cobra.Command, cfg *config.Config, _ []string) error {
		return runMigrateUp(cfg)
	})

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
		Args:  cobra.NoArgs,
		RunE:  up,
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: withConfig(w, func(_ *cobra.Command, cfg *config.Config, _ []string) error {
			return runMigrateDown(cfg, steps)
		}),
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	migrate.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  up,
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: withConfig(w, func(cmd *cobra.Command, cfg *config.Config, _ []string) error {
				return runMigrateVersion(cmd.OutOrStdout(), cfg)
			}),
		},
	)
	return migrate
}

// withConfig は設定の読み込みとログ初期化を済ませてからfnを実行するRunEを返す。
func withConfig(w io.Writer, fn func(cmd *cobra.Command, cfg *config.Config, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := Init(w)
		if err != nil {
			return fmt.Errorf("initialization failed: %w", err)
		}

		slog.Info("starting command",
			slog.String("command", cmd.CommandPath()),
			slog.String("env", cfg.AppEnv),
		)
		return fn(cmd, cfg, args)
	}
}
