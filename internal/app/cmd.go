package app

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// defaultServerAddress はSERVER_ADDRESS未設定時の待ち受けアドレス。
const defaultServerAddress = "0.0.0.0:8000"

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。サブコマンドを省略した場合はserveとして起動する。
// SIGINTまたはSIGTERMを受信するとserve/workerは終了処理に入る。
func Run(w io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(w)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand はaiclubのルートコマンドを生成する。
func NewRootCommand(w io.Writer) *cobra.Command {
	serve := func(cmd *cobra.Command, _ []string) error {
		cfg, err := Init(w)
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg)
	}

	root := &cobra.Command{
		Use:           "aiclub",
		Short:         "Club membership API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          serve,
	}
	root.SetOut(w)
	root.SetErr(w)

	root.AddCommand(
		&cobra.Command{
			Use:   string(CommandServe),
			Short: "Start the HTTP API server",
			Args:  cobra.NoArgs,
			RunE:  serve,
		},
		&cobra.Command{
			Use:   string(CommandWorker),
			Short: "Run scheduled background jobs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := Init(w)
				if err != nil {
					return err
				}
				return runWorker(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   string(CommandMigrate),
			Short: "Apply pending database migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := Init(w)
				if err != nil {
					return err
				}
				return runMigrate(cfg)
			},
		},
		&cobra.Command{
			Use:   string(CommandHealthcheck),
			Short: "Probe the local /health endpoint",
			Args:  cobra.NoArgs,
			// 軽量サブコマンドのため設定の完全な読み込みは行わない
			RunE: func(cmd *cobra.Command, _ []string) error {
				addr := os.Getenv("SERVER_ADDRESS")
				if addr == "" {
					addr = defaultServerAddress
				}
				return runHealthcheck(cmd.Context(), addr)
			},
		},
	)
	return root
}
