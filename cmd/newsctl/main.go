// newsctl 命令行工具：手动抓取、补做情绪分析、导出分析图表
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"NewsPulse/internal/app"
	"NewsPulse/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "newsctl",
		Short:         "NewsPulse 管理工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(ingestCmd(), annotateCmd(), analyzeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp 加载配置并组装服务，命令结束后释放连接
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
