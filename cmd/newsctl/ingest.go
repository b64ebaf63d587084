package main

import (
	"context"
	"encoding/json"
	"os"

	"NewsPulse/internal/app"

	"github.com/spf13/cobra"
)

var (
	ingestCompany string
	ingestTopic   string
	ingestPages   int
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "按来源和类别抓取新闻入库",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				run, stats, err := a.Ingest.Run(ctx, ingestCompany, ingestTopic, ingestPages)
				if err != nil {
					return err
				}
				return printJSON(map[string]interface{}{"run_uuid": run.RunUUID, "stats": stats})
			})
		},
	}
	cmd.Flags().StringVar(&ingestCompany, "company", "", "来源：chinatimes/liberty/tvbs/api/rss")
	cmd.Flags().StringVar(&ingestTopic, "topic", "", "类别：stock/health/sports")
	cmd.Flags().IntVar(&ingestPages, "pages", 1, "抓取页数")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
