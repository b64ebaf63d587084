package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"NewsPulse/internal/app"
	"NewsPulse/internal/service"

	"github.com/spf13/cobra"
)

func analyzeCmd() *cobra.Command {
	var (
		flags  rangeFlags
		mode   string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "统计情绪分布并导出图表",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.query()
			if err != nil {
				return err
			}
			m, err := service.ParseAnalyzeMode(mode)
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				res, err := a.Analyze.Analyze(ctx, service.AnalyzeRequest{Mode: m, Query: q})
				if err != nil {
					return err
				}
				files, err := writeCharts(outDir, q, res)
				if err != nil {
					return err
				}
				return printJSON(map[string]interface{}{
					"matched": res.Matched,
					"counts":  res.Counts,
					"series":  res.Series,
					"files":   files,
				})
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&mode, "mode", "database", "database/realtime")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "PNG 输出目录，为空则不写文件")
	return cmd
}

func writeCharts(dir string, q service.AggregateQuery, res *service.AnalyzeResult) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	charts := []struct {
		kind string
		png  []byte
	}{
		{"distribution", res.ChartPNG},
		{"timeseries", res.TimeSeriesPNG},
	}
	var files []string
	for _, c := range charts {
		if len(c.png) == 0 {
			continue
		}
		name := filepath.Join(dir, fmt.Sprintf("%s_%s_%s_%s.png", q.Topic, c.kind, q.StartDate, q.EndDate))
		if err := os.WriteFile(name, c.png, 0o644); err != nil {
			return files, fmt.Errorf("写入%s失败: %w", name, err)
		}
		files = append(files, name)
	}
	return files, nil
}
