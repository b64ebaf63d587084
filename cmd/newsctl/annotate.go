package main

import (
	"context"
	"errors"

	"NewsPulse/internal/app"
	"NewsPulse/internal/model"
	"NewsPulse/internal/service"

	"github.com/spf13/cobra"
)

// rangeFlags annotate 与 analyze 共用的区间参数
type rangeFlags struct {
	topic  string
	start  string
	end    string
	source string
}

func (f *rangeFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.topic, "topic", "", "类别：stock/health/sports")
	cmd.Flags().StringVar(&f.start, "start", "", "开始日期 YYYY-MM-DD")
	cmd.Flags().StringVar(&f.end, "end", "", "结束日期 YYYY-MM-DD")
	cmd.Flags().StringVar(&f.source, "source", "all", "来源，all 表示全部")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
}

func (f *rangeFlags) query() (service.AggregateQuery, error) {
	topic, err := model.ParseTopic(f.topic)
	if err != nil {
		return service.AggregateQuery{}, err
	}
	q := service.AggregateQuery{
		Topic:       topic,
		RangeFilter: model.RangeFilter{StartDate: f.start, EndDate: f.end, Source: f.source},
	}
	return q, q.Validate()
}

func annotateCmd() *cobra.Command {
	var flags rangeFlags
	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "对区间内尚未分析的文章补做情绪分析",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.query()
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				if a.Annotator == nil {
					return errors.New("未配置情绪分析模型（sentiment.base_url / sentiment.model）")
				}
				report, err := a.Annotator.AnnotateRange(ctx, q.Topic, q.RangeFilter)
				if err != nil {
					return err
				}
				return printJSON(report)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}
