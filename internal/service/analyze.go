package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"NewsPulse/internal/archive"
	"NewsPulse/internal/chart"
	"NewsPulse/internal/model"
	"NewsPulse/internal/sentiment"

	"github.com/sirupsen/logrus"
)

// AnalyzeMode database 只读已有结果；realtime 先补做情绪分析
type AnalyzeMode string

const (
	ModeDatabase AnalyzeMode = "database"
	ModeRealtime AnalyzeMode = "realtime"
)

// ParseAnalyzeMode 空值按 database 处理
func ParseAnalyzeMode(s string) (AnalyzeMode, error) {
	switch AnalyzeMode(s) {
	case "", ModeDatabase:
		return ModeDatabase, nil
	case ModeRealtime:
		return ModeRealtime, nil
	}
	return "", fmt.Errorf("%w: mode=%q", ErrInvalidQuery, s)
}

// RangeAnnotator 即时模式下对区间内文章补做情绪分析
type RangeAnnotator interface {
	AnnotateRange(ctx context.Context, topic model.Topic, filter model.RangeFilter) (sentiment.RangeReport, error)
}

type AnalyzeRequest struct {
	Mode  AnalyzeMode
	Query AggregateQuery
}

// AnalyzeResult 对外只暴露两张图；TimeSeries 为 nil 表示区间内没有可用日期
type AnalyzeResult struct {
	Chart      string  `json:"chart"`
	TimeSeries *string `json:"time_series"`

	Matched       int                    `json:"-"`
	Counts        model.Counts           `json:"-"`
	Series        []model.DailySentiment `json:"-"`
	Annotation    *sentiment.RangeReport `json:"-"`
	ChartPNG      []byte                 `json:"-"`
	TimeSeriesPNG []byte                 `json:"-"`
}

type AnalyzeService struct {
	aggregation *AggregationService
	annotator   RangeAnnotator
	archiver    archive.Archiver
	logger      *logrus.Logger
	now         func() time.Time
}

func NewAnalyzeService(aggregation *AggregationService, annotator RangeAnnotator, archiver archive.Archiver, logger *logrus.Logger) *AnalyzeService {
	if archiver == nil {
		archiver = archive.Noop{}
	}
	return &AnalyzeService{
		aggregation: aggregation,
		annotator:   annotator,
		archiver:    archiver,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *AnalyzeService) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	q := req.Query
	if err := q.Validate(); err != nil {
		return nil, err
	}
	log := s.logger.WithFields(logrus.Fields{
		"mode": req.Mode, "topic": q.Topic, "start": q.StartDate, "end": q.EndDate, "source": q.Source,
	})
	result := &AnalyzeResult{}

	switch req.Mode {
	case ModeDatabase:
	case ModeRealtime:
		if s.annotator == nil {
			return nil, errors.New("未配置情绪分析模型，无法即时分析")
		}
		report, err := s.annotator.AnnotateRange(ctx, q.Topic, q.RangeFilter)
		if err != nil {
			return nil, fmt.Errorf("即时情绪分析失败: %w", err)
		}
		result.Annotation = &report
	default:
		return nil, fmt.Errorf("%w: mode=%q", ErrInvalidQuery, req.Mode)
	}

	refs, err := s.aggregation.CollectMatchingIDs(ctx, q)
	if err != nil {
		return nil, err
	}
	result.Matched = len(refs)

	annotated := s.aggregation.JoinSentiment(ctx, q.Topic, refs)
	result.Counts = CountAggregate(annotated)
	png, err := chart.DistributionPNG(result.Counts)
	if err != nil {
		return nil, fmt.Errorf("绘制分布图失败: %w", err)
	}
	result.ChartPNG = png
	result.Chart = chart.Encode(png)
	s.archive(ctx, q, "distribution", png)

	dates := s.aggregation.JoinDates(ctx, q.Topic, refs)
	series, err := Timeseries(annotated, dates)
	switch {
	case errors.Is(err, ErrNoDateInformation):
		log.Info("没有可用日期，跳过时间序列")
	case err != nil:
		return nil, err
	default:
		png, err := chart.TimeseriesPNG(series)
		if err != nil {
			return nil, fmt.Errorf("绘制时间序列失败: %w", err)
		}
		encoded := chart.Encode(png)
		result.Series = series
		result.TimeSeriesPNG = png
		result.TimeSeries = &encoded
		s.archive(ctx, q, "timeseries", png)
	}

	log.WithFields(logrus.Fields{"matched": result.Matched, "annotated": len(annotated), "days": len(result.Series)}).Info("分析完成")
	return result, nil
}

// archive 归档失败只记日志
func (s *AnalyzeService) archive(ctx context.Context, q AggregateQuery, kind string, png []byte) {
	name := archive.ChartName(string(q.Topic), kind, q.StartDate, q.EndDate, s.now())
	location, err := s.archiver.Put(ctx, name, png)
	if err != nil {
		s.logger.WithError(err).WithField("name", name).Warn("图表归档失败")
		return
	}
	if location != "" {
		s.logger.WithField("location", location).Debug("图表已归档")
	}
}
