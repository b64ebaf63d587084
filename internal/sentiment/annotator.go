package sentiment

import (
	"context"
	"fmt"

	"NewsPulse/internal/model"
	"NewsPulse/internal/repository"

	"github.com/sirupsen/logrus"
)

// Annotation 单篇文章的情绪结果
type Annotation struct {
	Sentiment float64
	Star      int
	Emotion   model.Emotion
}

// RangeReport 即时分析的处理统计
type RangeReport struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Inserted  int `json:"inserted"`
	Failed    int `json:"failed"`
}

type Annotator struct {
	classifier Classifier
	instances  []repository.Instance
	batchSize  int
	logger     *logrus.Logger
}

func NewAnnotator(classifier Classifier, instances []repository.Instance, batchSize int, logger *logrus.Logger) *Annotator {
	if batchSize <= 0 {
		batchSize = 5000
	}
	return &Annotator{
		classifier: classifier,
		instances:  instances,
		batchSize:  batchSize,
		logger:     logger,
	}
}

// Annotate 对一段文本打分
func (a *Annotator) Annotate(ctx context.Context, text string) (Annotation, error) {
	pred, err := a.classifier.Predict(ctx, text)
	if err != nil {
		return Annotation{}, err
	}
	star, err := ParseStar(pred.Label)
	if err != nil {
		return Annotation{}, err
	}
	return Annotation{
		Sentiment: pred.Score,
		Star:      star,
		Emotion:   model.EmotionFromStar(star),
	}, nil
}

// AnnotateRange 为区间内尚未分析的文章补齐结果，结果写回文章所在实例。
// 单篇失败只计数，不中断。
func (a *Annotator) AnnotateRange(ctx context.Context, topic model.Topic, filter model.RangeFilter) (RangeReport, error) {
	var report RangeReport
	for _, ins := range a.instances {
		for _, variant := range model.Variants {
			if err := a.annotateTable(ctx, ins, topic, variant, filter, &report); err != nil {
				return report, err
			}
		}
	}
	a.logger.WithFields(logrus.Fields{
		"topic":     topic,
		"processed": report.Processed,
		"skipped":   report.Skipped,
		"inserted":  report.Inserted,
		"failed":    report.Failed,
	}).Info("即时情绪分析完成")
	return report, nil
}

func (a *Annotator) annotateTable(ctx context.Context, ins repository.Instance, topic model.Topic, variant model.Variant, filter model.RangeFilter, report *RangeReport) error {
	log := a.logger.WithFields(logrus.Fields{"instance": ins.ID, "table": topic.ArticleTable(variant)})
	for offset := 0; ; offset += a.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		articles, err := ins.Articles.PageArticles(ctx, topic, variant, filter, offset, a.batchSize)
		if err != nil {
			log.WithError(err).WithField("offset", offset).Error("分页读取文章失败，跳过该表")
			return nil
		}
		if len(articles) == 0 {
			return nil
		}
		for _, article := range articles {
			report.Processed++
			inserted, err := a.annotateOne(ctx, ins, topic, article)
			switch {
			case err != nil:
				report.Failed++
				log.WithError(err).WithField("news_id", article.ID).Warn("文章情绪分析失败")
			case inserted:
				report.Inserted++
			default:
				report.Skipped++
			}
		}
	}
}

func (a *Annotator) annotateOne(ctx context.Context, ins repository.Instance, topic model.Topic, article *model.Article) (bool, error) {
	exists, err := ins.Sentiments.Exists(ctx, topic, article.ID)
	if err != nil {
		return false, fmt.Errorf("查询已有结果失败: %w", err)
	}
	if exists {
		return false, nil
	}
	ann, err := a.Annotate(ctx, article.Content)
	if err != nil {
		return false, err
	}
	row := &model.SentimentAnnotation{
		NewsID:    article.ID,
		Sentiment: ann.Sentiment,
		Star:      ann.Star,
		Emotion:   ann.Emotion,
	}
	if err := ins.Sentiments.Insert(ctx, topic, row); err != nil {
		return false, fmt.Errorf("写入分析结果失败: %w", err)
	}
	return true, nil
}
