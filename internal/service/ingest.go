package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"NewsPulse/internal/adapter"
	"NewsPulse/internal/cache"
	"NewsPulse/internal/events"
	"NewsPulse/internal/interfaces"
	"NewsPulse/internal/model"
	"NewsPulse/internal/relevance"
	"NewsPulse/internal/repository"

	"github.com/sirupsen/logrus"
)

// AdapterProvider 按来源名称取适配器（SourceRegistry 实现）
type AdapterProvider interface {
	GetAdapter(name string) (interfaces.SourceAdapter, error)
}

type IngestOptions struct {
	WindowSize int
	DailyCap   int // 0 表示不限
	// RelevanceCheck 哪些来源需要调用相关性判断
	RelevanceCheck map[string]bool
}

// IngestService 抓取 → 相关性 → 每日上限 → 去重入库，所有来源共用一条流水线
type IngestService struct {
	adapters  AdapterProvider
	instance  repository.Instance
	runs      repository.IngestRunRepository
	relevance *relevance.Filter
	seen      cache.SeenCache
	publisher events.Publisher
	opts      IngestOptions
	logger    *logrus.Logger
}

func NewIngestService(
	adapters AdapterProvider,
	instance repository.Instance,
	runs repository.IngestRunRepository,
	filter *relevance.Filter,
	seen cache.SeenCache,
	publisher events.Publisher,
	opts IngestOptions,
	logger *logrus.Logger,
) *IngestService {
	if seen == nil {
		seen = cache.Noop{}
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = 3
	}
	return &IngestService{
		adapters:  adapters,
		instance:  instance,
		runs:      runs,
		relevance: filter,
		seen:      seen,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
	}
}

// Run 执行一次抓取。来源或类别非法时不创建运行记录，直接返回错误。
func (s *IngestService) Run(ctx context.Context, company, topicName string, pages int) (*model.IngestRun, model.IngestStats, error) {
	var stats model.IngestStats
	topic, err := model.ParseTopic(topicName)
	if err != nil {
		return nil, stats, err
	}
	src, err := s.adapters.GetAdapter(company)
	if err != nil {
		return nil, stats, fmt.Errorf("%w: %s", ErrUnknownCompany, company)
	}
	if pages <= 0 {
		pages = 1
	}

	run, err := s.runs.Start(ctx, company, string(topic), pages)
	if err != nil {
		return nil, stats, err
	}
	log := s.logger.WithFields(logrus.Fields{"run_uuid": run.RunUUID, "company": company, "topic": topic})
	log.WithField("pages", pages).Info("开始抓取")

	runErr := s.ingest(ctx, run, src, company, topic, pages, &stats)
	if err := s.runs.Finish(context.WithoutCancel(ctx), run, stats, runErr); err != nil {
		log.WithError(err).Error("更新运行记录失败")
	}

	fields := logrus.Fields{
		"fetched": stats.Fetched, "irrelevant": stats.Irrelevant, "capped": stats.Capped,
		"duplicates": stats.Duplicates, "inserted": stats.Inserted, "failed": stats.Failed,
	}
	if runErr != nil {
		log.WithError(runErr).WithFields(fields).Error("抓取失败")
		return run, stats, runErr
	}
	log.WithFields(fields).Info("抓取完成")
	return run, stats, nil
}

func (s *IngestService) ingest(ctx context.Context, run *model.IngestRun, src interfaces.SourceAdapter, company string, topic model.Topic, pages int, stats *model.IngestStats) error {
	keywords, err := s.instance.Keywords.ListCategories(ctx, topic)
	if err != nil {
		return fmt.Errorf("读取关键字失败: %w", err)
	}
	if len(keywords) == 0 {
		s.logger.WithField("topic", topic).Warn("关键字表为空，无需抓取")
		return nil
	}

	var relRun *relevance.Run
	if s.opts.RelevanceCheck[company] && s.relevance != nil {
		relRun = s.relevance.NewRun()
	}
	variant := src.Variant()

	for _, window := range adapter.Windows(pages, s.opts.WindowSize) {
		for _, kw := range keywords {
			if err := ctx.Err(); err != nil {
				return err
			}
			raws, err := src.FetchArticles(ctx, kw.DisplayName, window[0], window[1])
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				s.logger.WithError(err).WithFields(logrus.Fields{
					"keyword": kw.DisplayName, "start_page": window[0], "end_page": window[1],
				}).Warn("抓取失败，跳过该关键字")
				continue
			}
			for _, raw := range raws {
				s.store(ctx, run, company, topic, variant, kw, raw, relRun, stats)
			}
		}
	}
	if relRun != nil && relRun.Mode() == relevance.ModeFallback {
		s.logger.WithField("run_uuid", run.RunUUID).Warn("本次抓取的相关性判断已降级为关键字匹配")
	}
	return nil
}

func (s *IngestService) store(
	ctx context.Context,
	run *model.IngestRun,
	company string,
	topic model.Topic,
	variant model.Variant,
	kw *model.KeywordCategory,
	raw *model.RawArticle,
	relRun *relevance.Run,
	stats *model.IngestStats,
) {
	stats.Fetched++
	raw.Normalize()
	log := s.logger.WithFields(logrus.Fields{"keyword": kw.DisplayName, "title": raw.Title, "date": raw.Date})

	if relRun != nil && !relRun.Check(ctx, topic, kw.DisplayName, raw.Title, raw.Content) {
		stats.Irrelevant++
		log.Debug("与类别无关，跳过")
		return
	}

	article := raw.ToArticle(kw.ID)
	if s.opts.DailyCap > 0 {
		n, err := s.instance.Articles.CountByCategoryDate(ctx, topic, variant, kw.ID, article.Date)
		if err != nil {
			stats.Failed++
			log.WithError(err).Warn("查询当日已入库数量失败")
			return
		}
		if n >= int64(s.opts.DailyCap) {
			stats.Capped++
			log.Debug("当日已达上限，跳过")
			return
		}
	}

	key := cache.Key(s.instance.ID, topic, variant, article)
	if seen, err := s.seen.Seen(ctx, key); err != nil {
		log.WithError(err).Debug("去重缓存不可用，直接查库")
	} else if seen {
		stats.Duplicates++
		return
	}

	inserted, err := s.instance.Articles.InsertIfAbsent(ctx, topic, variant, article)
	if err != nil {
		stats.Failed++
		log.WithError(err).Warn("文章入库失败")
		return
	}
	if err := s.seen.Mark(ctx, key); err != nil {
		log.WithError(err).Debug("写入去重缓存失败")
	}
	if !inserted {
		stats.Duplicates++
		return
	}
	stats.Inserted++

	evt := events.ArticleIngested{
		RunUUID:    run.RunUUID,
		Company:    company,
		Topic:      string(topic),
		Variant:    string(variant),
		Instance:   int(s.instance.ID),
		ArticleID:  article.ID,
		CategoryID: article.CategoryID,
		Title:      article.Title,
		Date:       article.Date,
		Source:     article.Source,
		URL:        article.URL,
		IngestedAt: time.Now(),
	}
	if err := s.publisher.PublishArticle(ctx, evt); err != nil {
		log.WithError(err).Warn("发送入库事件失败")
	}
}

func (s *IngestService) ListRuns(ctx context.Context, page, pageSize int) ([]*model.IngestRun, int64, error) {
	return s.runs.List(ctx, page, pageSize)
}

func (s *IngestService) GetRun(ctx context.Context, runUUID string) (*model.IngestRun, error) {
	return s.runs.GetByUUID(ctx, runUUID)
}
