package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"NewsPulse/internal/model"
	"NewsPulse/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// AggregateQuery 一次聚合查询的条件
type AggregateQuery struct {
	Topic model.Topic
	model.RangeFilter
}

// Validate 日期必须是 YYYY-MM-DD 且 start <= end
func (q AggregateQuery) Validate() error {
	if _, err := model.ParseTopic(string(q.Topic)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	start, err := time.Parse(model.DateLayout, q.StartDate)
	if err != nil {
		return fmt.Errorf("%w: startDate=%q", ErrInvalidQuery, q.StartDate)
	}
	end, err := time.Parse(model.DateLayout, q.EndDate)
	if err != nil {
		return fmt.Errorf("%w: endDate=%q", ErrInvalidQuery, q.EndDate)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: startDate 晚于 endDate", ErrInvalidQuery)
	}
	return nil
}

// AggregationService 跨实例、跨文章表的情绪聚合。
// id 只在实例内唯一，全程使用 NewsRef{实例, id}。
type AggregationService struct {
	instances   []repository.Instance
	batchSize   int
	concurrency int
	logger      *logrus.Logger
}

func NewAggregationService(instances []repository.Instance, batchSize, concurrency int, logger *logrus.Logger) *AggregationService {
	if batchSize <= 0 {
		batchSize = 5000
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &AggregationService{
		instances:   instances,
		batchSize:   batchSize,
		concurrency: concurrency,
		logger:      logger,
	}
}

// CollectMatchingIDs 扫描每个实例的两张文章表，按 id 分页直到空页。
// 某张表分页出错只放弃该表剩余部分，已取到的 id 保留。
func (s *AggregationService) CollectMatchingIDs(ctx context.Context, q AggregateQuery) ([]model.NewsRef, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		set = make(map[model.NewsRef]struct{})
		sem = make(chan struct{}, s.concurrency)
	)
	for _, ins := range s.instances {
		for _, variant := range model.Variants {
			ins, variant := ins, variant
			wg.Add(1)
			go func() {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				ids := s.scanTable(ctx, ins, q, variant)
				mu.Lock()
				for _, id := range ids {
					set[model.NewsRef{Instance: ins.ID, ID: id}] = struct{}{}
				}
				mu.Unlock()
			}()
		}
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	refs := make([]model.NewsRef, 0, len(set))
	for ref := range set {
		refs = append(refs, ref)
	}
	model.SortRefs(refs)
	s.logger.WithFields(logrus.Fields{
		"topic": q.Topic, "start": q.StartDate, "end": q.EndDate, "source": q.Source, "matched": len(refs),
	}).Info("匹配文章收集完成")
	return refs, nil
}

func (s *AggregationService) scanTable(ctx context.Context, ins repository.Instance, q AggregateQuery, variant model.Variant) []int64 {
	var out []int64
	for offset := 0; ; offset += s.batchSize {
		if ctx.Err() != nil {
			return out
		}
		ids, err := ins.Articles.PageIDs(ctx, q.Topic, variant, q.RangeFilter, offset, s.batchSize)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"instance": ins.ID, "table": q.Topic.ArticleTable(variant), "offset": offset,
			}).Error("分页读取失败，放弃该表剩余部分")
			return out
		}
		if len(ids) == 0 {
			return out
		}
		out = append(out, ids...)
	}
}

// groupByInstance 按实例拆分并分批
func (s *AggregationService) groupByInstance(refs []model.NewsRef) map[model.InstanceID][][]int64 {
	ids := make(map[model.InstanceID][]int64)
	for _, ref := range refs {
		ids[ref.Instance] = append(ids[ref.Instance], ref.ID)
	}
	out := make(map[model.InstanceID][][]int64, len(ids))
	for inst, list := range ids {
		for start := 0; start < len(list); start += s.batchSize {
			end := start + s.batchSize
			if end > len(list) {
				end = len(list)
			}
			out[inst] = append(out[inst], list[start:end])
		}
	}
	return out
}

// JoinSentiment 每个实例只在自己的情绪表里查；单批失败跳过该批
func (s *AggregationService) JoinSentiment(ctx context.Context, topic model.Topic, refs []model.NewsRef) []model.AnnotatedRef {
	seen := make(map[model.NewsRef]struct{}, len(refs))
	out := make([]model.AnnotatedRef, 0, len(refs))
	groups := s.groupByInstance(refs)
	for _, ins := range s.instances {
		for _, batch := range groups[ins.ID] {
			rows, err := ins.Sentiments.ListByNewsIDs(ctx, topic, batch)
			if err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"instance": ins.ID, "table": topic.SentimentTable(), "batch": len(batch),
				}).Error("批量读取情绪结果失败，跳过该批")
				continue
			}
			for _, row := range rows {
				ref := model.NewsRef{Instance: ins.ID, ID: row.NewsID}
				if _, ok := seen[ref]; ok {
					continue
				}
				seen[ref] = struct{}{}
				out = append(out, model.AnnotatedRef{
					Ref:       ref,
					Sentiment: row.Sentiment,
					Star:      row.Star,
					Emotion:   row.Emotion,
				})
			}
		}
	}
	return out
}

// JoinDates 在两张文章表里查日期，与 JoinSentiment 对称
func (s *AggregationService) JoinDates(ctx context.Context, topic model.Topic, refs []model.NewsRef) []model.ArticleDate {
	seen := make(map[model.NewsRef]struct{}, len(refs))
	out := make([]model.ArticleDate, 0, len(refs))
	groups := s.groupByInstance(refs)
	for _, ins := range s.instances {
		batches := groups[ins.ID]
		for _, variant := range model.Variants {
			for _, batch := range batches {
				dates, err := ins.Articles.DatesByIDs(ctx, topic, variant, batch)
				if err != nil {
					s.logger.WithError(err).WithFields(logrus.Fields{
						"instance": ins.ID, "table": topic.ArticleTable(variant), "batch": len(batch),
					}).Error("批量读取文章日期失败，跳过该批")
					continue
				}
				for _, id := range batch {
					date, ok := dates[id]
					if !ok {
						continue
					}
					ref := model.NewsRef{Instance: ins.ID, ID: id}
					if _, dup := seen[ref]; dup {
						continue
					}
					seen[ref] = struct{}{}
					out = append(out, model.ArticleDate{Ref: ref, Date: date})
				}
			}
		}
	}
	return out
}

// CountAggregate 星级 1..5 每档都有；星级越界的行不计入
func CountAggregate(annotated []model.AnnotatedRef) model.Counts {
	counts := model.Counts{Stars: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	for _, a := range annotated {
		if a.Star < 1 || a.Star > 5 {
			continue
		}
		counts.Stars[a.Star]++
		switch a.Emotion {
		case model.EmotionPositive:
			counts.Emotions.Positive++
		case model.EmotionNeutral:
			counts.Emotions.Neutral++
		case model.EmotionNegative:
			counts.Emotions.Negative++
		}
	}
	return counts
}

// Timeseries 按天求 sentiment 平均值（保留 6 位小数），按日期升序。
// 没有任何可解析日期时返回 ErrNoDateInformation。
func Timeseries(annotated []model.AnnotatedRef, dates []model.ArticleDate) ([]model.DailySentiment, error) {
	dateByRef := make(map[model.NewsRef]time.Time, len(dates))
	for _, d := range dates {
		day, err := time.Parse(model.DateLayout, d.Date)
		if err != nil {
			continue
		}
		dateByRef[d.Ref] = day
	}

	type bucket struct {
		sum   decimal.Decimal
		count int
	}
	buckets := make(map[time.Time]*bucket)
	for _, a := range annotated {
		day, ok := dateByRef[a.Ref]
		if !ok {
			continue
		}
		b, ok := buckets[day]
		if !ok {
			b = &bucket{sum: decimal.Zero}
			buckets[day] = b
		}
		b.sum = b.sum.Add(decimal.NewFromFloat(a.Sentiment))
		b.count++
	}
	if len(buckets) == 0 {
		return nil, ErrNoDateInformation
	}

	out := make([]model.DailySentiment, 0, len(buckets))
	for day, b := range buckets {
		mean, _ := b.sum.Div(decimal.NewFromInt(int64(b.count))).Round(6).Float64()
		out = append(out, model.DailySentiment{Day: day, Mean: mean, Count: b.count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}
