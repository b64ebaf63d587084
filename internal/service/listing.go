package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"NewsPulse/internal/adapter/chinatimes"
	"NewsPulse/internal/adapter/ltn"
	"NewsPulse/internal/adapter/tvbs"
	"NewsPulse/internal/model"
	"NewsPulse/internal/repository"

	"github.com/sirupsen/logrus"
)

// ListingQuery 原始新闻查询；空字符串表示不过滤
type ListingQuery struct {
	Topic   string `json:"topic"`
	Company string `json:"company"`
	Date    string `json:"date"`
	Emotion string `json:"emotion"`
}

// NewsRow 原始新闻及其情绪；尚未分析时 Emotion 为 nil
type NewsRow struct {
	Instance model.InstanceID `json:"instance"`
	ID       int64            `json:"id"`
	Title    string           `json:"title"`
	Date     string           `json:"date"`
	Content  string           `json:"content"`
	Source   string           `json:"source"`
	URL      string           `json:"url"`
	Emotion  *model.Emotion   `json:"emotion"`
}

// tableSelection 某个来源对应的文章表和 source 取值（空为不过滤）
type tableSelection struct {
	variant model.Variant
	source  string
}

// companyTables 站点爬取的来源都在 T_news 里按 source 区分，api 独占 T_news_API
func companyTables(company string) ([]tableSelection, error) {
	switch strings.ToLower(strings.TrimSpace(company)) {
	case chinatimes.Name:
		return []tableSelection{{model.VariantPrimary, chinatimes.SourceName}}, nil
	case ltn.Name:
		return []tableSelection{{model.VariantPrimary, ltn.SourceName}}, nil
	case tvbs.Name:
		return []tableSelection{{model.VariantPrimary, tvbs.Name}}, nil
	case "api":
		return []tableSelection{{model.VariantAPI, ""}}, nil
	case "", "all":
		return []tableSelection{{model.VariantPrimary, ""}, {model.VariantAPI, ""}}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCompany, company)
}

type ListingService struct {
	instances []repository.Instance
	batchSize int
	logger    *logrus.Logger
}

func NewListingService(instances []repository.Instance, batchSize int, logger *logrus.Logger) *ListingService {
	if batchSize <= 0 {
		batchSize = 5000
	}
	return &ListingService{instances: instances, batchSize: batchSize, logger: logger}
}

func (s *ListingService) List(ctx context.Context, q ListingQuery) ([]NewsRow, error) {
	topic, err := model.ParseTopic(q.Topic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	tables, err := companyTables(q.Company)
	if err != nil {
		return nil, err
	}
	var (
		wantEmotion model.Emotion
		filterByEmo bool
	)
	if e := strings.ToLower(strings.TrimSpace(q.Emotion)); e != "" && e != "all" {
		emo, ok := model.ParseEmotion(e)
		if !ok {
			return nil, fmt.Errorf("%w: emotion=%q", ErrInvalidQuery, q.Emotion)
		}
		wantEmotion, filterByEmo = emo, true
	}
	date := strings.TrimSpace(q.Date)

	type dedupKey struct{ date, title, source string }
	seen := make(map[dedupKey]struct{})
	var out []NewsRow

	for _, ins := range s.instances {
		var rows []*model.Article
		for _, tbl := range tables {
			list, err := ins.Articles.ListByDate(ctx, topic, tbl.variant, date, tbl.source)
			if err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"instance": ins.ID, "table": topic.ArticleTable(tbl.variant),
				}).Warn("读取新闻列表失败，跳过该表")
				continue
			}
			rows = append(rows, list...)
		}
		emotions := s.emotionsFor(ctx, ins, topic, rows)

		for _, a := range rows {
			var emo *model.Emotion
			if e, ok := emotions[a.ID]; ok {
				e := e
				emo = &e
			}
			if filterByEmo && (emo == nil || *emo != wantEmotion) {
				continue
			}
			key := dedupKey{a.Date, a.Title, a.Source}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, NewsRow{
				Instance: ins.ID,
				ID:       a.ID,
				Title:    a.Title,
				Date:     a.Date,
				Content:  a.Content,
				Source:   a.Source,
				URL:      a.URL,
				Emotion:  emo,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

// emotionsFor 只在文章所在实例的情绪表里查
func (s *ListingService) emotionsFor(ctx context.Context, ins repository.Instance, topic model.Topic, rows []*model.Article) map[int64]model.Emotion {
	out := make(map[int64]model.Emotion, len(rows))
	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		ids := make([]int64, 0, end-start)
		for _, a := range rows[start:end] {
			ids = append(ids, a.ID)
		}
		anns, err := ins.Sentiments.ListByNewsIDs(ctx, topic, ids)
		if err != nil {
			s.logger.WithError(err).WithField("instance", ins.ID).Warn("读取情绪结果失败，该批按未分析处理")
			continue
		}
		for _, ann := range anns {
			if _, ok := out[ann.NewsID]; !ok {
				out[ann.NewsID] = ann.Emotion
			}
		}
	}
	return out
}
