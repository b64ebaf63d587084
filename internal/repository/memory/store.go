// Package memory 仓储接口的内存实现，供单元测试和本地调试使用。
// 语义与 PostgreSQL 实现保持一致：同一 topic 的两张文章表共用 id 序列，日期按字符串比较。
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"NewsPulse/internal/model"
	"NewsPulse/internal/repository"
)

type tableKey struct {
	topic   model.Topic
	variant model.Variant
}

type Store struct {
	mu         sync.Mutex
	seq        map[model.Topic]int64
	sentSeq    int64
	categories map[model.Topic][]*model.KeywordCategory
	articles   map[tableKey][]*model.Article
	sentiments map[model.Topic][]*model.SentimentAnnotation

	pageErr      map[tableKey]pageFailure
	sentimentErr error
	keywordErr   error
}

type pageFailure struct {
	offset int
	err    error
}

func New() *Store {
	return &Store{
		seq:        make(map[model.Topic]int64),
		categories: make(map[model.Topic][]*model.KeywordCategory),
		articles:   make(map[tableKey][]*model.Article),
		sentiments: make(map[model.Topic][]*model.SentimentAnnotation),
		pageErr:    make(map[tableKey]pageFailure),
	}
}

// Instance 包装成带编号的实例仓储
func (s *Store) Instance(id model.InstanceID) repository.Instance {
	return repository.Instance{
		ID:         id,
		Keywords:   &keywordRepo{s: s},
		Articles:   &articleRepo{s: s},
		Sentiments: &sentimentRepo{s: s},
	}
}

func (s *Store) AddCategory(topic model.Topic, id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[topic] = append(s.categories[topic], &model.KeywordCategory{ID: id, Topic: topic, DisplayName: name})
}

// AddArticle 直接写入（不去重），返回分配的 id
func (s *Store) AddArticle(topic model.Topic, variant model.Variant, a model.Article) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(topic, variant, a)
}

func (s *Store) insertLocked(topic model.Topic, variant model.Variant, a model.Article) int64 {
	s.seq[topic]++
	a.ID = s.seq[topic]
	key := tableKey{topic, variant}
	s.articles[key] = append(s.articles[key], &a)
	return a.ID
}

func (s *Store) AddSentiment(topic model.Topic, ann model.SentimentAnnotation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentSeq++
	ann.ID = s.sentSeq
	s.sentiments[topic] = append(s.sentiments[topic], &ann)
}

// Articles 某张表当前全部文章（拷贝）
func (s *Store) Articles(topic model.Topic, variant model.Variant) []model.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.articles[tableKey{topic, variant}]
	out := make([]model.Article, 0, len(rows))
	for _, a := range rows {
		out = append(out, *a)
	}
	return out
}

func (s *Store) Sentiments(topic model.Topic) []model.SentimentAnnotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SentimentAnnotation, 0, len(s.sentiments[topic]))
	for _, a := range s.sentiments[topic] {
		out = append(out, *a)
	}
	return out
}

// FailPageAt 分页读取到 offset 及之后时返回 err
func (s *Store) FailPageAt(topic model.Topic, variant model.Variant, offset int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageErr[tableKey{topic, variant}] = pageFailure{offset: offset, err: err}
}

// FailSentimentLookups 之后的批量情绪查询全部返回 err（nil 取消）
func (s *Store) FailSentimentLookups(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentimentErr = err
}

func (s *Store) FailKeywords(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keywordErr = err
}

type keywordRepo struct{ s *Store }

func (r *keywordRepo) ListCategories(_ context.Context, topic model.Topic) ([]*model.KeywordCategory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.keywordErr != nil {
		return nil, r.s.keywordErr
	}
	out := make([]*model.KeywordCategory, 0, len(r.s.categories[topic]))
	for _, c := range r.s.categories[topic] {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

type articleRepo struct{ s *Store }

func inRange(a *model.Article, f model.RangeFilter) bool {
	if a.Date < f.StartDate || a.Date > f.EndDate {
		return false
	}
	return f.AllSources() || a.Source == f.Source
}

func (r *articleRepo) InsertIfAbsent(_ context.Context, topic model.Topic, variant model.Variant, a *model.Article) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.articles[tableKey{topic, variant}] {
		if e.CategoryID == a.CategoryID && e.Title == a.Title && e.Date == a.Date && e.Content == a.Content && e.Source == a.Source {
			a.ID = e.ID
			return false, nil
		}
	}
	a.ID = r.s.insertLocked(topic, variant, *a)
	return true, nil
}

func (r *articleRepo) CountByCategoryDate(_ context.Context, topic model.Topic, variant model.Variant, categoryID int64, date string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, e := range r.s.articles[tableKey{topic, variant}] {
		if e.CategoryID == categoryID && e.Date == date {
			n++
		}
	}
	return n, nil
}

func (r *articleRepo) page(topic model.Topic, variant model.Variant, f model.RangeFilter, offset, limit int) ([]*model.Article, error) {
	key := tableKey{topic, variant}
	if fail, ok := r.s.pageErr[key]; ok && offset >= fail.offset {
		return nil, fail.err
	}
	var matched []*model.Article
	for _, a := range r.s.articles[key] {
		if inRange(a, f) {
			matched = append(matched, a)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *articleRepo) PageIDs(_ context.Context, topic model.Topic, variant model.Variant, f model.RangeFilter, offset, limit int) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows, err := r.page(topic, variant, f, offset, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, a := range rows {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (r *articleRepo) PageArticles(_ context.Context, topic model.Topic, variant model.Variant, f model.RangeFilter, offset, limit int) ([]*model.Article, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows, err := r.page(topic, variant, f, offset, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Article, 0, len(rows))
	for _, a := range rows {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *articleRepo) DatesByIDs(_ context.Context, topic model.Topic, variant model.Variant, ids []int64) (map[int64]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make(map[int64]string, len(ids))
	for _, a := range r.s.articles[tableKey{topic, variant}] {
		if _, ok := want[a.ID]; ok {
			out[a.ID] = a.Date
		}
	}
	return out, nil
}

func (r *articleRepo) ListByDate(_ context.Context, topic model.Topic, variant model.Variant, date, source string) ([]*model.Article, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Article
	for _, a := range r.s.articles[tableKey{topic, variant}] {
		if date != "" && a.Date != date {
			continue
		}
		if source != "" && a.Source != source {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type sentimentRepo struct{ s *Store }

func (r *sentimentRepo) ListByNewsIDs(_ context.Context, topic model.Topic, newsIDs []int64) ([]*model.SentimentAnnotation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.sentimentErr != nil {
		return nil, r.s.sentimentErr
	}
	want := make(map[int64]struct{}, len(newsIDs))
	for _, id := range newsIDs {
		want[id] = struct{}{}
	}
	var out []*model.SentimentAnnotation
	for _, a := range r.s.sentiments[topic] {
		if _, ok := want[a.NewsID]; ok {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *sentimentRepo) Exists(_ context.Context, topic model.Topic, newsID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.sentiments[topic] {
		if a.NewsID == newsID {
			return true, nil
		}
	}
	return false, nil
}

func (r *sentimentRepo) Insert(_ context.Context, topic model.Topic, ann *model.SentimentAnnotation) error {
	if ann.Star < 1 || ann.Star > 5 {
		return fmt.Errorf("星级超出范围: %d", ann.Star)
	}
	ann.Emotion = model.EmotionFromStar(ann.Star)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sentSeq++
	ann.ID = r.s.sentSeq
	cp := *ann
	r.s.sentiments[topic] = append(r.s.sentiments[topic], &cp)
	return nil
}
