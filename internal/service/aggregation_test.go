package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"NewsPulse/internal/model"
	"NewsPulse/internal/repository"
	"NewsPulse/internal/repository/memory"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// pageRecorder 记录每次分页返回的条数
type pageRecorder struct {
	repository.ArticleRepository
	sizes []int
}

func (p *pageRecorder) PageIDs(ctx context.Context, topic model.Topic, variant model.Variant, f model.RangeFilter, offset, limit int) ([]int64, error) {
	ids, err := p.ArticleRepository.PageIDs(ctx, topic, variant, f, offset, limit)
	if variant == model.VariantPrimary {
		p.sizes = append(p.sizes, len(ids))
	}
	return ids, err
}

func query(start, end, source string) AggregateQuery {
	return AggregateQuery{
		Topic:       model.TopicStock,
		RangeFilter: model.RangeFilter{StartDate: start, EndDate: end, Source: source},
	}
}

func TestCollectMatchingIDsPaginates(t *testing.T) {
	db := memory.New()
	for i := 0; i < 5; i++ {
		db.AddArticle(model.TopicStock, model.VariantPrimary, model.Article{Title: "t", Date: "2024-03-01", Source: "tvbs"})
	}
	db.AddArticle(model.TopicStock, model.VariantPrimary, model.Article{Title: "out", Date: "2024-04-01", Source: "tvbs"})

	ins := db.Instance(1)
	rec := &pageRecorder{ArticleRepository: ins.Articles}
	ins.Articles = rec

	svc := NewAggregationService([]repository.Instance{ins}, 2, 1, testLogger())
	refs, err := svc.CollectMatchingIDs(context.Background(), query("2024-03-01", "2024-03-31", "all"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 5 {
		t.Fatalf("expected 5 refs, got %d", len(refs))
	}
	want := []int{2, 2, 1, 0}
	if len(rec.sizes) != len(want) {
		t.Fatalf("page sizes = %v, want %v", rec.sizes, want)
	}
	for i := range want {
		if rec.sizes[i] != want[i] {
			t.Fatalf("page sizes = %v, want %v", rec.sizes, want)
		}
	}
	for i := 1; i < len(refs); i++ {
		if refs[i-1].ID >= refs[i].ID {
			t.Fatalf("refs not sorted: %v", refs)
		}
	}
}

func TestCollectMatchingIDsSourceFilter(t *testing.T) {
	db := memory.New()
	db.AddArticle(model.TopicStock, model.VariantPrimary, model.Article{Title: "a", Date: "2024-03-01", Source: "tvbs"})
	keep := db.AddArticle(model.TopicStock, model.VariantPrimary, model.Article{Title: "b", Date: "2024-03-01", Source: "ltn"})
	db.AddArticle(model.TopicStock, model.VariantAPI, model.Article{Title: "c", Date: "2024-03-01", Source: "Yahoo"})

	svc := NewAggregationService([]repository.Instance{db.Instance(1)}, 10, 2, testLogger())
	refs, err := svc.CollectMatchingIDs(context.Background(), query("2024-03-01", "2024-03-01", "ltn"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 1 || refs[0].ID != keep {
		t.Fatalf("unexpected refs %v", refs)
	}
}

func TestCollectMatchingIDsKeepsPartialOnPageError(t *testing.T) {
	db := memory.New()
	for i := 0; i < 3; i++ {
		db.AddArticle(model.TopicStock, model.VariantPrimary, model.Article{Title: "t", Date: "2024-03-01"})
	}
	db.AddArticle(model.TopicStock, model.VariantAPI, model.Article{Title: "api", Date: "2024-03-02"})
	db.FailPageAt(model.TopicStock, model.VariantPrimary, 2, errors.New("connection reset"))

	svc := NewAggregationService([]repository.Instance{db.Instance(1)}, 2, 1, testLogger())
	refs, err := svc.CollectMatchingIDs(context.Background(), query("2024-03-01", "2024-03-31", "all"))
	if err != nil {
		t.Fatalf("page errors must not fail the query: %v", err)
	}
	// 主表前两条 + API 表一条
	if len(refs) != 3 {
		t.Fatalf("expected 3 refs, got %v", refs)
	}
}

func TestCollectMatchingIDsInvalidQuery(t *testing.T) {
	svc := NewAggregationService(nil, 10, 1, testLogger())
	cases := []struct {
		name string
		q    AggregateQuery
	}{
		{"bad start", query("2024/03/01", "2024-03-31", "all")},
		{"bad end", query("2024-03-01", "", "all")},
		{"reversed", query("2024-03-31", "2024-03-01", "all")},
		{"bad topic", AggregateQuery{Topic: "weather", RangeFilter: model.RangeFilter{StartDate: "2024-03-01", EndDate: "2024-03-01"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CollectMatchingIDs(context.Background(), tc.q)
			if !errors.Is(err, ErrInvalidQuery) {
				t.Fatalf("expected ErrInvalidQuery, got %v", err)
			}
		})
	}
}

func TestJoinsStayWithinInstance(t *testing.T) {
	topic := model.TopicStock
	db1, db2 := memory.New(), memory.New()
	id1 := db1.AddArticle(topic, model.VariantPrimary, model.Article{Title: "a", Date: "2024-03-01"})
	id2 := db2.AddArticle(topic, model.VariantPrimary, model.Article{Title: "b", Date: "2024-03-02"})
	if id1 != id2 {
		t.Fatalf("expected colliding ids, got %d and %d", id1, id2)
	}
	db1.AddSentiment(topic, model.SentimentAnnotation{NewsID: id1, Sentiment: 0.9, Star: 5, Emotion: model.EmotionPositive})

	svc := NewAggregationService([]repository.Instance{db1.Instance(1), db2.Instance(2)}, 10, 2, testLogger())
	refs, err := svc.CollectMatchingIDs(context.Background(), query("2024-03-01", "2024-03-31", "all"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected one ref per instance, got %v", refs)
	}

	annotated := svc.JoinSentiment(context.Background(), topic, refs)
	if len(annotated) != 1 || annotated[0].Ref != (model.NewsRef{Instance: 1, ID: id1}) {
		t.Fatalf("annotation leaked across instances: %+v", annotated)
	}

	dates := svc.JoinDates(context.Background(), topic, refs)
	got := map[model.NewsRef]string{}
	for _, d := range dates {
		got[d.Ref] = d.Date
	}
	if got[model.NewsRef{Instance: 1, ID: id1}] != "2024-03-01" || got[model.NewsRef{Instance: 2, ID: id2}] != "2024-03-02" {
		t.Fatalf("unexpected dates %v", got)
	}
}

func TestJoinSentimentSkipsFailedBatches(t *testing.T) {
	db := memory.New()
	id := db.AddArticle(model.TopicStock, model.VariantPrimary, model.Article{Date: "2024-03-01"})
	db.AddSentiment(model.TopicStock, model.SentimentAnnotation{NewsID: id, Star: 4, Emotion: model.EmotionPositive})
	db.FailSentimentLookups(errors.New("timeout"))

	svc := NewAggregationService([]repository.Instance{db.Instance(1)}, 10, 1, testLogger())
	got := svc.JoinSentiment(context.Background(), model.TopicStock, []model.NewsRef{{Instance: 1, ID: id}})
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestCountAggregate(t *testing.T) {
	ref := func(id int64) model.NewsRef { return model.NewsRef{Instance: 1, ID: id} }
	annotated := []model.AnnotatedRef{
		{Ref: ref(1), Star: 5, Emotion: model.EmotionPositive},
		{Ref: ref(2), Star: 4, Emotion: model.EmotionPositive},
		{Ref: ref(3), Star: 3, Emotion: model.EmotionNeutral},
		{Ref: ref(4), Star: 1, Emotion: model.EmotionNegative},
		{Ref: ref(5), Star: 0, Emotion: model.EmotionNegative},
		{Ref: ref(6), Star: 7, Emotion: model.EmotionPositive},
	}
	counts := CountAggregate(annotated)

	wantStars := map[int]int{1: 1, 2: 0, 3: 1, 4: 1, 5: 1}
	if len(counts.Stars) != 5 {
		t.Fatalf("expected all five star buckets, got %v", counts.Stars)
	}
	for star, n := range wantStars {
		if counts.Stars[star] != n {
			t.Fatalf("stars = %v, want %v", counts.Stars, wantStars)
		}
	}
	want := model.EmotionCounts{Positive: 2, Neutral: 1, Negative: 1}
	if counts.Emotions != want {
		t.Fatalf("emotions = %+v, want %+v", counts.Emotions, want)
	}
	if counts.Total() != 4 {
		t.Fatalf("expected total 4, got %d", counts.Total())
	}

	empty := CountAggregate(nil)
	if len(empty.Stars) != 5 || empty.Total() != 0 {
		t.Fatalf("unexpected empty counts %+v", empty)
	}
}

func TestTimeseries(t *testing.T) {
	ref := func(id int64) model.NewsRef { return model.NewsRef{Instance: 1, ID: id} }
	annotated := []model.AnnotatedRef{
		{Ref: ref(1), Sentiment: 0.5},
		{Ref: ref(2), Sentiment: 0.6},
		{Ref: ref(3), Sentiment: 0.7},
		{Ref: ref(4), Sentiment: 0.9},
		{Ref: ref(5), Sentiment: 0.1},
	}
	dates := []model.ArticleDate{
		{Ref: ref(1), Date: "2024-03-02"},
		{Ref: ref(2), Date: "2024-03-02"},
		{Ref: ref(3), Date: "2024-03-02"},
		{Ref: ref(4), Date: "2024-03-01"},
		{Ref: ref(5), Date: model.PlaceholderDate},
	}

	series, err := Timeseries(annotated, dates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 days, got %+v", series)
	}
	if !series[0].Day.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) || series[0].Mean != 0.9 || series[0].Count != 1 {
		t.Fatalf("unexpected first day %+v", series[0])
	}
	if series[1].Mean != 0.6 || series[1].Count != 3 {
		t.Fatalf("unexpected second day %+v", series[1])
	}

	_, err = Timeseries(annotated[4:], dates[4:])
	if !errors.Is(err, ErrNoDateInformation) {
		t.Fatalf("expected ErrNoDateInformation, got %v", err)
	}
}

func TestTimeseriesRoundsToSixPlaces(t *testing.T) {
	ref := func(id int64) model.NewsRef { return model.NewsRef{Instance: 1, ID: id} }
	annotated := []model.AnnotatedRef{
		{Ref: ref(1), Sentiment: 1},
		{Ref: ref(2), Sentiment: 0},
		{Ref: ref(3), Sentiment: 0},
	}
	dates := []model.ArticleDate{
		{Ref: ref(1), Date: "2024-03-01"},
		{Ref: ref(2), Date: "2024-03-01"},
		{Ref: ref(3), Date: "2024-03-01"},
	}
	series, err := Timeseries(annotated, dates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series[0].Mean != 0.333333 {
		t.Fatalf("expected 0.333333, got %v", series[0].Mean)
	}
}

// 两个实例、两张文章表、id 互相冲突：10 篇命中，其中 8 篇有情绪结果
func TestAggregationEndToEnd(t *testing.T) {
	type row struct {
		variant   model.Variant
		date      string
		star      int
		sentiment float64
	}
	seed := func(db *memory.Store, rows []row) {
		for i, r := range rows {
			id := db.AddArticle(model.TopicStock, r.variant, model.Article{
				CategoryID: 1, Title: fmt.Sprintf("news-%d", i), Date: r.date, Content: "body", Source: "tvbs",
			})
			if r.star == 0 {
				continue
			}
			db.AddSentiment(model.TopicStock, model.SentimentAnnotation{
				NewsID: id, Sentiment: r.sentiment, Star: r.star, Emotion: model.EmotionFromStar(r.star),
			})
		}
	}

	db1, db2 := memory.New(), memory.New()
	seed(db1, []row{
		{model.VariantPrimary, "2024-01-05", 5, 0.9},
		{model.VariantAPI, "2024-01-05", 5, 0.7},
		{model.VariantPrimary, "2024-01-10", 4, 0.6},
		{model.VariantAPI, "2024-01-20", 0, 0},
		{model.VariantPrimary, "2024-02-01", 1, 0.3}, // 不在区间内
	})
	seed(db2, []row{
		{model.VariantPrimary, "2024-01-10", 3, 0.5},
		{model.VariantPrimary, "2024-01-15", 3, 0.4},
		{model.VariantAPI, "2024-01-15", 2, 0.8},
		{model.VariantAPI, "2024-01-25", 1, 0.9},
		{model.VariantPrimary, "2024-01-31", 1, 0.6},
		{model.VariantAPI, "2024-01-31", 0, 0},
	})
	// 实例1里 news_id=6 的情绪行不能被实例2的 6 号文章借用
	db1.AddSentiment(model.TopicStock, model.SentimentAnnotation{NewsID: 6, Sentiment: 0.99, Star: 5, Emotion: model.EmotionPositive})

	svc := NewAggregationService([]repository.Instance{db1.Instance(1), db2.Instance(2)}, 2, 4, testLogger())
	ctx := context.Background()
	q := query("2024-01-01", "2024-01-31", "all")

	refs, err := svc.CollectMatchingIDs(ctx, q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 10 {
		t.Fatalf("expected 10 matching refs, got %d: %v", len(refs), refs)
	}

	annotated := svc.JoinSentiment(ctx, q.Topic, refs)
	if len(annotated) != 8 {
		t.Fatalf("expected 8 annotated refs, got %d", len(annotated))
	}

	counts := CountAggregate(annotated)
	wantStars := map[int]int{1: 2, 2: 1, 3: 2, 4: 1, 5: 2}
	for star, n := range wantStars {
		if counts.Stars[star] != n {
			t.Fatalf("star counts = %v, want %v", counts.Stars, wantStars)
		}
	}
	if counts.Emotions.Positive != 3 || counts.Emotions.Neutral != 2 || counts.Emotions.Negative != 3 {
		t.Fatalf("unexpected emotion counts %+v", counts.Emotions)
	}

	series, err := Timeseries(annotated, svc.JoinDates(ctx, q.Topic, refs))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []struct {
		day   string
		mean  float64
		count int
	}{
		{"2024-01-05", 0.8, 2},
		{"2024-01-10", 0.55, 2},
		{"2024-01-15", 0.6, 2},
		{"2024-01-25", 0.9, 1},
		{"2024-01-31", 0.6, 1},
	}
	if len(series) != len(want) {
		t.Fatalf("expected %d days, got %+v", len(want), series)
	}
	for i, w := range want {
		got := series[i]
		if got.Day.Format(model.DateLayout) != w.day || got.Mean != w.mean || got.Count != w.count {
			t.Fatalf("day %d = %+v, want %+v", i, got, w)
		}
	}
}
