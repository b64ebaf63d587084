package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"NewsPulse/internal/adapter"
	"NewsPulse/internal/events"
	"NewsPulse/internal/model"
	"NewsPulse/internal/relevance"
	"NewsPulse/internal/repository/memory"
)

// fakeSource 按关键字返回固定文章，failFor 中的关键字返回错误
type fakeSource struct {
	name     string
	variant  model.Variant
	articles map[string][]model.RawArticle
	failFor  map[string]bool
	windows  [][2]int
}

func (f *fakeSource) GetName() string        { return f.name }
func (f *fakeSource) Variant() model.Variant { return f.variant }

func (f *fakeSource) FetchArticles(_ context.Context, keyword string, startPage, endPage int) ([]*model.RawArticle, error) {
	f.windows = append(f.windows, [2]int{startPage, endPage})
	if f.failFor[keyword] {
		return nil, errors.New("upstream 503")
	}
	if startPage > 1 {
		return nil, nil
	}
	var out []*model.RawArticle
	for _, a := range f.articles[keyword] {
		a := a
		out = append(out, &a)
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ArticleIngested
}

func (p *recordingPublisher) PublishArticle(_ context.Context, evt events.ArticleIngested) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// keywordClassifier 提示词里出现 offTopic 时回答无关
type keywordClassifier struct{ offTopic string }

func (k keywordClassifier) Name() string { return "fake" }

func (k keywordClassifier) Reply(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, k.offTopic) {
		return "無關", nil
	}
	return "是股市新聞", nil
}

func newIngestFixture(src *fakeSource, opts IngestOptions, filter *relevance.Filter) (*IngestService, *memory.Store, *memory.IngestRuns, *recordingPublisher) {
	db := memory.New()
	db.AddCategory(model.TopicStock, 1, "台積電")
	db.AddCategory(model.TopicStock, 2, "聯發科")
	runs := memory.NewIngestRuns()
	pub := &recordingPublisher{}
	registry := adapter.NewStaticRegistry(testLogger(), src)
	svc := NewIngestService(registry, db.Instance(1), runs, filter, nil, pub, opts, testLogger())
	return svc, db, runs, pub
}

func sameDay(n int, prefix string) []model.RawArticle {
	out := make([]model.RawArticle, n)
	for i := range out {
		out[i] = model.RawArticle{
			Title:   prefix + string(rune('A'+i)),
			Content: "內容",
			Date:    "2024-03-01",
			Source:  "tvbs",
			URL:     "https://example.com/" + prefix + string(rune('A'+i)),
		}
	}
	return out
}

func TestIngestDailyCap(t *testing.T) {
	src := &fakeSource{
		name:     "tvbs",
		variant:  model.VariantPrimary,
		articles: map[string][]model.RawArticle{"台積電": sameDay(4, "台積電")},
	}
	svc, db, _, pub := newIngestFixture(src, IngestOptions{DailyCap: 3}, nil)

	run, stats, err := svc.Run(context.Background(), "tvbs", "stock", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Fetched != 4 || stats.Inserted != 3 || stats.Capped != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if got := len(db.Articles(model.TopicStock, model.VariantPrimary)); got != 3 {
		t.Fatalf("expected 3 stored articles, got %d", got)
	}
	if len(pub.events) != 3 || pub.events[0].RunUUID != run.RunUUID {
		t.Fatalf("expected 3 events for run %s, got %+v", run.RunUUID, pub.events)
	}
	if run.Status != model.RunStatusSuccess {
		t.Fatalf("expected success, got %s", run.Status)
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	src := &fakeSource{
		name:     "api",
		variant:  model.VariantAPI,
		articles: map[string][]model.RawArticle{"台積電": sameDay(2, "x"), "聯發科": sameDay(1, "y")},
	}
	svc, db, _, _ := newIngestFixture(src, IngestOptions{}, nil)

	if _, _, err := svc.Run(context.Background(), "api", "stock", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, stats, err := svc.Run(context.Background(), "api", "stock", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Inserted != 0 || stats.Duplicates != 3 {
		t.Fatalf("second run should only see duplicates, got %+v", stats)
	}
	if got := len(db.Articles(model.TopicStock, model.VariantAPI)); got != 3 {
		t.Fatalf("expected 3 stored articles, got %d", got)
	}
}

func TestIngestRelevanceSkip(t *testing.T) {
	articles := sameDay(2, "台積電")
	articles[1].Title = "今日天氣晴"
	src := &fakeSource{
		name:     "tvbs",
		variant:  model.VariantPrimary,
		articles: map[string][]model.RawArticle{"台積電": articles},
	}
	filter := relevance.NewFilter(keywordClassifier{offTopic: "天氣"}, 0, testLogger())
	svc, db, _, _ := newIngestFixture(src, IngestOptions{RelevanceCheck: map[string]bool{"tvbs": true}}, filter)

	_, stats, err := svc.Run(context.Background(), "tvbs", "stock", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Irrelevant != 1 || stats.Inserted != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	stored := db.Articles(model.TopicStock, model.VariantPrimary)
	if len(stored) != 1 || stored[0].Title != "台積電A" || stored[0].CategoryID != 1 {
		t.Fatalf("unexpected stored rows %+v", stored)
	}
}

func TestIngestUnknownCompanyOrTopic(t *testing.T) {
	src := &fakeSource{name: "tvbs", variant: model.VariantPrimary}
	svc, _, runs, _ := newIngestFixture(src, IngestOptions{}, nil)

	if _, _, err := svc.Run(context.Background(), "cnn", "stock", 1); !errors.Is(err, ErrUnknownCompany) {
		t.Fatalf("expected ErrUnknownCompany, got %v", err)
	}
	if _, _, err := svc.Run(context.Background(), "tvbs", "weather", 1); !errors.Is(err, model.ErrUnknownTopic) {
		t.Fatalf("expected ErrUnknownTopic, got %v", err)
	}
	if _, total, _ := runs.List(context.Background(), 1, 10); total != 0 {
		t.Fatalf("no run should be recorded, got %d", total)
	}
}

func TestIngestWindowsAndFetchErrors(t *testing.T) {
	src := &fakeSource{
		name:     "tvbs",
		variant:  model.VariantPrimary,
		articles: map[string][]model.RawArticle{"聯發科": sameDay(1, "聯發科")},
		failFor:  map[string]bool{"台積電": true},
	}
	svc, _, _, _ := newIngestFixture(src, IngestOptions{WindowSize: 3}, nil)

	run, stats, err := svc.Run(context.Background(), "tvbs", "sports", 7)
	if err != nil {
		t.Fatalf("fetch errors must not fail the run: %v", err)
	}
	// sports 没有关键字，仍然成功
	if stats.Fetched != 0 || run.Topic != string(model.TopicSport) {
		t.Fatalf("unexpected run %+v stats %+v", run, stats)
	}

	src.windows = nil
	_, stats, err = svc.Run(context.Background(), "tvbs", "stock", 7)
	if err != nil {
		t.Fatalf("fetch errors must not fail the run: %v", err)
	}
	if stats.Inserted != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	want := [][2]int{{1, 3}, {1, 3}, {4, 6}, {4, 6}, {7, 7}, {7, 7}}
	if len(src.windows) != len(want) {
		t.Fatalf("windows = %v, want %v", src.windows, want)
	}
	for i := range want {
		if src.windows[i] != want[i] {
			t.Fatalf("windows = %v, want %v", src.windows, want)
		}
	}

	list, total, err := svc.ListRuns(context.Background(), 1, 10)
	if err != nil || total != 2 || len(list) != 2 {
		t.Fatalf("expected 2 runs, got %d (%v)", total, err)
	}
	got, err := svc.GetRun(context.Background(), list[0].RunUUID)
	if err != nil || got.Status != model.RunStatusSuccess {
		t.Fatalf("unexpected run lookup %+v, %v", got, err)
	}
}

func TestIngestKeywordLoadFailureMarksRunFailed(t *testing.T) {
	src := &fakeSource{name: "tvbs", variant: model.VariantPrimary}
	svc, db, _, _ := newIngestFixture(src, IngestOptions{}, nil)
	db.FailKeywords(errors.New("relation does not exist"))

	run, _, err := svc.Run(context.Background(), "tvbs", "stock", 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if run == nil || run.Status != model.RunStatusFailed || run.Error == nil {
		t.Fatalf("expected failed run, got %+v", run)
	}
}

// mapCache 进程内的去重缓存
type mapCache struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *mapCache) Seen(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *mapCache) Mark(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = true
	return nil
}

func (m *mapCache) Close() error { return nil }

func TestIngestSeenCacheScopedToInstance(t *testing.T) {
	src := &fakeSource{
		name:     "tvbs",
		variant:  model.VariantPrimary,
		articles: map[string][]model.RawArticle{"台積電": sameDay(2, "台積電")},
	}
	seen := &mapCache{keys: make(map[string]bool)}
	registry := adapter.NewStaticRegistry(testLogger(), src)

	run := func(id model.InstanceID) *memory.Store {
		db := memory.New()
		db.AddCategory(model.TopicStock, 1, "台積電")
		svc := NewIngestService(registry, db.Instance(id), memory.NewIngestRuns(), nil, seen, nil, IngestOptions{DailyCap: 3}, testLogger())
		if _, _, err := svc.Run(context.Background(), "tvbs", "stock", 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return db
	}

	run(1)
	// 换到另一个实例后，上一个实例留下的缓存不能挡住入库
	db2 := run(2)
	if got := len(db2.Articles(model.TopicStock, model.VariantPrimary)); got != 2 {
		t.Fatalf("expected 2 articles in the new instance, got %d", got)
	}
	if len(seen.keys) != 4 {
		t.Fatalf("expected keys for both instances, got %d", len(seen.keys))
	}
}
