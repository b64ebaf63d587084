package newsapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"NewsPulse/internal/config"
	"NewsPulse/internal/model"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestFetchArticlesStopsOnEmptyPage(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "台積電" || q.Get("apiKey") != "secret" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if q.Get("from") != "2024-02-04" || q.Get("to") != "2024-03-05" {
			t.Errorf("unexpected range: %s..%s", q.Get("from"), q.Get("to"))
		}
		pages = append(pages, q.Get("page"))
		w.Header().Set("Content-Type", "application/json")
		if q.Get("page") == "1" {
			_, _ = io.WriteString(w, `{"status":"ok","totalResults":2,"articles":[
				{"title":"台積電法說會","description":"營收創新高","url":"https://a/1","publishedAt":"2024-03-01T08:00:00Z","source":{"name":"經濟日報"}},
				{"title":"","description":"","url":"","publishedAt":"","source":{"name":""}}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"status":"ok","totalResults":2,"articles":[]}`)
	}))
	defer srv.Close()

	cfg := &config.SourceConfig{BaseURL: srv.URL, AuthToken: "secret", Timeout: 5, PageSize: 100}
	a := NewNewsAPIAdapter(cfg, testLogger()).(*Adapter)
	a.now = func() time.Time { return time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC) }

	got, err := a.FetchArticles(context.Background(), "台積電", 1, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected pagination to stop after empty page, requested %v", pages)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(got))
	}
	if got[0].Source != "經濟日報" || got[0].Date != "2024-03-01" || got[0].Content != "營收創新高" {
		t.Fatalf("unexpected first article: %+v", got[0])
	}
	empty := got[1]
	if empty.Title != model.PlaceholderTitle || empty.Content != model.PlaceholderDescription ||
		empty.Date != model.PlaceholderDate || empty.URL != model.PlaceholderURL || empty.Source != model.PlaceholderSource {
		t.Fatalf("expected placeholders, got %+v", empty)
	}
}

func TestFetchArticlesReturnsErrorOnFirstPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"status":"error","code":"apiKeyInvalid","message":"bad key"}`)
	}))
	defer srv.Close()

	a := NewNewsAPIAdapter(&config.SourceConfig{BaseURL: srv.URL, Timeout: 5}, testLogger())
	if _, err := a.FetchArticles(context.Background(), "x", 1, 1); err == nil {
		t.Fatal("expected error for rejected key")
	}
}
