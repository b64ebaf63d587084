package chinatimes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"NewsPulse/internal/config"

	"github.com/sirupsen/logrus"
)

const listingHTML = `<html><body><ul class="vertical-list article-list">
<li><h3 class="title"><a href="/realtimenews/20240301000001-260410">台積電 外資加碼</a></h3>
<time datetime="2024-03-01 10:20">10:20</time><p class="intro">外資連三買</p></li>
<li><h3 class="title"><a href="https://www.chinatimes.com/a/2">缺摘要</a></h3><time datetime="2024-03-01 11:00"></time></li>
<li><h3><a href="/a/3">時間格式錯</a></h3><time datetime="昨天"></time><p class="intro">x</p></li>
</ul></body></html>`

func TestParseListing(t *testing.T) {
	got, items, err := parseListing(strings.NewReader(listingHTML), "https://www.chinatimes.com/search")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items != 3 {
		t.Fatalf("expected 3 items, got %d", items)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 complete article, got %d", len(got))
	}
	a := got[0]
	if a.Title != "台積電 外資加碼" || a.Content != "外資連三買" || a.Date != "2024-03-01" || a.Source != SourceName {
		t.Fatalf("unexpected article: %+v", a)
	}
	if a.URL != "https://www.chinatimes.com/realtimenews/20240301000001-260410" {
		t.Fatalf("relative link not resolved: %q", a.URL)
	}
}

func TestFetchArticlesOverHTTP(t *testing.T) {
	cases := []struct {
		name      string
		minItems  int
		wantCalls int
		wantCount int
	}{
		// 不足一页的列表页整页丢弃并停止翻页
		{"short page dropped", 10, 1, 0},
		{"full pages kept", 3, 3, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls int
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				if !strings.HasPrefix(r.URL.Path, "/search/") {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				_, _ = io.WriteString(w, listingHTML)
			}))
			defer srv.Close()

			logger := logrus.New()
			logger.SetOutput(io.Discard)
			cfg := &config.SourceConfig{BaseURL: srv.URL + "/search", Timeout: 5, MinListItems: tc.minItems}
			got, err := NewChinaTimesAdapter(cfg, logger).FetchArticles(context.Background(), "台積電", 1, 3)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if calls != tc.wantCalls {
				t.Fatalf("expected %d calls, got %d", tc.wantCalls, calls)
			}
			if len(got) != tc.wantCount {
				t.Fatalf("expected %d articles, got %d", tc.wantCount, len(got))
			}
		})
	}
}
