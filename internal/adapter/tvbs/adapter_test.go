package tvbs

import (
	"strings"
	"testing"
	"time"

	"NewsPulse/internal/model"
)

func TestParseTime(t *testing.T) {
	now := time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC)
	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"30分鐘前", "2024-03-05", true},
		{"2小時前", "2024-03-04", true},
		{"3天前", "2024-03-02", true},
		{"2024/02/28 13:45", "2024-02-28", true},
		{"剛剛", "", false},
	}
	for _, c := range cases {
		t.Run(c.text, func(t *testing.T) {
			got, ok := parseTime(c.text, now)
			if ok != c.ok {
				t.Fatalf("ok = %v, want %v", ok, c.ok)
			}
			if ok && got.Format(model.DateLayout) != c.want {
				t.Fatalf("got %s, want %s", got.Format(model.DateLayout), c.want)
			}
		})
	}
}

func TestParseListing(t *testing.T) {
	page := `<ul>
<li><a href="https://news.tvbs.com.tw/money/1">台積電大漲</a><div class="time">5小時前</div><div class="summary">外資買超</div></li>
<li><a href="https://news.tvbs.com.tw/money/2">無摘要</a><span class="news-time">2024/03/01 09:00</span></li>
<li><a href="https://news.tvbs.com.tw/money/3">沒有時間</a></li>
<li><div class="time">看不懂</div><a href="https://news.tvbs.com.tw/money/4">x</a></li>
</ul>`
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	got, items, err := parseListing(strings.NewReader(page), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items != 4 {
		t.Fatalf("expected 4 list items, got %d", items)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(got))
	}
	if got[0].Title != "台積電大漲" || got[0].Date != "2024-03-05" || got[0].Content != "外資買超" || got[0].Source != Name {
		t.Fatalf("unexpected first article: %+v", got[0])
	}
	if got[1].Content != model.PlaceholderSummary || got[1].Date != "2024-03-01" {
		t.Fatalf("unexpected second article: %+v", got[1])
	}
}
