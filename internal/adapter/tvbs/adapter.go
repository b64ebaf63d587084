package tvbs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"NewsPulse/internal/adapter"
	"NewsPulse/internal/config"
	"NewsPulse/internal/interfaces"
	"NewsPulse/internal/model"
	"NewsPulse/internal/utils/httpclient"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const Name = "tvbs"

func init() {
	adapter.Register(Name, NewTVBSAdapter)
}

var digits = regexp.MustCompile(`\d+`)

type Adapter struct {
	cfg        *config.SourceConfig
	httpClient *http.Client
	logger     *logrus.Logger
	now        func() time.Time
}

func NewTVBSAdapter(cfg *config.SourceConfig, logger *logrus.Logger) interfaces.SourceAdapter {
	return &Adapter{
		cfg:        cfg,
		httpClient: httpclient.NewHTTPClient(cfg, logger),
		logger:     logger,
		now:        time.Now,
	}
}

func (a *Adapter) GetName() string        { return Name }
func (a *Adapter) Variant() model.Variant { return model.VariantPrimary }

func (a *Adapter) FetchArticles(ctx context.Context, keyword string, startPage, endPage int) ([]*model.RawArticle, error) {
	var out []*model.RawArticle
	for page := startPage; page <= endPage; page++ {
		pageURL := fmt.Sprintf("%s/%s/news/%d", a.cfg.BaseURL, url.PathEscape(keyword), page)
		body, err := adapter.GetPage(ctx, a.httpClient, pageURL)
		if err != nil {
			a.logger.WithError(err).WithFields(logrus.Fields{"keyword": keyword, "page": page}).Warn("TVBS列表页请求失败")
			continue
		}
		articles, items, err := parseListing(body, a.now())
		_ = body.Close()
		if err != nil {
			a.logger.WithError(err).WithField("page", page).Warn("TVBS列表页解析失败")
			continue
		}
		if items < a.cfg.MinListItems {
			a.logger.WithFields(logrus.Fields{"keyword": keyword, "page": page, "items": items}).Info("列表页内容不足，停止翻页")
			break
		}
		out = append(out, articles...)
	}
	return out, nil
}

// parseListing 返回可用的文章与页面 li 总数；没有时间或链接的条目直接跳过
func parseListing(r io.Reader, now time.Time) ([]*model.RawArticle, int, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("解析HTML失败: %w", err)
	}

	items := doc.Find("li")
	var out []*model.RawArticle
	items.Each(func(_ int, li *goquery.Selection) {
		timeSel := li.Find("div.time, span.news-time").First()
		if timeSel.Length() == 0 {
			return
		}
		published, ok := parseTime(strings.TrimSpace(timeSel.Text()), now)
		if !ok {
			return
		}

		link := li.Find("a[href]").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}

		content := model.PlaceholderSummary
		if summary := li.Find("div.summary, p.summary-text").First(); summary.Length() > 0 {
			content = summary.Text()
		}

		raw := &model.RawArticle{
			Title:   link.Text(),
			Content: content,
			Date:    published.Format(model.DateLayout),
			Source:  Name,
			URL:     href,
		}
		raw.Normalize()
		out = append(out, raw)
	})
	return out, items.Length(), nil
}

// parseTime 支持“N分鐘前/N小時前/N天前”与 2006/01/02 15:04
func parseTime(text string, now time.Time) (time.Time, bool) {
	var unit time.Duration
	switch {
	case strings.Contains(text, "分鐘前"):
		unit = time.Minute
	case strings.Contains(text, "小時前"):
		unit = time.Hour
	case strings.Contains(text, "天前"):
		unit = 24 * time.Hour
	default:
		t, err := time.ParseInLocation("2006/01/02 15:04", text, now.Location())
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	n, err := strconv.Atoi(digits.FindString(text))
	if err != nil {
		return time.Time{}, false
	}
	return now.Add(-time.Duration(n) * unit), true
}
