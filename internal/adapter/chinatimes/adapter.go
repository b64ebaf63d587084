package chinatimes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsPulse/internal/adapter"
	"NewsPulse/internal/config"
	"NewsPulse/internal/interfaces"
	"NewsPulse/internal/model"
	"NewsPulse/internal/utils/browser"
	"NewsPulse/internal/utils/httpclient"

	"github.com/antchfx/htmlquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

const (
	Name       = "chinatimes"
	SourceName = "China Times"
)

func init() {
	adapter.Register(Name, NewChinaTimesAdapter)
}

const (
	itemsXPath = "//ul[contains(@class,'article-list')]/li"
	timeLayout = "2006-01-02 15:04"
)

// pageFetcher 列表页获取方式：无头浏览器或普通 HTTP
type pageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (io.Reader, error)
}

type browserFetcher struct {
	browser *browser.Browser
}

func (f *browserFetcher) Fetch(ctx context.Context, pageURL string) (io.Reader, error) {
	content, err := f.browser.HTML(ctx, pageURL, ".article-list")
	if err != nil {
		return nil, err
	}
	return strings.NewReader(content), nil
}

type httpFetcher struct {
	client *http.Client
}

func (f *httpFetcher) Fetch(ctx context.Context, pageURL string) (io.Reader, error) {
	body, err := adapter.GetPage(ctx, f.client, pageURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()
	buf, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	return strings.NewReader(string(buf)), nil
}

type Adapter struct {
	cfg     *config.SourceConfig
	fetcher pageFetcher
	logger  *logrus.Logger
}

func NewChinaTimesAdapter(cfg *config.SourceConfig, logger *logrus.Logger) interfaces.SourceAdapter {
	a := &Adapter{cfg: cfg, logger: logger}
	if cfg.UseBrowser {
		a.fetcher = &browserFetcher{browser: browser.New(cfg.Proxy, time.Duration(cfg.Timeout)*time.Second, logger)}
	} else {
		a.fetcher = &httpFetcher{client: httpclient.NewHTTPClient(cfg, logger)}
	}
	return a
}

func (a *Adapter) GetName() string        { return Name }
func (a *Adapter) Variant() model.Variant { return model.VariantPrimary }

// Close 释放浏览器（如有）
func (a *Adapter) Close() error {
	if bf, ok := a.fetcher.(*browserFetcher); ok {
		return bf.browser.Close()
	}
	return nil
}

func (a *Adapter) FetchArticles(ctx context.Context, keyword string, startPage, endPage int) ([]*model.RawArticle, error) {
	var out []*model.RawArticle
	for page := startPage; page <= endPage; page++ {
		pageURL := fmt.Sprintf("%s/%s?page=%d&chdtv", a.cfg.BaseURL, url.PathEscape(keyword), page)
		r, err := a.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			a.logger.WithError(err).WithFields(logrus.Fields{"keyword": keyword, "page": page}).Warn("中時列表页获取失败")
			continue
		}
		articles, items, err := parseListing(r, a.cfg.BaseURL)
		if err != nil {
			a.logger.WithError(err).WithField("page", page).Warn("中時列表页解析失败")
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

// parseListing 标题/链接/时间/摘要缺一即跳过该条
func parseListing(r io.Reader, baseURL string) ([]*model.RawArticle, int, error) {
	doc, err := htmlquery.Parse(r)
	if err != nil {
		return nil, 0, fmt.Errorf("解析HTML失败: %w", err)
	}
	items, err := htmlquery.QueryAll(doc, itemsXPath)
	if err != nil {
		return nil, 0, fmt.Errorf("XPath查询失败: %w", err)
	}

	base, _ := url.Parse(baseURL)
	var out []*model.RawArticle
	for _, li := range items {
		title := findFirst(li, ".//h3", ".//*[contains(@class,'title')]")
		link := htmlquery.FindOne(li, ".//a[@href]")
		timeNode := htmlquery.FindOne(li, ".//time")
		intro := findFirst(li, ".//*[contains(@class,'intro')]", ".//*[contains(@class,'summary')]")
		if title == nil || link == nil || timeNode == nil || intro == nil {
			continue
		}

		published, err := time.ParseInLocation(timeLayout, strings.TrimSpace(htmlquery.SelectAttr(timeNode, "datetime")), time.Local)
		if err != nil {
			continue
		}

		raw := &model.RawArticle{
			Title:   htmlquery.InnerText(title),
			Content: htmlquery.InnerText(intro),
			Date:    published.Format(model.DateLayout),
			Source:  SourceName,
			URL:     resolve(base, htmlquery.SelectAttr(link, "href")),
		}
		raw.Normalize()
		out = append(out, raw)
	}
	return out, len(items), nil
}

func findFirst(n *html.Node, exprs ...string) *html.Node {
	for _, expr := range exprs {
		if found := htmlquery.FindOne(n, expr); found != nil {
			return found
		}
	}
	return nil
}

func resolve(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
