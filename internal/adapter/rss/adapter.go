package rss

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
	"NewsPulse/internal/utils/httpclient"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"
)

const Name = "rss"

func init() {
	adapter.Register(Name, NewRSSAdapter)
}

// 正文抽取单篇超时
const extractTimeout = 15 * time.Second

type Adapter struct {
	cfg        *config.SourceConfig
	httpClient *http.Client
	logger     *logrus.Logger
	extract    func(pageURL string) (string, error)
}

func NewRSSAdapter(cfg *config.SourceConfig, logger *logrus.Logger) interfaces.SourceAdapter {
	return &Adapter{
		cfg:        cfg,
		httpClient: httpclient.NewHTTPClient(cfg, logger),
		logger:     logger,
		extract:    extractText,
	}
}

func (a *Adapter) GetName() string        { return Name }
func (a *Adapter) Variant() model.Variant { return model.VariantAPI }

// FetchArticles RSS 搜索没有分页，只在第一页窗口内请求一次
func (a *Adapter) FetchArticles(ctx context.Context, keyword string, startPage, endPage int) ([]*model.RawArticle, error) {
	if startPage > 1 {
		return nil, nil
	}
	body, err := adapter.GetPage(ctx, a.httpClient, a.feedURL(keyword))
	if err != nil {
		return nil, fmt.Errorf("获取RSS失败: %w", err)
	}
	defer func() { _ = body.Close() }()

	articles, err := parseFeed(body)
	if err != nil {
		return nil, err
	}
	if !a.cfg.ExtractContent {
		return articles, nil
	}
	for _, raw := range articles {
		if raw.URL == model.PlaceholderURL {
			continue
		}
		text, err := a.extract(raw.URL)
		if err != nil {
			a.logger.WithError(err).WithField("url", raw.URL).Debug("正文抽取失败，保留摘要")
			continue
		}
		if text = model.CleanText(text); text != "" {
			raw.Content = text
		}
	}
	return articles, nil
}

func (a *Adapter) feedURL(keyword string) string {
	params := url.Values{}
	params.Set("q", keyword)
	lang := a.cfg.Language
	if lang == "" {
		lang = "zh-TW"
	}
	params.Set("hl", lang)
	params.Set("gl", "TW")
	params.Set("ceid", "TW:zh-Hant")
	return a.cfg.BaseURL + "?" + params.Encode()
}

func parseFeed(r io.Reader) ([]*model.RawArticle, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("解析RSS失败: %w", err)
	}

	out := make([]*model.RawArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		date := model.PlaceholderDate
		if item.PublishedParsed != nil {
			date = item.PublishedParsed.In(time.Local).Format(model.DateLayout)
		} else if item.UpdatedParsed != nil {
			date = item.UpdatedParsed.In(time.Local).Format(model.DateLayout)
		}

		title, source := splitSource(item.Title)
		if source == "" && item.Author != nil {
			source = item.Author.Name
		}

		raw := &model.RawArticle{
			Title:   title,
			Content: stripTags(item.Description),
			Date:    date,
			Source:  source,
			URL:     item.Link,
		}
		raw.Normalize()
		out = append(out, raw)
	}
	return out, nil
}

// splitSource 聚合类 RSS 的标题形如“标题 - 媒体名”
func splitSource(title string) (string, string) {
	idx := strings.LastIndex(title, " - ")
	if idx <= 0 {
		return title, ""
	}
	return title[:idx], strings.TrimSpace(title[idx+3:])
}

func stripTags(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return doc.Text()
}

func extractText(pageURL string) (string, error) {
	article, err := readability.FromURL(pageURL, extractTimeout)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}
