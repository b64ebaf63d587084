package ltn

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
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

const (
	Name       = "liberty"
	SourceName = "ltn"
)

func init() {
	adapter.Register(Name, NewLTNAdapter)
}

var datePattern = regexp.MustCompile(`\d{4}/\d{2}/\d{2}`)

// 列表页两种布局
const listSelector = "div.cont a, div.article a"

type Adapter struct {
	cfg        *config.SourceConfig
	httpClient *http.Client
	logger     *logrus.Logger
	now        func() time.Time
}

func NewLTNAdapter(cfg *config.SourceConfig, logger *logrus.Logger) interfaces.SourceAdapter {
	return &Adapter{
		cfg:        cfg,
		httpClient: httpclient.NewHTTPClient(cfg, logger),
		logger:     logger,
		now:        time.Now,
	}
}

func (a *Adapter) GetName() string        { return Name }
func (a *Adapter) Variant() model.Variant { return model.VariantPrimary }

// FetchArticles 先翻列表页收集链接，再逐篇抓详情
func (a *Adapter) FetchArticles(ctx context.Context, keyword string, startPage, endPage int) ([]*model.RawArticle, error) {
	links := a.collectLinks(ctx, keyword, startPage, endPage)

	out := make([]*model.RawArticle, 0, len(links))
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		body, err := adapter.GetPage(ctx, a.httpClient, link)
		if err != nil {
			a.logger.WithError(err).WithField("url", link).Warn("自由時報详情页请求失败")
			continue
		}
		raw, err := parseDetail(body, link)
		_ = body.Close()
		if err != nil {
			a.logger.WithError(err).WithField("url", link).Warn("自由時報详情页解析失败")
			continue
		}
		out = append(out, raw)
	}
	return out, nil
}

func (a *Adapter) collectLinks(ctx context.Context, keyword string, startPage, endPage int) []string {
	seen := make(map[string]struct{})
	var links []string
	for page := startPage; page <= endPage; page++ {
		pageURL := fmt.Sprintf("%s?keyword=%s&start_time=20041201&end_time=%s&sort=date&type=all&page=%d",
			a.cfg.BaseURL, url.QueryEscape(keyword), a.now().Format("20060102"), page)
		body, err := adapter.GetPage(ctx, a.httpClient, pageURL)
		if err != nil {
			// 单页失败不影响后续页
			a.logger.WithError(err).WithFields(logrus.Fields{"keyword": keyword, "page": page}).Warn("自由時報列表页请求失败")
			continue
		}
		hrefs, err := parseListing(body)
		_ = body.Close()
		if err != nil {
			a.logger.WithError(err).WithField("page", page).Warn("自由時報列表页解析失败")
			continue
		}
		if len(hrefs) < a.cfg.MinListItems {
			a.logger.WithFields(logrus.Fields{"keyword": keyword, "page": page, "items": len(hrefs)}).Info("列表页内容不足，停止翻页")
			break
		}
		for _, href := range hrefs {
			if _, ok := seen[href]; ok {
				continue
			}
			seen[href] = struct{}{}
			if a.cfg.LinkPrefix != "" && !strings.HasPrefix(href, a.cfg.LinkPrefix) {
				continue
			}
			links = append(links, href)
		}
	}
	return links
}

// parseListing 返回列表页全部链接（含不符合前缀的，用于判断是否翻到底）
func parseListing(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}
	var hrefs []string
	doc.Find(listSelector).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && href != "" {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs, nil
}

// parseDetail 详情页：h1 标题，第二个 span.time 为发布时间，第二个 div.text 为正文（去掉末尾两段）
func parseDetail(r io.Reader, link string) (*model.RawArticle, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}

	date := model.PlaceholderDate
	if times := doc.Find("span.time"); times.Length() > 1 {
		if m := datePattern.FindString(times.Eq(1).Text()); m != "" {
			date = adapter.ParseDate(m, "2006/01/02")
		}
	}

	var content strings.Builder
	if texts := doc.Find("div.text"); texts.Length() > 1 {
		paragraphs := texts.Eq(1).Find("p")
		keep := paragraphs.Length() - 2
		paragraphs.Each(func(i int, p *goquery.Selection) {
			if i < keep {
				content.WriteString(strings.TrimSpace(p.Text()))
			}
		})
	}

	raw := &model.RawArticle{
		Title:   doc.Find("h1").First().Text(),
		Content: content.String(),
		Date:    date,
		Source:  SourceName,
		URL:     link,
	}
	raw.Normalize()
	return raw, nil
}
