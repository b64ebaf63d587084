package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"NewsPulse/internal/adapter"
	"NewsPulse/internal/config"
	"NewsPulse/internal/interfaces"
	"NewsPulse/internal/model"
	"NewsPulse/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

const Name = "api"

func init() {
	adapter.Register(Name, NewNewsAPIAdapter)
}

// lookback 只查询最近 30 天
const lookback = 30 * 24 * time.Hour

type apiArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
}

type apiResponse struct {
	Status       string       `json:"status"`
	Code         string       `json:"code"`
	Message      string       `json:"message"`
	TotalResults int          `json:"totalResults"`
	Articles     []apiArticle `json:"articles"`
}

type Adapter struct {
	cfg        *config.SourceConfig
	httpClient *http.Client
	logger     *logrus.Logger
	now        func() time.Time
}

func NewNewsAPIAdapter(cfg *config.SourceConfig, logger *logrus.Logger) interfaces.SourceAdapter {
	return &Adapter{
		cfg:        cfg,
		httpClient: httpclient.NewHTTPClient(cfg, logger),
		logger:     logger,
		now:        time.Now,
	}
}

func (a *Adapter) GetName() string        { return Name }
func (a *Adapter) Variant() model.Variant { return model.VariantAPI }

// FetchArticles 逐页请求 everything 接口；空页即结束，后续页失败时保留已抓到的结果
func (a *Adapter) FetchArticles(ctx context.Context, keyword string, startPage, endPage int) ([]*model.RawArticle, error) {
	var out []*model.RawArticle
	for page := startPage; page <= endPage; page++ {
		articles, err := a.fetchPage(ctx, keyword, page)
		if err != nil {
			if len(out) == 0 {
				return nil, err
			}
			a.logger.WithError(err).WithFields(logrus.Fields{"keyword": keyword, "page": page}).Warn("newsapi分页请求失败，保留已抓取结果")
			break
		}
		if len(articles) == 0 {
			break
		}
		out = append(out, articles...)
	}
	return out, nil
}

func (a *Adapter) fetchPage(ctx context.Context, keyword string, page int) ([]*model.RawArticle, error) {
	now := a.now()
	params := url.Values{}
	params.Set("q", keyword)
	params.Set("from", now.Add(-lookback).Format(model.DateLayout))
	params.Set("to", now.Format(model.DateLayout))
	params.Set("sortBy", "popularity")
	language := a.cfg.Language
	if language == "" {
		language = "zh"
	}
	params.Set("language", language)
	params.Set("page", strconv.Itoa(page))
	if a.cfg.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(a.cfg.PageSize))
	}
	params.Set("apiKey", a.cfg.AuthToken)
	endpoint := fmt.Sprintf("%s/everything?%s", a.cfg.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求 NewsAPI 失败: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			a.logger.Errorf("关闭NewsAPI响应体失败: %v", err)
		}
	}()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("解析 NewsAPI 响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK || body.Status != "ok" {
		return nil, fmt.Errorf("NewsAPI 错误: status=%d code=%s message=%s", resp.StatusCode, body.Code, body.Message)
	}

	out := make([]*model.RawArticle, 0, len(body.Articles))
	for _, item := range body.Articles {
		out = append(out, convert(item))
	}
	return out, nil
}

func convert(item apiArticle) *model.RawArticle {
	date := model.PlaceholderDate
	if item.PublishedAt != "" {
		date = adapter.ParseDate(item.PublishedAt, time.RFC3339, "2006-01-02T15:04:05", model.DateLayout)
	}
	raw := &model.RawArticle{
		Title:   item.Title,
		Content: item.Description,
		Date:    date,
		Source:  item.Source.Name,
		URL:     item.URL,
	}
	raw.Normalize()
	return raw
}
