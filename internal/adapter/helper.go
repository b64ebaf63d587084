package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"NewsPulse/internal/model"
	"NewsPulse/internal/utils/httpclient"
)

// ParseDate 依次尝试多种时间格式，统一成 YYYY-MM-DD，失败返回占位
func ParseDate(value string, layouts ...string) string {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t.Format(model.DateLayout)
		}
	}
	return model.PlaceholderDate
}

// GetPage 发起 GET 请求并返回响应体，调用方负责关闭
func GetPage(ctx context.Context, client *http.Client, pageURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("User-Agent", httpclient.DefaultUserAgent)
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9,en;q=0.8")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求%s失败: %w", pageURL, err)
	}
	if err := httpclient.CheckStatus(resp); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Windows 把 [1, pages] 切成每段 size 页的窗口，如 pages=7,size=3 -> [1,3] [4,6] [7,7]
func Windows(pages, size int) [][2]int {
	if size <= 0 {
		size = 1
	}
	var out [][2]int
	for start := 1; start <= pages; start += size {
		end := start + size - 1
		if end > pages {
			end = pages
		}
		out = append(out, [2]int{start, end})
	}
	return out
}
