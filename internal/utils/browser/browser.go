package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"NewsPulse/internal/utils/httpclient"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/sirupsen/logrus"
)

// Browser 懒启动的无头 Chromium，第一次抓取时才 launch
type Browser struct {
	mu      sync.Mutex
	browser *rod.Browser
	proxy   string
	timeout time.Duration
	logger  *logrus.Logger
}

func New(proxy string, timeout time.Duration, logger *logrus.Logger) *Browser {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Browser{proxy: proxy, timeout: timeout, logger: logger}
}

func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}

	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")
	if b.proxy != "" {
		l = l.Proxy(b.proxy)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	br := rod.New().ControlURL(controlURL)
	if err := br.Connect(); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}
	b.browser = br
	b.logger.Info("无头浏览器已启动")
	return br, nil
}

// HTML 打开页面（隐藏 webdriver 特征），等待 waitSelector 出现后返回渲染后的 HTML。
// 等待超时只记日志，仍返回当前内容。
func (b *Browser) HTML(ctx context.Context, pageURL, waitSelector string) (string, error) {
	br, err := b.connect()
	if err != nil {
		return "", err
	}

	page, err := stealth.Page(br)
	if err != nil {
		return "", fmt.Errorf("创建stealth页面失败: %w", err)
	}
	defer func() { _ = page.Close() }()

	page = page.Context(ctx).Timeout(b.timeout)
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: httpclient.DefaultUserAgent}); err != nil {
		b.logger.WithError(err).Warn("设置UA失败")
	}
	if err := page.Navigate(pageURL); err != nil {
		return "", fmt.Errorf("打开页面%s失败: %w", pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		b.logger.WithError(err).WithField("url", pageURL).Warn("页面加载超时，继续解析")
	}
	if waitSelector != "" {
		if _, err := page.Element(waitSelector); err != nil {
			b.logger.WithError(err).WithFields(logrus.Fields{"url": pageURL, "selector": waitSelector}).Warn("等待元素超时")
		}
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("读取页面HTML失败: %w", err)
	}
	return html, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	return err
}
