package httpclient

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"NewsPulse/internal/config"

	"github.com/andybalholm/brotli"
	"github.com/sirupsen/logrus"
)

// DefaultUserAgent 抓取站点时使用的 UA
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// maxRetryWait Retry-After 的上限，避免被服务端拖住
const maxRetryWait = 30 * time.Second

// StatusError 非2xx响应
type StatusError struct {
	URL        string
	StatusCode int
	Retryable  bool
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("请求%s返回状态码%d", e.URL, e.StatusCode)
}

// CheckStatus 非2xx时关闭响应体并返回 StatusError
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	_ = resp.Body.Close()
	return &StatusError{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Retryable:  retryableStatus(resp.StatusCode),
	}
}

// NewHTTPClient 通用HTTP客户端构建方法（支持代理、超时、自动解压、有限重试）
func NewHTTPClient(cfg *config.SourceConfig, logger *logrus.Logger) *http.Client {
	return New(Options{
		Timeout:    time.Duration(cfg.Timeout) * time.Second,
		RetryCount: cfg.RetryCount,
		Proxy:      cfg.Proxy,
	}, logger)
}

// Options 不依赖来源配置的客户端参数（LLM、情绪模型等调用方使用）
type Options struct {
	Timeout    time.Duration
	RetryCount int
	Proxy      string
}

func New(opts Options, logger *logrus.Logger) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		IdleConnTimeout:     30 * time.Second,
		DisableCompression:  true, // 由 compressedTransport 统一解压（含 brotli）
		TLSHandshakeTimeout: 10 * time.Second,
	}

	// 配置代理
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			logger.WithError(err).WithField("proxy", opts.Proxy).Warn("代理地址解析失败，将不使用代理")
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
			logger.WithField("proxy", opts.Proxy).Info("HTTP客户端已配置代理")
		}
	}

	var rt http.RoundTripper = &compressedTransport{transport: transport, logger: logger}
	if opts.RetryCount > 0 {
		rt = &retryTransport{next: rt, retries: opts.RetryCount, logger: logger, sleep: sleepCtx}
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: rt,
	}
}

type compressedTransport struct {
	transport http.RoundTripper
	logger    *logrus.Logger
}

func (c *compressedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		// RoundTripper 不能改调用方的请求
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", "gzip, br")
	}
	resp, err := c.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			c.logger.WithError(err).Warn("gzip解压失败，返回原始响应")
			return resp, nil
		}
		resp.Body = &decodedReadCloser{Reader: gzReader, closers: []io.Closer{gzReader, resp.Body}}
	case "br":
		resp.Body = &decodedReadCloser{Reader: brotli.NewReader(resp.Body), closers: []io.Closer{resp.Body}}
	default:
		return resp, nil
	}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	return resp, nil
}

// decodedReadCloser 解压后的响应体，关闭时依次关闭解压器与原始响应体
type decodedReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (d *decodedReadCloser) Close() error {
	var first error
	for _, c := range d.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// retryTransport 对网络错误、429、5xx 做有限次重试，等待期间响应 ctx 取消
type retryTransport struct {
	next    http.RoundTripper
	retries int
	logger  *logrus.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var (
		resp *http.Response
		err  error
	)
	ctx := req.Context()
	for attempt := 0; ; attempt++ {
		attemptReq := req
		if attempt > 0 && req.Body != nil {
			// 带 body 的请求需要能重放
			if req.GetBody == nil {
				return resp, err
			}
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return resp, err
			}
			attemptReq = req.Clone(ctx)
			attemptReq.Body = body
		}

		resp, err = t.next.RoundTrip(attemptReq)
		if attempt >= t.retries || ctx.Err() != nil {
			return resp, err
		}

		wait := backoff(attempt)
		switch {
		case err != nil:
		case retryableStatus(resp.StatusCode):
			if ra := parseRetryAfter(resp.Header.Get("Retry-After")); ra > 0 {
				wait = ra
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		default:
			return resp, nil
		}

		t.logger.WithError(err).WithFields(logrus.Fields{
			"url":     req.URL.String(),
			"attempt": attempt + 1,
			"wait":    wait.String(),
		}).Warn("请求失败，准备重试")
		if serr := t.sleep(ctx, wait); serr != nil {
			return nil, serr
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * 500 * time.Millisecond
}

// parseRetryAfter 支持秒数与 HTTP 日期两种格式
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(value); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(value); err == nil {
		d = time.Until(at)
	}
	if d < 0 {
		return 0
	}
	if d > maxRetryWait {
		return maxRetryWait
	}
	return d
}
