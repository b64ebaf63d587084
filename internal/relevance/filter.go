package relevance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"NewsPulse/internal/model"

	"github.com/sirupsen/logrus"
)

// ErrRateLimited 分类服务限流
var ErrRateLimited = errors.New("relevance: rate limited")

// irrelevantMarker 模型回复中包含该词即判为无关
const irrelevantMarker = "無關"

// Classifier 大模型相关性判断
type Classifier interface {
	Name() string
	// Reply 返回模型对 prompt 的原始回复
	Reply(ctx context.Context, prompt string) (string, error)
}

// Mode 单次抓取任务内的判断方式
type Mode int

const (
	ModePrimary Mode = iota
	ModeFallback
)

func (m Mode) String() string {
	if m == ModeFallback {
		return "fallback"
	}
	return "primary"
}

type Filter struct {
	classifier Classifier
	retryPause time.Duration
	logger     *logrus.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewFilter classifier 为 nil 时所有任务都直接走关键字匹配
func NewFilter(classifier Classifier, retryPause time.Duration, logger *logrus.Logger) *Filter {
	return &Filter{
		classifier: classifier,
		retryPause: retryPause,
		logger:     logger,
		sleep:      sleepCtx,
	}
}

// NewRun 每次抓取任务创建一个，降级状态只在本次任务内生效
func (f *Filter) NewRun() *Run {
	return f.NewRunWithMode(ModePrimary)
}

func (f *Filter) NewRunWithMode(mode Mode) *Run {
	if f.classifier == nil {
		mode = ModeFallback
	}
	return &Run{filter: f, mode: mode}
}

type Run struct {
	filter *Filter
	mu     sync.Mutex
	mode   Mode
}

func (r *Run) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// Check 判断文章是否与 topic 下的 keyword 相关。
// 模型调用失败先暂停 retryPause 重试一次，仍失败则本次任务后续全部降级为关键字匹配。
func (r *Run) Check(ctx context.Context, topic model.Topic, keyword, title, body string) bool {
	if r.Mode() == ModeFallback {
		return keywordMatch(keyword, title, body)
	}

	f := r.filter
	prompt := BuildPrompt(topic, title, body)
	reply, err := f.classifier.Reply(ctx, prompt)
	if err != nil {
		f.logger.WithError(err).WithField("classifier", f.classifier.Name()).Warn("相关性判断失败，暂停后重试")
		if serr := f.sleep(ctx, f.retryPause); serr != nil {
			return keywordMatch(keyword, title, body)
		}
		reply, err = f.classifier.Reply(ctx, prompt)
	}
	if err != nil {
		r.mu.Lock()
		r.mode = ModeFallback
		r.mu.Unlock()
		f.logger.WithError(err).WithField("classifier", f.classifier.Name()).Warn("相关性判断重试失败，本次任务改用关键字匹配")
		return keywordMatch(keyword, title, body)
	}
	return !strings.Contains(reply, irrelevantMarker)
}

// BuildPrompt 固定提示词，只替换主题、标题和正文
func BuildPrompt(topic model.Topic, title, body string) string {
	return fmt.Sprintf("以下是今天的新聞資訊。請根據這些資訊判斷其是否是%s新聞，如果不是請回答無關：\n\n標題:\n%s\n\n文章內容:\n%s\n",
		topic.Label(), title, body)
}

func keywordMatch(keyword, title, body string) bool {
	if keyword == "" {
		return false
	}
	return strings.Contains(title, keyword) || strings.Contains(body, keyword)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
