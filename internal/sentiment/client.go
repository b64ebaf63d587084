package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"NewsPulse/internal/config"
	"NewsPulse/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// ErrBadLabel 模型标签无法解析成星级
var ErrBadLabel = errors.New("sentiment: unrecognised label")

// Prediction 得分最高的标签，如 {"5 stars", 0.62}
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type Classifier interface {
	Predict(ctx context.Context, text string) (Prediction, error)
}

// HTTPClassifier 调用 HuggingFace 风格的推理接口：POST {"inputs": text}
type HTTPClassifier struct {
	endpoint   string
	apiKey     string
	maxChars   int
	httpClient *http.Client
}

func NewHTTPClassifier(cfg config.SentimentConfig, logger *logrus.Logger) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/" + cfg.Model,
		apiKey:   cfg.APIKey,
		maxChars: cfg.MaxChars,
		httpClient: httpclient.New(httpclient.Options{
			Timeout:    time.Duration(cfg.Timeout) * time.Second,
			RetryCount: cfg.RetryCount,
		}, logger),
	}
}

func (c *HTTPClassifier) Predict(ctx context.Context, text string) (Prediction, error) {
	payload, err := json.Marshal(map[string]string{"inputs": truncate(text, c.maxChars)})
	if err != nil {
		return Prediction{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Prediction{}, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("请求情绪模型失败: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if err := httpclient.CheckStatus(resp); err != nil {
		return Prediction{}, err
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Prediction{}, fmt.Errorf("解析情绪模型响应失败: %w", err)
	}
	return pickBest(raw)
}

// pickBest 兼容 [[{label,score}...]] 与 [{label,score}...] 两种返回
func pickBest(raw json.RawMessage) (Prediction, error) {
	var nested [][]Prediction
	var flat []Prediction
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 {
		flat = nested[0]
	} else if err := json.Unmarshal(raw, &flat); err != nil {
		return Prediction{}, fmt.Errorf("情绪模型响应格式不支持: %w", err)
	}
	if len(flat) == 0 {
		return Prediction{}, errors.New("情绪模型返回空结果")
	}
	best := flat[0]
	for _, p := range flat[1:] {
		if p.Score > best.Score {
			best = p
		}
	}
	return best, nil
}

// ParseStar "4 stars" / "1 star" -> 4 / 1
func ParseStar(label string) (int, error) {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadLabel, label)
	}
	star, err := strconv.Atoi(fields[0])
	if err != nil || star < 1 || star > 5 {
		return 0, fmt.Errorf("%w: %q", ErrBadLabel, label)
	}
	return star, nil
}

func truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes])
}
