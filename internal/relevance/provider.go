package relevance

import (
	"fmt"
	"time"

	"NewsPulse/internal/config"
	"NewsPulse/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// NewFromConfig 按 relevance.provider 构建过滤器；未配置密钥时退化为关键字匹配
func NewFromConfig(cfg config.RelevanceConfig, logger *logrus.Logger) (*Filter, error) {
	httpClient := httpclient.New(httpclient.Options{Timeout: time.Duration(cfg.Timeout) * time.Second}, logger)

	var classifier Classifier
	switch cfg.Provider {
	case "", "none":
	case "gemini":
		if cfg.APIKey != "" {
			classifier = NewGeminiClassifier(cfg.BaseURL, cfg.Model, cfg.APIKey, httpClient)
		}
	case "cohere":
		if cfg.APIKey != "" {
			classifier = NewCohereClassifier(cfg.APIKey, cfg.Model, httpClient)
		}
	default:
		return nil, fmt.Errorf("未知的相关性判断服务: %s", cfg.Provider)
	}

	if classifier == nil {
		logger.WithField("provider", cfg.Provider).Warn("未启用相关性模型，使用关键字匹配")
	} else {
		logger.WithField("provider", classifier.Name()).Info("相关性模型已启用")
	}
	return NewFilter(classifier, cfg.RetryPause, logger), nil
}
