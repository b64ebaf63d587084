package interfaces

import (
	"context"

	"NewsPulse/internal/config"
	"NewsPulse/internal/model"

	"github.com/sirupsen/logrus"
)

// SourceAdapter 所有新闻来源必须实现的核心接口
type SourceAdapter interface {
	GetName() string                                                                                     // 来源名称（chinatimes/liberty/tvbs/api/rss）
	Variant() model.Variant                                                                              // 写入的文章表变体
	FetchArticles(ctx context.Context, keyword string, startPage, endPage int) ([]*model.RawArticle, error) // 按关键字抓取 [startPage, endPage] 页
}

// Factory 来源适配器工厂函数签名
// 入参：来源配置、日志实例
// 出参：实现SourceAdapter接口的适配器实例
type Factory func(cfg *config.SourceConfig, logger *logrus.Logger) SourceAdapter
