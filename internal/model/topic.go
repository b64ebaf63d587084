package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownTopic = errors.New("unknown topic")

// Topic 关键字类别（每个类别对应一组数据表）
type Topic string

const (
	TopicStock  Topic = "stock"
	TopicHealth Topic = "health"
	TopicSport  Topic = "sport"
)

// Topics 所有类别，迁移与定时任务按此顺序
var Topics = []Topic{TopicStock, TopicHealth, TopicSport}

// ParseTopic 解析类别名称，前端传入的 "sports" 视为 sport
func ParseTopic(s string) (Topic, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stock":
		return TopicStock, nil
	case "health":
		return TopicHealth, nil
	case "sport", "sports":
		return TopicSport, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTopic, s)
}

// CategoryTable 关键字表，如 stock
func (t Topic) CategoryTable() string { return string(t) }

// CategoryIDColumn 关键字表主键，同时是文章表的外键列，如 stockID
func (t Topic) CategoryIDColumn() string { return string(t) + "ID" }

// CategoryNameColumn 关键字名称列，如 stock_name
func (t Topic) CategoryNameColumn() string { return string(t) + "_name" }

// ArticleTable 文章表，如 stock_news / stock_news_API
func (t Topic) ArticleTable(v Variant) string { return string(t) + "_" + string(v) }

// ArticleSequence 两个文章表共用的主键序列
func (t Topic) ArticleSequence() string { return string(t) + "_news_id_seq" }

// SentimentTable 情绪分析结果表，如 stock_news_sentiment
func (t Topic) SentimentTable() string { return string(t) + "_news_sentiment" }

// Label 用于相关性判断提示词的中文类别名
func (t Topic) Label() string {
	switch t {
	case TopicStock:
		return "股市"
	case TopicHealth:
		return "健康"
	case TopicSport:
		return "運動"
	}
	return string(t)
}

// Variant 文章表变体：站点爬取 / 聚合API
type Variant string

const (
	VariantPrimary Variant = "news"
	VariantAPI     Variant = "news_API"
)

var Variants = []Variant{VariantPrimary, VariantAPI}
