package model

import (
	"sort"
	"strings"
)

// 缺失字段的占位值（不报错，直接入库）
const (
	PlaceholderTitle       = "No Title"
	PlaceholderDescription = "No description"
	PlaceholderDate        = "No Date"
	PlaceholderURL         = "No URL"
	PlaceholderSource      = "Unknown"
	PlaceholderSummary     = "未找到摘要"
)

// DateLayout 文章日期统一格式
const DateLayout = "2006-01-02"

// InstanceID 数据库实例编号（从1开始）
type InstanceID int

// NewsRef 跨实例的文章标识：id 只在实例内唯一
type NewsRef struct {
	Instance InstanceID
	ID       int64
}

// SortRefs 按 (实例, id) 升序
func SortRefs(refs []NewsRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Instance != refs[j].Instance {
			return refs[i].Instance < refs[j].Instance
		}
		return refs[i].ID < refs[j].ID
	})
}

// RawArticle 各来源抓取到的原始文章
type RawArticle struct {
	Title   string
	Content string
	Date    string // YYYY-MM-DD 或 PlaceholderDate
	Source  string
	URL     string
}

// Article 入库文章，表名随 topic/variant 变化，不走 AutoMigrate
type Article struct {
	ID         int64  `gorm:"column:id" json:"id"`
	CategoryID int64  `gorm:"column:category_id" json:"category_id"`
	Title      string `gorm:"column:title" json:"title"`
	Date       string `gorm:"column:date" json:"date"`
	Content    string `gorm:"column:content" json:"content"`
	Source     string `gorm:"column:source" json:"source"`
	URL        string `gorm:"column:url" json:"url"`
}

// ArticleDate 文章与其日期（情绪表本身不带日期）
type ArticleDate struct {
	Ref  NewsRef
	Date string
}

// RangeFilter 聚合查询条件
type RangeFilter struct {
	StartDate string
	EndDate   string
	Source    string // "all" 表示不过滤
}

// AllSources 是否不按来源过滤
func (f RangeFilter) AllSources() bool {
	return f.Source == "" || strings.EqualFold(f.Source, "all")
}

// CleanText 去掉不间断空格与首尾空白
func CleanText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
}

// Normalize 清理字段并为缺失值填充占位
func (r *RawArticle) Normalize() {
	r.Title = CleanText(r.Title)
	r.Content = CleanText(r.Content)
	r.Source = strings.TrimSpace(r.Source)
	r.URL = strings.TrimSpace(r.URL)
	r.Date = strings.TrimSpace(r.Date)
	if r.Title == "" {
		r.Title = PlaceholderTitle
	}
	if r.Content == "" {
		r.Content = PlaceholderDescription
	}
	if r.Date == "" {
		r.Date = PlaceholderDate
	}
	if r.Source == "" {
		r.Source = PlaceholderSource
	}
	if r.URL == "" {
		r.URL = PlaceholderURL
	}
}

// ToArticle 转为入库模型
func (r *RawArticle) ToArticle(categoryID int64) *Article {
	return &Article{
		CategoryID: categoryID,
		Title:      r.Title,
		Date:       r.Date,
		Content:    r.Content,
		Source:     r.Source,
		URL:        r.URL,
	}
}
