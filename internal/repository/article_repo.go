package repository

import (
	"context"
	"fmt"

	"NewsPulse/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArticleRepository 文章表（T_news / T_news_API）访问
type ArticleRepository interface {
	// InsertIfAbsent 按 (类别, 标题, 日期, 内容, 来源) 去重后插入，重复时返回 false
	InsertIfAbsent(ctx context.Context, topic model.Topic, variant model.Variant, a *model.Article) (bool, error)
	// CountByCategoryDate 某关键字某天已入库的条数
	CountByCategoryDate(ctx context.Context, topic model.Topic, variant model.Variant, categoryID int64, date string) (int64, error)
	// PageIDs 按日期区间/来源分页拉取 id（按 id 升序）
	PageIDs(ctx context.Context, topic model.Topic, variant model.Variant, filter model.RangeFilter, offset, limit int) ([]int64, error)
	// PageArticles 与 PageIDs 条件相同，返回完整文章（即时情绪分析用）
	PageArticles(ctx context.Context, topic model.Topic, variant model.Variant, filter model.RangeFilter, offset, limit int) ([]*model.Article, error)
	// DatesByIDs 批量查询文章日期
	DatesByIDs(ctx context.Context, topic model.Topic, variant model.Variant, ids []int64) (map[int64]string, error)
	// ListByDate 原始新闻列表，date/source 为空表示不过滤
	ListByDate(ctx context.Context, topic model.Topic, variant model.Variant, date, source string) ([]*model.Article, error)
}

type articleRepository struct {
	db *gorm.DB
}

func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) table(ctx context.Context, topic model.Topic, variant model.Variant) *gorm.DB {
	return r.db.WithContext(ctx).Table(topic.ArticleTable(variant))
}

func categoryEq(topic model.Topic, categoryID int64) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: topic.CategoryIDColumn()}, Value: categoryID}
}

func articleColumns(topic model.Topic) string {
	return fmt.Sprintf(`id, %s AS category_id, title, "date", content, source, url`, quoteIdent(topic.CategoryIDColumn()))
}

func applyRange(db *gorm.DB, filter model.RangeFilter) *gorm.DB {
	db = db.Where(`"date" >= ? AND "date" <= ?`, filter.StartDate, filter.EndDate)
	if !filter.AllSources() {
		db = db.Where("source = ?", filter.Source)
	}
	return db
}

// InsertIfAbsent 先查后插，两步之间没有事务，并发时可能重复
func (r *articleRepository) InsertIfAbsent(ctx context.Context, topic model.Topic, variant model.Variant, a *model.Article) (bool, error) {
	var existing []int64
	err := r.table(ctx, topic, variant).
		Where(categoryEq(topic, a.CategoryID)).
		Where(`title = ? AND "date" = ? AND content = ? AND source = ?`, a.Title, a.Date, a.Content, a.Source).
		Limit(1).
		Pluck("id", &existing).Error
	if err != nil {
		return false, fmt.Errorf("查询重复文章失败: %w", err)
	}
	if len(existing) > 0 {
		a.ID = existing[0]
		return false, nil
	}

	insertSQL := fmt.Sprintf(`INSERT INTO %s (%s, title, "date", content, source, url) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		quoteIdent(topic.ArticleTable(variant)), quoteIdent(topic.CategoryIDColumn()))
	var id int64
	if err := r.db.WithContext(ctx).
		Raw(insertSQL, a.CategoryID, a.Title, a.Date, a.Content, a.Source, a.URL).
		Scan(&id).Error; err != nil {
		return false, fmt.Errorf("保存文章失败: %w, title: %s", err, a.Title)
	}
	a.ID = id
	return true, nil
}

func (r *articleRepository) CountByCategoryDate(ctx context.Context, topic model.Topic, variant model.Variant, categoryID int64, date string) (int64, error) {
	var total int64
	if err := r.table(ctx, topic, variant).
		Where(categoryEq(topic, categoryID)).
		Where(`"date" = ?`, date).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *articleRepository) PageIDs(ctx context.Context, topic model.Topic, variant model.Variant, filter model.RangeFilter, offset, limit int) ([]int64, error) {
	var ids []int64
	db := applyRange(r.table(ctx, topic, variant), filter)
	if err := db.Order("id ASC").Offset(offset).Limit(limit).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *articleRepository) PageArticles(ctx context.Context, topic model.Topic, variant model.Variant, filter model.RangeFilter, offset, limit int) ([]*model.Article, error) {
	var rows []*model.Article
	db := applyRange(r.table(ctx, topic, variant), filter)
	if err := db.Select(articleColumns(topic)).
		Order("id ASC").Offset(offset).Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *articleRepository) DatesByIDs(ctx context.Context, topic model.Topic, variant model.Variant, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ID   int64  `gorm:"column:id"`
		Date string `gorm:"column:date"`
	}
	if err := r.table(ctx, topic, variant).
		Select(`id, "date"`).
		Where("id IN ?", ids).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Date
	}
	return out, nil
}

func (r *articleRepository) ListByDate(ctx context.Context, topic model.Topic, variant model.Variant, date, source string) ([]*model.Article, error) {
	var rows []*model.Article
	db := r.table(ctx, topic, variant).Select(articleColumns(topic))
	if date != "" {
		db = db.Where(`"date" = ?`, date)
	}
	if source != "" {
		db = db.Where("source = ?", source)
	}
	if err := db.Order(`"date" DESC, id ASC`).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
