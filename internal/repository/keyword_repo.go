package repository

import (
	"context"
	"fmt"

	"NewsPulse/internal/model"

	"gorm.io/gorm"
)

// KeywordRepository 关键字表（stock/health/sport）只读访问
type KeywordRepository interface {
	ListCategories(ctx context.Context, topic model.Topic) ([]*model.KeywordCategory, error)
}

type keywordRepository struct {
	db *gorm.DB
}

func NewKeywordRepository(db *gorm.DB) KeywordRepository {
	return &keywordRepository{db: db}
}

// ListCategories 拉取某类别的全部关键字
func (r *keywordRepository) ListCategories(ctx context.Context, topic model.Topic) ([]*model.KeywordCategory, error) {
	var rows []*model.KeywordCategory
	err := r.db.WithContext(ctx).
		Table(topic.CategoryTable()).
		Select(fmt.Sprintf("%s AS id, %s AS display_name",
			quoteIdent(topic.CategoryIDColumn()), quoteIdent(topic.CategoryNameColumn()))).
		Order(quoteIdent(topic.CategoryIDColumn()) + " ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询%s关键字失败: %w", topic, err)
	}
	for _, row := range rows {
		row.Topic = topic
	}
	return rows, nil
}
