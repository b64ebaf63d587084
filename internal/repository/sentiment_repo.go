package repository

import (
	"context"
	"fmt"

	"NewsPulse/internal/model"

	"gorm.io/gorm"
)

// SentimentRepository 情绪分析结果表（T_news_sentiment）访问
type SentimentRepository interface {
	// ListByNewsIDs 批量查询（调用方负责分批）
	ListByNewsIDs(ctx context.Context, topic model.Topic, newsIDs []int64) ([]*model.SentimentAnnotation, error)
	// Exists 某篇文章是否已有分析结果
	Exists(ctx context.Context, topic model.Topic, newsID int64) (bool, error)
	// Insert 写入一条分析结果
	Insert(ctx context.Context, topic model.Topic, ann *model.SentimentAnnotation) error
}

type sentimentRepository struct {
	db *gorm.DB
}

func NewSentimentRepository(db *gorm.DB) SentimentRepository {
	return &sentimentRepository{db: db}
}

func (r *sentimentRepository) ListByNewsIDs(ctx context.Context, topic model.Topic, newsIDs []int64) ([]*model.SentimentAnnotation, error) {
	if len(newsIDs) == 0 {
		return []*model.SentimentAnnotation{}, nil
	}
	var rows []*model.SentimentAnnotation
	if err := r.db.WithContext(ctx).
		Table(topic.SentimentTable()).
		Where("news_id IN ?", newsIDs).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *sentimentRepository) Exists(ctx context.Context, topic model.Topic, newsID int64) (bool, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Table(topic.SentimentTable()).
		Where("news_id = ?", newsID).
		Limit(1).
		Pluck("id", &ids).Error; err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

func (r *sentimentRepository) Insert(ctx context.Context, topic model.Topic, ann *model.SentimentAnnotation) error {
	if ann.Star < 1 || ann.Star > 5 {
		return fmt.Errorf("星级超出范围: %d", ann.Star)
	}
	ann.Emotion = model.EmotionFromStar(ann.Star)
	if err := r.db.WithContext(ctx).Table(topic.SentimentTable()).Create(ann).Error; err != nil {
		return fmt.Errorf("保存情绪分析结果失败: %w, news_id: %d", err, ann.NewsID)
	}
	return nil
}
