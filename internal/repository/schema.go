package repository

import (
	"context"
	"fmt"

	"NewsPulse/internal/model"

	"gorm.io/gorm"
)

// EnsureTopicSchema 按类别建表（幂等）。表名随类别变化，无法走 AutoMigrate。
// 两个文章表共用一个序列，保证同一实例内 id 不会在 news / news_API 之间重复。
func EnsureTopicSchema(ctx context.Context, db *gorm.DB, topics []model.Topic) error {
	for _, t := range topics {
		category := quoteIdent(t.CategoryTable())
		idCol := quoteIdent(t.CategoryIDColumn())
		nameCol := quoteIdent(t.CategoryNameColumn())
		seq := quoteIdent(t.ArticleSequence())

		stmts := []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				%s BIGSERIAL PRIMARY KEY,
				%s TEXT NOT NULL
			)`, category, idCol, nameCol),
			fmt.Sprintf(`CREATE SEQUENCE IF NOT EXISTS %s`, seq),
		}
		for _, v := range model.Variants {
			table := t.ArticleTable(v)
			stmts = append(stmts,
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
					id BIGINT PRIMARY KEY DEFAULT nextval('%s'),
					%s BIGINT NOT NULL,
					title TEXT NOT NULL,
					date VARCHAR(16) NOT NULL,
					content TEXT NOT NULL,
					source VARCHAR(128) NOT NULL,
					url TEXT,
					created_at TIMESTAMP DEFAULT now()
				)`, quoteIdent(table), t.ArticleSequence(), idCol),
				fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (%s, date)`,
					quoteIdent("idx_"+table+"_category_date"), quoteIdent(table), idCol),
				fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (date, source)`,
					quoteIdent("idx_"+table+"_date_source"), quoteIdent(table)),
			)
		}
		sentiment := t.SentimentTable()
		stmts = append(stmts,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				news_id BIGINT NOT NULL,
				sentiment DOUBLE PRECISION NOT NULL,
				star INT NOT NULL CHECK (star BETWEEN 1 AND 5),
				emotion INT NOT NULL CHECK (emotion IN (-1, 0, 1)),
				created_at TIMESTAMP DEFAULT now()
			)`, quoteIdent(sentiment)),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (news_id)`,
				quoteIdent("idx_"+sentiment+"_news_id"), quoteIdent(sentiment)),
		)

		for _, stmt := range stmts {
			if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
				return fmt.Errorf("初始化%s表结构失败: %w", t, err)
			}
		}
	}
	return nil
}
