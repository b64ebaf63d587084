package repository

import (
	"strings"

	"NewsPulse/internal/model"

	"gorm.io/gorm"
)

// Instance 一个数据库实例上的全部仓储，聚合时 id 必须与实例编号一起使用
type Instance struct {
	ID         model.InstanceID
	Keywords   KeywordRepository
	Articles   ArticleRepository
	Sentiments SentimentRepository
}

// NewInstance 基于同一个 gorm 连接创建实例仓储
func NewInstance(id model.InstanceID, db *gorm.DB) Instance {
	return Instance{
		ID:         id,
		Keywords:   NewKeywordRepository(db),
		Articles:   NewArticleRepository(db),
		Sentiments: NewSentimentRepository(db),
	}
}

// FindInstance 按编号查找实例
func FindInstance(instances []Instance, id model.InstanceID) (Instance, bool) {
	for _, ins := range instances {
		if ins.ID == id {
			return ins, true
		}
	}
	return Instance{}, false
}

// quoteIdent 表名/列名带大小写（如 stockID），必须加引号
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
