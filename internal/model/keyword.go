package model

// KeywordCategory 关键字，如 {1, "stock", "台積電"}
type KeywordCategory struct {
	ID          int64  `gorm:"column:id"`
	Topic       Topic  `gorm:"-"`
	DisplayName string `gorm:"column:display_name"`
}
