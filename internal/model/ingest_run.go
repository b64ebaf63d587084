package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// IngestRun 每次抓取入库的运行记录
type IngestRun struct {
	ID         uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID" json:"-"`
	RunUUID    string         `gorm:"column:run_uuid;type:varchar(64);uniqueIndex;not null;comment:运行ID" json:"run_uuid"`
	Company    string         `gorm:"column:company;type:varchar(32);not null;comment:来源" json:"company"`
	Topic      string         `gorm:"column:topic;type:varchar(16);not null;comment:类别" json:"topic"`
	Pages      int            `gorm:"column:pages;type:int;not null;comment:抓取页数" json:"pages"`
	Status     string         `gorm:"column:status;type:varchar(16);default:running;comment:状态：running/success/failed" json:"status"`
	Stats      datatypes.JSON `gorm:"column:stats;type:jsonb;comment:统计" json:"stats"`
	Error      *string        `gorm:"column:error;type:text;comment:错误信息" json:"error,omitempty"`
	StartedAt  time.Time      `gorm:"column:started_at;type:timestamp;not null;comment:开始时间" json:"started_at"`
	FinishedAt *time.Time     `gorm:"column:finished_at;type:timestamp;comment:结束时间" json:"finished_at,omitempty"`
}

func (IngestRun) TableName() string { return "ingest_runs" }

// IngestStats 单次运行的计数
type IngestStats struct {
	Fetched    int `json:"fetched"`
	Irrelevant int `json:"irrelevant"`
	Capped     int `json:"capped"`
	Duplicates int `json:"duplicates"`
	Inserted   int `json:"inserted"`
	Failed     int `json:"failed"`
}
