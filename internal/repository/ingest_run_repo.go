package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"NewsPulse/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// IngestRunRepository 抓取运行记录
type IngestRunRepository interface {
	Start(ctx context.Context, company, topic string, pages int) (*model.IngestRun, error)
	Finish(ctx context.Context, run *model.IngestRun, stats model.IngestStats, runErr error) error
	List(ctx context.Context, page, pageSize int) ([]*model.IngestRun, int64, error)
	GetByUUID(ctx context.Context, runUUID string) (*model.IngestRun, error)
}

type ingestRunRepository struct {
	db *gorm.DB
}

func NewIngestRunRepository(db *gorm.DB) IngestRunRepository {
	return &ingestRunRepository{db: db}
}

func (r *ingestRunRepository) Start(ctx context.Context, company, topic string, pages int) (*model.IngestRun, error) {
	run := &model.IngestRun{
		RunUUID:   uuid.NewString(),
		Company:   company,
		Topic:     topic,
		Pages:     pages,
		Status:    model.RunStatusRunning,
		Stats:     datatypes.JSON("{}"),
		StartedAt: time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("创建运行记录失败: %w", err)
	}
	return run, nil
}

func (r *ingestRunRepository) Finish(ctx context.Context, run *model.IngestRun, stats model.IngestStats, runErr error) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("序列化统计失败: %w", err)
	}
	now := time.Now()
	run.Stats = raw
	run.FinishedAt = &now
	run.Status = model.RunStatusSuccess
	if runErr != nil {
		msg := runErr.Error()
		run.Status = model.RunStatusFailed
		run.Error = &msg
	}
	if err := r.db.WithContext(ctx).Model(&model.IngestRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"status":      run.Status,
			"stats":       run.Stats,
			"error":       run.Error,
			"finished_at": run.FinishedAt,
		}).Error; err != nil {
		return fmt.Errorf("更新运行记录失败: %w, run_uuid: %s", err, run.RunUUID)
	}
	return nil
}

func (r *ingestRunRepository) List(ctx context.Context, page, pageSize int) ([]*model.IngestRun, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	db := r.db.WithContext(ctx).Model(&model.IngestRun{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var runs []*model.IngestRun
	if err := db.Order("started_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&runs).Error; err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

func (r *ingestRunRepository) GetByUUID(ctx context.Context, runUUID string) (*model.IngestRun, error) {
	var run model.IngestRun
	if err := r.db.WithContext(ctx).Where("run_uuid = ?", runUUID).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}
