package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"NewsPulse/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// IngestRuns IngestRunRepository 的内存实现
type IngestRuns struct {
	mu   sync.Mutex
	next uint64
	runs []*model.IngestRun
}

func NewIngestRuns() *IngestRuns {
	return &IngestRuns{}
}

func (r *IngestRuns) Start(_ context.Context, company, topic string, pages int) (*model.IngestRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	run := &model.IngestRun{
		ID:        r.next,
		RunUUID:   uuid.NewString(),
		Company:   company,
		Topic:     topic,
		Pages:     pages,
		Status:    model.RunStatusRunning,
		Stats:     datatypes.JSON("{}"),
		StartedAt: time.Now(),
	}
	cp := *run
	r.runs = append(r.runs, &cp)
	return run, nil
}

func (r *IngestRuns) Finish(_ context.Context, run *model.IngestRun, stats model.IngestStats, runErr error) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
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
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.runs {
		if existing.ID == run.ID {
			cp := *run
			r.runs[i] = &cp
		}
	}
	return nil
}

func (r *IngestRuns) List(_ context.Context, page, pageSize int) ([]*model.IngestRun, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sorted := make([]*model.IngestRun, len(r.runs))
	copy(sorted, r.runs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID > sorted[j].ID })

	start := (page - 1) * pageSize
	if start >= len(sorted) {
		return []*model.IngestRun{}, int64(len(sorted)), nil
	}
	end := start + pageSize
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[start:end], int64(len(sorted)), nil
}

func (r *IngestRuns) GetByUUID(_ context.Context, runUUID string) (*model.IngestRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, run := range r.runs {
		if run.RunUUID == runUUID {
			cp := *run
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
