package scheduler

import (
	"context"
	"fmt"

	"NewsPulse/internal/config"
	"NewsPulse/internal/model"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// IngestRunner IngestService 实现
type IngestRunner interface {
	Run(ctx context.Context, company, topic string, pages int) (*model.IngestRun, model.IngestStats, error)
}

// Scheduler 按 cron 表达式依次执行配置里的抓取任务，上一轮未结束时跳过本轮
type Scheduler struct {
	cron   *cron.Cron
	runner IngestRunner
	jobs   []config.JobConfig
	logger *logrus.Logger
}

func New(spec string, jobs []config.JobConfig, runner IngestRunner, logger *logrus.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		runner: runner,
		jobs:   jobs,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("添加定时任务失败: %w", err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.WithField("jobs", len(s.jobs)).Info("定时抓取已启动")
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce 顺序执行全部任务，返回失败的任务数
func (s *Scheduler) RunOnce(ctx context.Context) int {
	failed := 0
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return failed
		}
		log := s.logger.WithFields(logrus.Fields{"company": job.Company, "topic": job.Topic, "pages": job.Pages})
		run, stats, err := s.runner.Run(ctx, job.Company, job.Topic, job.Pages)
		if err != nil {
			failed++
			log.WithError(err).Error("定时抓取失败")
			continue
		}
		log.WithFields(logrus.Fields{"run_uuid": run.RunUUID, "inserted": stats.Inserted}).Info("定时抓取完成")
	}
	return failed
}

// cronLogger 把 cron 内部日志转给 logrus
type cronLogger struct {
	logger *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(toFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(toFields(keysAndValues)).Error(msg)
}

func toFields(kv []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
