package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"NewsPulse/internal/model"
	"NewsPulse/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Ingester IngestService 对外接口
type Ingester interface {
	Run(ctx context.Context, company, topic string, pages int) (*model.IngestRun, model.IngestStats, error)
	ListRuns(ctx context.Context, page, pageSize int) ([]*model.IngestRun, int64, error)
	GetRun(ctx context.Context, runUUID string) (*model.IngestRun, error)
}

type IngestHandler struct {
	ingest Ingester
	logger *logrus.Logger
}

func NewIngestHandler(ingest Ingester, logger *logrus.Logger) *IngestHandler {
	return &IngestHandler{ingest: ingest, logger: logger}
}

type fetchNewsRequest struct {
	Company string `json:"company"`
	Topic   string `json:"topic"`
	Pages   int    `json:"pages"`
}

// FetchNews 按来源和类别抓取入库（同步执行）
// @Summary 抓取新闻
// @Param body body fetchNewsRequest true "company/topic/pages"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /fetch_news [post]
func (h *IngestHandler) FetchNews(c *gin.Context) {
	var req fetchNewsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid company or topic"})
		return
	}

	// 抓取可能持续数分钟，客户端断开不中断本次任务
	ctx := context.WithoutCancel(c.Request.Context())
	run, stats, err := h.ingest.Run(ctx, req.Company, req.Topic, req.Pages)
	if err != nil {
		if errors.Is(err, service.ErrUnknownCompany) || errors.Is(err, model.ErrUnknownTopic) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid company or topic"})
			return
		}
		h.logger.WithError(err).WithFields(logrus.Fields{"company": req.Company, "topic": req.Topic}).Error("抓取失败")
		resp := gin.H{"message": "Error executing ingestion", "details": err.Error()}
		if run != nil {
			resp["run_uuid"] = run.RunUUID
		}
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "success",
		"run_uuid": run.RunUUID,
		"stats":    stats,
	})
}

// ListRuns 抓取运行记录
// GET /api/ingest/runs?page=1&page_size=20
func (h *IngestHandler) ListRuns(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	list, total, err := h.ingest.ListRuns(c.Request.Context(), page, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("ListRuns failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"list":      list,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetRun 单次运行详情
// GET /api/ingest/runs/:run_uuid
func (h *IngestHandler) GetRun(c *gin.Context) {
	runUUID := c.Param("run_uuid")
	if runUUID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "run_uuid is required"})
		return
	}
	run, err := h.ingest.GetRun(c.Request.Context(), runUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "run not found"})
			return
		}
		h.logger.WithError(err).Error("GetRun failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}
