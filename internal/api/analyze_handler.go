package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"NewsPulse/internal/model"
	"NewsPulse/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Analyzer interface {
	Analyze(ctx context.Context, req service.AnalyzeRequest) (*service.AnalyzeResult, error)
}

type AnalyzeHandler struct {
	analyzer Analyzer
	logger   *logrus.Logger
}

func NewAnalyzeHandler(analyzer Analyzer, logger *logrus.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: analyzer, logger: logger}
}

// Analyze 情绪分布图与每日情绪时间序列
// @Summary 情绪分析
// @Param mode formData string false "database/realtime"
// @Param topic formData string true "stock/health/sports"
// @Param startDate formData string true "YYYY-MM-DD"
// @Param endDate formData string true "YYYY-MM-DD"
// @Param source formData string false "来源，all 表示全部"
// @Success 200 {object} service.AnalyzeResult
// @Router /analyze [post]
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	mode, err := service.ParseAnalyzeMode(strings.TrimSpace(c.PostForm("mode")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid mode"})
		return
	}
	topic, err := model.ParseTopic(c.PostForm("topic"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid topic"})
		return
	}

	req := service.AnalyzeRequest{
		Mode: mode,
		Query: service.AggregateQuery{
			Topic: topic,
			RangeFilter: model.RangeFilter{
				StartDate: strings.TrimSpace(c.PostForm("startDate")),
				EndDate:   strings.TrimSpace(c.PostForm("endDate")),
				Source:    strings.TrimSpace(c.DefaultPostForm("source", "all")),
			},
		},
	}
	result, err := h.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		h.logger.WithError(err).WithField("topic", topic).Error("分析失败")
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
