package api

import (
	"context"
	"errors"
	"net/http"

	"NewsPulse/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Lister interface {
	List(ctx context.Context, q service.ListingQuery) ([]service.NewsRow, error)
}

type NewsHandler struct {
	lister Lister
	logger *logrus.Logger
}

func NewNewsHandler(lister Lister, logger *logrus.Logger) *NewsHandler {
	return &NewsHandler{lister: lister, logger: logger}
}

// FetchNewsData 原始新闻列表（附情绪）
// POST /fetch_news_data {"topic":"stock","company":"all","date":"2024-03-01","emotion":"positive"}
func (h *NewsHandler) FetchNewsData(c *gin.Context) {
	var q service.ListingQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	rows, err := h.lister.List(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuery) || errors.Is(err, service.ErrUnknownCompany) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		h.logger.WithError(err).Error("FetchNewsData failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No data found."})
		return
	}
	c.JSON(http.StatusOK, rows)
}
