package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Pinger *sql.DB 即可
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	instances map[int]Pinger
	logger    *logrus.Logger
}

func NewHealthHandler(instances map[int]Pinger, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{instances: instances, logger: logger}
}

// Healthz 逐个 ping 数据库实例，任一失败返回 503
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	result := make(map[string]string, len(h.instances))
	for id, p := range h.instances {
		key := strconv.Itoa(id)
		if err := p.PingContext(ctx); err != nil {
			h.logger.WithError(err).WithField("instance", id).Warn("数据库实例不可用")
			result[key] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		result[key] = "ok"
	}
	c.JSON(status, gin.H{"instances": result})
}
