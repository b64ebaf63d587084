package api

import "github.com/gin-gonic/gin"

// Handlers 全部对外接口
type Handlers struct {
	Ingest  *IngestHandler
	Analyze *AnalyzeHandler
	News    *NewsHandler
	Health  *HealthHandler
}

func RegisterRoutes(r gin.IRouter, h Handlers) {
	// 前端页面使用的三个接口
	r.POST("/fetch_news", h.Ingest.FetchNews)
	r.POST("/analyze", h.Analyze.Analyze)
	r.POST("/fetch_news_data", h.News.FetchNewsData)

	r.GET("/api/ingest/runs", h.Ingest.ListRuns)
	r.GET("/api/ingest/runs/:run_uuid", h.Ingest.GetRun)
	r.GET("/healthz", h.Health.Healthz)
}
