package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/DailyBrief/internal/scheduler"
	"github.com/LJTian/DailyBrief/internal/storage"
)

type Server struct {
	store    *storage.Store
	pipeline *scheduler.Pipeline
}

func NewServer(store *storage.Store, pipeline *scheduler.Pipeline) *Server {
	return &Server{store: store, pipeline: pipeline}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/report/latest", s.latestReport)
		v1.POST("/report/trigger", s.triggerReport)
		v1.GET("/runs", s.listRuns)
		v1.GET("/runs/:id/sources", s.listRunSources)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// latestReport 返回最近一轮缓存的简报图片
func (s *Server) latestReport(c *gin.Context) {
	png, at, ok := s.store.LatestReport()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "no report generated yet",
		})
		return
	}
	if !at.IsZero() {
		c.Header("X-Report-Generated-At", at.Format(time.RFC3339))
	}
	c.Data(http.StatusOK, "image/png", png)
}

// triggerReport 手动触发一轮简报；上一轮未结束时返回 409
func (s *Server) triggerReport(c *gin.Context) {
	// 手动触发同样走完整流程；请求立即返回，不等待整轮结束
	if err := s.pipeline.Start(context.Background()); err != nil {
		if errors.Is(err, scheduler.ErrRunInFlight) {
			c.JSON(http.StatusConflict, gin.H{
				"code":    "run_in_flight",
				"message": "a report run is already in flight",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"code":    "accepted",
		"message": "report run started",
	})
}

func (s *Server) listRuns(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "20")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 20
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    runs,
	})
}

func (s *Server) listRunSources(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": "invalid run id",
		})
		return
	}

	statuses, err := s.store.ListRunStatuses(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    statuses,
	})
}

// BasicAuthMiddleware 可选的全站 Basic Auth；/health 免认证便于健康检查
func BasicAuthMiddleware(user, pass string) gin.HandlerFunc {
	const realm = "Restricted"
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
