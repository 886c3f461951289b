package controllers

import (
	"net/http"

	"tool_lending_admin/stats"

	"github.com/gin-gonic/gin"
)

// GET /api/stats  每次都基于完整快照重新计算
func (s *Srv) Stats(c *gin.Context) {
	snap, err := s.Repo.LoadSnapshot(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	st := stats.Compute(snap, s.Cfg.LowStockThreshold)
	s.Metrics.ObserveStats(st)
	c.JSON(http.StatusOK, st)
}
