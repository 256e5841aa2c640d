package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datapeak/curator/internal/services"
)

type curationStatsController struct{ svc services.CurationService }

func NewCurationStatsController(svc services.CurationService) *curationStatsController {
	return &curationStatsController{svc}
}

func (h *curationStatsController) Handle(c *gin.Context) {
	stats, err := h.svc.GetCurationStats(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
