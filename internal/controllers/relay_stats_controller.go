package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datapeak/curator/internal/services"
)

type relayStatsController struct{ svc services.RelayService }

func NewRelayStatsController(svc services.RelayService) *relayStatsController {
	return &relayStatsController{svc}
}

func (h *relayStatsController) Handle(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
