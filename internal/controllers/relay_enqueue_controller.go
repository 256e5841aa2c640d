package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datapeak/curator/internal/services"
)

type relayEnqueueController struct{ svc services.RelayService }

func NewRelayEnqueueController(svc services.RelayService) *relayEnqueueController {
	return &relayEnqueueController{svc}
}

func (h *relayEnqueueController) Handle(c *gin.Context) {
	enqueued, err := h.svc.EnqueueRelay(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	// enqueued=false means a claim marker already covers this submission.
	c.JSON(http.StatusAccepted, gin.H{"enqueued": enqueued})
}
