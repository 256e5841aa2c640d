package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datapeak/curator/internal/services"
)

type relaySweepController struct{ svc services.RelayService }

// NewRelaySweepController triggers one discovery pass out of band, mainly
// for operators who don't want to wait for the next tick.
func NewRelaySweepController(svc services.RelayService) *relaySweepController {
	return &relaySweepController{svc}
}

func (h *relaySweepController) Handle(c *gin.Context) {
	enqueued, err := h.svc.SweepOnce(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enqueued": enqueued})
}
