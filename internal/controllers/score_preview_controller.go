package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datapeak/curator/internal/services"
	"github.com/datapeak/curator/pkg/domain"
)

type scorePreviewController struct{ svc services.CurationService }

// NewScorePreviewController scores metadata without persisting anything, so
// contributors can iterate before submitting.
func NewScorePreviewController(svc services.CurationService) *scorePreviewController {
	return &scorePreviewController{svc}
}

type scorePreviewReq struct {
	Metadata   domain.SubmissionMetadata `json:"metadata" binding:"required"`
	Reputation int64                     `json:"reputation,omitempty"`
}

func (h *scorePreviewController) Handle(c *gin.Context) {
	var req scorePreviewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	c.JSON(http.StatusOK, h.svc.Score(req.Metadata, req.Reputation))
}
