package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datapeak/curator/internal/middleware"
	"github.com/datapeak/curator/internal/services"
)

type autoApproveController struct{ svc services.CurationService }

func NewAutoApproveController(svc services.CurationService) *autoApproveController {
	return &autoApproveController{svc}
}

type autoApproveReq struct {
	Threshold  int    `json:"threshold,omitempty"` // default from config
	ReviewerID string `json:"reviewerId,omitempty"`
}

func (h *autoApproveController) Handle(c *gin.Context) {
	var req autoApproveReq
	_ = c.ShouldBindJSON(&req) // parameters are optional

	reviewerID := req.ReviewerID
	if reviewerID == "" {
		reviewerID = middleware.GetCallerID(c)
	}

	report, err := h.svc.AutoApproveHighQuality(c.Request.Context(), req.Threshold, reviewerID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
