package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datapeak/curator/internal/middleware"
	"github.com/datapeak/curator/internal/services"
)

type approveSubmissionController struct{ svc services.ApprovalService }

func NewApproveSubmissionController(svc services.ApprovalService) *approveSubmissionController {
	return &approveSubmissionController{svc}
}

type reviewReq struct {
	ReviewerID string `json:"reviewerId,omitempty"` // ignored when the request is authenticated
}

func reviewerFrom(c *gin.Context) string {
	if id := middleware.GetCallerID(c); id != "" {
		return id
	}
	var req reviewReq
	_ = c.ShouldBindJSON(&req)
	return req.ReviewerID
}

func (h *approveSubmissionController) Handle(c *gin.Context) {
	sub, err := h.svc.Approve(c.Request.Context(), c.Param("id"), reviewerFrom(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
