package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datapeak/curator/internal/services"
)

type rejectSubmissionController struct{ svc services.ApprovalService }

func NewRejectSubmissionController(svc services.ApprovalService) *rejectSubmissionController {
	return &rejectSubmissionController{svc}
}

func (h *rejectSubmissionController) Handle(c *gin.Context) {
	sub, err := h.svc.Reject(c.Request.Context(), c.Param("id"), reviewerFrom(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
