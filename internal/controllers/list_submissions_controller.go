package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/datapeak/curator/internal/services"
	"github.com/datapeak/curator/pkg/domain"
)

type listSubmissionsController struct{ svc services.CurationService }

func NewListSubmissionsController(svc services.CurationService) *listSubmissionsController {
	return &listSubmissionsController{svc}
}

func (h *listSubmissionsController) Handle(c *gin.Context) {
	status := domain.SubmissionStatus(strings.ToUpper(strings.TrimSpace(c.Query("status"))))
	switch status {
	case domain.StatusPending, domain.StatusApproved, domain.StatusRejected:
	case "":
		status = domain.StatusPending
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	subs, err := h.svc.ListByStatus(c.Request.Context(), status, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs, "count": len(subs)})
}
