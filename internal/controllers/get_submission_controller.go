package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datapeak/curator/internal/services"
)

type getSubmissionController struct{ svc services.CurationService }

func NewGetSubmissionController(svc services.CurationService) *getSubmissionController {
	return &getSubmissionController{svc}
}

func (h *getSubmissionController) Handle(c *gin.Context) {
	sub, err := h.svc.GetSubmission(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
