package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datapeak/curator/internal/services"
)

type getUserController struct{ svc services.CurationService }

func NewGetUserController(svc services.CurationService) *getUserController {
	return &getUserController{svc}
}

func (h *getUserController) Handle(c *gin.Context) {
	user, err := h.svc.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
