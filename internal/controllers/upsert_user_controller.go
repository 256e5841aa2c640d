package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datapeak/curator/internal/services"
	"github.com/datapeak/curator/pkg/domain"
)

type upsertUserController struct{ svc services.CurationService }

func NewUpsertUserController(svc services.CurationService) *upsertUserController {
	return &upsertUserController{svc}
}

type upsertUserReq struct {
	PrimaryAddress   string `json:"primaryAddress,omitempty"`
	SecondaryAddress string `json:"secondaryAddress,omitempty"`
	Reputation       int64  `json:"reputation,omitempty"`
}

func (h *upsertUserController) Handle(c *gin.Context) {
	var req upsertUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	user, err := h.svc.RegisterUser(c.Request.Context(), &domain.User{
		ID:               c.Param("id"),
		PrimaryAddress:   req.PrimaryAddress,
		SecondaryAddress: req.SecondaryAddress,
		Reputation:       req.Reputation,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
