package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datapeak/curator/internal/middleware"
	"github.com/datapeak/curator/internal/services"
	"github.com/datapeak/curator/pkg/domain"
)

type createSubmissionController struct{ svc services.CurationService }

func NewCreateSubmissionController(svc services.CurationService) *createSubmissionController {
	return &createSubmissionController{svc}
}

type createSubmissionReq struct {
	UserID      string                    `json:"userId,omitempty"` // ignored when the request is authenticated
	TaskID      string                    `json:"taskId,omitempty"`
	ResultHash  string                    `json:"resultHash,omitempty"`
	StorageURI  string                    `json:"storageUri,omitempty"`
	Metadata    domain.SubmissionMetadata `json:"metadata" binding:"required"`
	Idempotency string                    `json:"idempotencyKey,omitempty"`
}

func (h *createSubmissionController) Handle(c *gin.Context) {
	var req createSubmissionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	userID := middleware.GetCallerID(c)
	if userID == "" {
		userID = req.UserID
	}
	if claims := middleware.GetCallerClaims(c); claims != nil && !claims.CanContribute(req.Metadata.DataType) {
		c.JSON(http.StatusForbidden, gin.H{"error": "data type not authorized for this token"})
		return
	}

	sub, err := h.svc.CreateSubmission(c.Request.Context(), userID, services.SubmissionInput{
		TaskID:     req.TaskID,
		ResultHash: req.ResultHash,
		StorageURI: req.StorageURI,
		Metadata:   req.Metadata,
	}, req.Idempotency)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}
