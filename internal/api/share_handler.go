package api

import (
	"net/http"

	"go-relief-hub/internal/model"
	"go-relief-hub/internal/service"

	"github.com/gin-gonic/gin"
)

type ShareRequest struct {
	Recipients []uint `json:"recipients"`
	Groups     []uint `json:"groups"`
}

type ShareHandler struct {
	shareService *service.ShareService
}

func NewShareHandler(shareService *service.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

// Share 两个列表都为空时发送给订阅群组; 没有订阅则返回400
func (h *ShareHandler) Share(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	subjectID, ok := getUintParam(c, "subject_id")
	if !ok {
		return
	}

	var req ShareRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	event, err := h.shareService.Share(c.Request.Context(), userID, subjectID, req.Recipients, req.Groups)
	if err != nil {
		respondError(c, err, "Failed to share flash update")
		return
	}
	c.JSON(http.StatusCreated, shareResponse(event))
}

func (h *ShareHandler) ListForSubject(c *gin.Context) {
	subjectID, ok := getUintParam(c, "id")
	if !ok {
		return
	}
	events, err := h.shareService.ListForSubject(c.Request.Context(), subjectID)
	if err != nil {
		respondError(c, err, "Failed to list shares")
		return
	}

	items := make([]gin.H, 0, len(events))
	for i := range events {
		item := shareResponse(&events[i])
		item["created_by"] = events[i].CreatedByID
		item["created_at"] = events[i].CreatedAt
		item["artifact_url"] = events[i].ArtifactURL
		item["artifact_error"] = events[i].ArtifactError
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"shares": items})
}

func shareResponse(event *model.ShareEvent) gin.H {
	return gin.H{
		"id":         event.ID,
		"subject_id": event.FlashUpdateID,
		"recipients": event.RecipientIDs(),
		"groups":     event.GroupIDs(),
	}
}
