package api

import (
	"net/http"

	"go-relief-hub/internal/model"
	"go-relief-hub/internal/service"

	"github.com/gin-gonic/gin"
)

// group_id 为null表示取消订阅
type SetSubscriptionRequest struct {
	GroupID *uint `json:"group_id"`
}

// SubscriptionHandler 只对管理员开放
type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

func (h *SubscriptionHandler) List(c *gin.Context) {
	subs, err := h.subscriptionService.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list share subscriptions")
		return
	}
	items := make([]gin.H, 0, len(subs))
	for i := range subs {
		items = append(items, subscriptionResponse(&subs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": items})
}

func (h *SubscriptionHandler) Set(c *gin.Context) {
	var req SetSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	sub, err := h.subscriptionService.Set(c.Request.Context(), model.ShareWith(c.Param("share_with")), req.GroupID)
	if err != nil {
		respondError(c, err, "Failed to update share subscription")
		return
	}
	c.JSON(http.StatusOK, subscriptionResponse(sub))
}

func subscriptionResponse(sub *model.ShareSubscription) gin.H {
	resp := gin.H{
		"share_with": sub.ShareWith,
		"group_id":   sub.GroupID,
		"updated_at": sub.UpdatedAt,
	}
	if sub.Group != nil {
		resp["group_name"] = sub.Group.Name
	}
	return resp
}
