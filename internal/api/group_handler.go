package api

import (
	"net/http"

	"go-relief-hub/internal/model"
	"go-relief-hub/internal/service"
	"go-relief-hub/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GroupHandler 管理通知接收群组
type GroupHandler struct {
	groupService *service.GroupService
}

func NewGroupHandler(groupService *service.GroupService) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
	}
}

func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	var req service.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.L.Warn("Failed to bind CreateGroup request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	group, err := h.groupService.CreateGroup(userID, req)
	if err != nil {
		respondError(c, err, "Failed to create group")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Group created successfully",
		"group":   groupDetail(group),
	})
}

// GetUserGroups 管理员返回全部群组, 用于选择订阅目标
func (h *GroupHandler) GetUserGroups(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	groups, err := h.groupService.ListGroups(user)
	if err != nil {
		respondError(c, err, "Failed to retrieve groups")
		return
	}

	responseGroups := make([]gin.H, 0, len(groups))
	for _, g := range groups {
		responseGroups = append(responseGroups, gin.H{
			"id":             g.ID,
			"name":           g.Name,
			"owner_id":       g.OwnerID,
			"created_at":     g.CreatedAt,
			"owner_username": g.Owner.Username,
		})
	}

	c.JSON(http.StatusOK, gin.H{"groups": responseGroups})
}

func (h *GroupHandler) GetGroupInfo(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	groupID, ok := getUintParam(c, "group_id")
	if !ok {
		return
	}

	group, err := h.groupService.GetGroupInfo(groupID, user)
	if err != nil {
		respondError(c, err, "Failed to retrieve group info")
		return
	}
	c.JSON(http.StatusOK, groupDetail(group))
}

func (h *GroupHandler) AddGroupMember(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	groupID, ok := getUintParam(c, "group_id")
	if !ok {
		return
	}

	var req service.AddGroupMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.L.Warn("Failed to bind AddGroupMember request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: user_id is required"})
		return
	}

	if err := h.groupService.AddGroupMember(groupID, req, user); err != nil {
		logger.L.Warn("Error adding group member", zap.Error(err), zap.Uint("groupID", groupID), zap.Uint("targetUserID", req.UserID), zap.Uint("requesterID", user.ID))
		respondError(c, err, "Failed to add member")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User added to group successfully"})
}

func (h *GroupHandler) RemoveGroupMember(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	groupID, ok := getUintParam(c, "group_id")
	if !ok {
		return
	}
	targetUserID, ok := getUintParam(c, "user_id")
	if !ok {
		return
	}

	if err := h.groupService.RemoveGroupMember(groupID, targetUserID, user); err != nil {
		respondError(c, err, "Failed to remove member")
		return
	}

	message := "User removed from group successfully"
	if user.ID == targetUserID {
		message = "You have left the group successfully"
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

func groupDetail(group *model.Group) gin.H {
	members := make([]gin.H, 0, len(group.Members))
	for _, m := range group.Members {
		members = append(members, gin.H{
			"user_id":  m.UserID,
			"username": m.User.Username,
			"email":    m.User.Email,
			"role":     m.Role,
		})
	}
	return gin.H{
		"id":         group.ID,
		"name":       group.Name,
		"owner_id":   group.OwnerID,
		"created_at": group.CreatedAt,
		"owner": gin.H{
			"user_id":  group.Owner.ID,
			"username": group.Owner.Username,
		},
		"members": members,
	}
}
