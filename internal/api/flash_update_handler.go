package api

import (
	"net/http"
	"strconv"

	"go-relief-hub/internal/repository"
	"go-relief-hub/internal/service"

	"github.com/gin-gonic/gin"
)

type FlashUpdateHandler struct {
	flashService *service.FlashUpdateService
}

func NewFlashUpdateHandler(flashService *service.FlashUpdateService) *FlashUpdateHandler {
	return &FlashUpdateHandler{flashService: flashService}
}

func (h *FlashUpdateHandler) Create(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	var in service.FlashUpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}

	fu, err := h.flashService.Create(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, err, "Failed to create flash update")
		return
	}
	c.JSON(http.StatusCreated, fu)
}

// List 支持 ?hazard_type=&limit=&offset=
func (h *FlashUpdateHandler) List(c *gin.Context) {
	limit, offset := getPaginationParams(c)
	filter := repository.FlashUpdateFilter{Limit: limit, Offset: offset}
	if raw := c.Query("hazard_type"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid hazard_type parameter"})
			return
		}
		id := uint(v)
		filter.HazardTypeID = &id
	}

	items, total, err := h.flashService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to list flash updates")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": total, "results": items})
}

func (h *FlashUpdateHandler) Get(c *gin.Context) {
	id, ok := getUintParam(c, "id")
	if !ok {
		return
	}
	fu, err := h.flashService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to load flash update")
		return
	}
	c.JSON(http.StatusOK, fu)
}

func (h *FlashUpdateHandler) Update(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	id, ok := getUintParam(c, "id")
	if !ok {
		return
	}
	var in service.FlashUpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}

	fu, err := h.flashService.Update(c.Request.Context(), userID, id, in)
	if err != nil {
		respondError(c, err, "Failed to update flash update")
		return
	}
	c.JSON(http.StatusOK, fu)
}

func (h *FlashUpdateHandler) Patch(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	id, ok := getUintParam(c, "id")
	if !ok {
		return
	}
	var patch service.FlashUpdatePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBindError(c, err)
		return
	}

	fu, err := h.flashService.Patch(c.Request.Context(), userID, id, patch)
	if err != nil {
		respondError(c, err, "Failed to update flash update")
		return
	}
	c.JSON(http.StatusOK, fu)
}

func (h *FlashUpdateHandler) Delete(c *gin.Context) {
	id, ok := getUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.flashService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete flash update")
		return
	}
	c.Status(http.StatusNoContent)
}
