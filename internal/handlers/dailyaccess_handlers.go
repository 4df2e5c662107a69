package handlers

import (
	"net/http"

	"fitpass_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// DailyAccessHandler manages the gyms pinned under a Daily Access membership.
type DailyAccessHandler struct {
	dailyAccessService services.DailyAccessService
}

func NewDailyAccessHandler(ds services.DailyAccessService) *DailyAccessHandler {
	return &DailyAccessHandler{dailyAccessService: ds}
}

// GetOverview returns the pinned gyms with their credit share and the slot usage.
func (h *DailyAccessHandler) GetOverview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	overview, err := h.dailyAccessService.GetOverview(userID)
	if err != nil {
		respondServiceError(c, err, "GetOverview: error from dailyAccessService.GetOverview")
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *DailyAccessHandler) AddGym(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.AddGymRequest
	if !bindJSON(c, &req) {
		return
	}

	sg, err := h.dailyAccessService.AddGym(userID, req.ClubID)
	if err != nil {
		respondServiceError(c, err, "AddGym: error from dailyAccessService.AddGym")
		return
	}
	c.JSON(http.StatusCreated, sg)
}

func (h *DailyAccessHandler) RemoveGym(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	clubID, ok := paramID(c, "club_id")
	if !ok {
		return
	}

	sg, err := h.dailyAccessService.RemoveGym(userID, clubID)
	if err != nil {
		respondServiceError(c, err, "RemoveGym: error from dailyAccessService.RemoveGym")
		return
	}
	c.JSON(http.StatusOK, sg)
}

// ReplaceGym swaps a pinned gym for another from the next billing date.
func (h *DailyAccessHandler) ReplaceGym(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	clubID, ok := paramID(c, "club_id")
	if !ok {
		return
	}
	var req services.ReplaceGymRequest
	if !bindJSON(c, &req) {
		return
	}

	sg, err := h.dailyAccessService.ReplaceGym(userID, clubID, req.NewClubID)
	if err != nil {
		respondServiceError(c, err, "ReplaceGym: error from dailyAccessService.ReplaceGym")
		return
	}
	c.JSON(http.StatusCreated, sg)
}

func (h *DailyAccessHandler) UndoChange(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	clubID, ok := paramID(c, "club_id")
	if !ok {
		return
	}

	sg, err := h.dailyAccessService.UndoChange(userID, clubID)
	if err != nil {
		respondServiceError(c, err, "UndoChange: error from dailyAccessService.UndoChange")
		return
	}
	c.JSON(http.StatusOK, sg)
}
