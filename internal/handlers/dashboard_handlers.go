package handlers

import (
	"net/http"

	"fitpass_backend/internal/models"
	"fitpass_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the home screen summary and the admin payout report.
type DashboardHandler struct {
	dashboardService   services.DashboardService
	dailyAccessService services.DailyAccessService
}

func NewDashboardHandler(ds services.DashboardService, das services.DailyAccessService) *DashboardHandler {
	return &DashboardHandler{dashboardService: ds, dailyAccessService: das}
}

func (h *DashboardHandler) GetUserDashboard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	dashboard, err := h.dashboardService.GetUserDashboard(userID)
	if err != nil {
		respondServiceError(c, err, "GetUserDashboard: error from dashboardService.GetUserDashboard")
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// GetDailyAccessPayouts reports the Daily Access credits owed to each club this cycle.
func (h *DashboardHandler) GetDailyAccessPayouts(c *gin.Context) {
	items, err := h.dailyAccessService.GetPayouts()
	if err != nil {
		respondServiceError(c, err, "GetDailyAccessPayouts: error from dailyAccessService.GetPayouts")
		return
	}
	if items == nil {
		items = []models.ClubPayoutItem{}
	}
	total := 0
	for _, it := range items {
		total += it.Credits
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "total_credits": total})
}
