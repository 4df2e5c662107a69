package handlers

import (
	"net/http"
	"strconv"
	"time"

	"fitpass_backend/internal/models"
	"fitpass_backend/internal/services"
	"fitpass_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ClassHandler serves the class schedule.
type ClassHandler struct {
	classService services.ClassService
}

func NewClassHandler(cs services.ClassService) *ClassHandler {
	return &ClassHandler{classService: cs}
}

// GetClasses lists classes, upcoming only unless include_past is set.
func (h *ClassHandler) GetClasses(c *gin.Context) {
	var filters models.ClassFilters
	if !bindQuery(c, &filters) {
		return
	}
	var ok bool
	if filters.From, ok = timeQuery(c, "from"); !ok {
		return
	}
	if filters.To, ok = timeQuery(c, "to"); !ok {
		return
	}
	filters.Page, filters.PageSize = normalizePage(filters.Page, filters.PageSize)

	classes, total, err := h.classService.ListClasses(filters)
	if err != nil {
		respondServiceError(c, err, "GetClasses: error from classService.ListClasses")
		return
	}
	if classes == nil {
		classes = []models.Class{}
	}
	respondPage(c, classes, total, filters.Page, filters.PageSize)
}

func (h *ClassHandler) GetClassByID(c *gin.Context) {
	classID, ok := paramID(c, "id")
	if !ok {
		return
	}

	class, err := h.classService.GetClass(classID)
	if err != nil {
		respondServiceError(c, err, "GetClassByID: error from classService.GetClass")
		return
	}
	c.JSON(http.StatusOK, class)
}

// CreateClass adds a class to the club in the path.
func (h *ClassHandler) CreateClass(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	clubID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.ClassPayload
	if !bindJSON(c, &req) {
		return
	}

	class, err := h.classService.CreateClass(actor, clubID, req)
	if err != nil {
		respondServiceError(c, err, "CreateClass: error from classService.CreateClass")
		return
	}
	c.JSON(http.StatusCreated, class)
}

func (h *ClassHandler) UpdateClass(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	classID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.ClassPayload
	if !bindJSON(c, &req) {
		return
	}

	class, err := h.classService.UpdateClass(actor, classID, req)
	if err != nil {
		respondServiceError(c, err, "UpdateClass: error from classService.UpdateClass")
		return
	}
	c.JSON(http.StatusOK, class)
}

// DeleteClass removes a class. With cancel_bookings=true its confirmed
// bookings are cancelled and refunded first.
func (h *ClassHandler) DeleteClass(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	classID, ok := paramID(c, "id")
	if !ok {
		return
	}
	cancelBookings, _ := strconv.ParseBool(c.DefaultQuery("cancel_bookings", "false"))

	cancelled, err := h.classService.DeleteClass(actor, classID, cancelBookings)
	if err != nil {
		respondServiceError(c, err, "DeleteClass: error from classService.DeleteClass")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Class deleted", "cancelled_bookings": cancelled})
}

// timeQuery parses an optional RFC3339 query parameter, responding 400 when malformed.
func timeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		utils.RespondValidationFailed(c, "Invalid "+name+" format. Use RFC3339.")
		return nil, false
	}
	return &t, true
}
