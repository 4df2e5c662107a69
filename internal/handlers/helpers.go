package handlers

import (
	"net/http"
	"strconv"

	"fitpass_backend/internal/middleware"
	"fitpass_backend/internal/services"
	"fitpass_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// currentUserID reads the authenticated user id. It responds with 401 and returns false when missing.
func currentUserID(c *gin.Context) (int64, bool) {
	raw, exists := c.Get(middleware.ContextUserID)
	userID, ok := raw.(int64)
	if !exists || !ok || userID <= 0 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", "Missing user ID in context"))
		return 0, false
	}
	return userID, true
}

// optionalUserID is 0 for anonymous requests.
func optionalUserID(c *gin.Context) int64 {
	id, _ := c.Get(middleware.ContextUserID)
	userID, _ := id.(int64)
	return userID
}

func currentActor(c *gin.Context) (services.Actor, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return services.Actor{}, false
	}
	return services.Actor{UserID: userID, Role: c.GetString(middleware.ContextUserRole)}, true
}

// paramID parses a positive int64 path parameter, responding 400 on failure.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+name+" format.", c.Param(name)))
		return 0, false
	}
	return id, true
}

// bindJSON binds the request body, responding 400 on failure.
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload.", err.Error()))
		return false
	}
	return true
}

// bindQuery binds query parameters, responding 400 on failure.
func bindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid query parameters.", err.Error()))
		return false
	}
	return true
}

// pagination reads page and page_size with the service defaults applied.
func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return normalizePage(page, pageSize)
}

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func respondPage(c *gin.Context, data interface{}, total, page, pageSize int) {
	c.JSON(http.StatusOK, gin.H{
		"data":      data,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
