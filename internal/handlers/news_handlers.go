package handlers

import (
	"net/http"

	"fitpass_backend/internal/models"
	"fitpass_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// NewsHandler serves the news feed.
type NewsHandler struct {
	newsService services.NewsService
}

func NewNewsHandler(ns services.NewsService) *NewsHandler {
	return &NewsHandler{newsService: ns}
}

// GetNews lists published news, optionally for one club.
func (h *NewsHandler) GetNews(c *gin.Context) {
	var filters models.NewsFilters
	if !bindQuery(c, &filters) {
		return
	}

	items, err := h.newsService.ListNews(filters)
	if err != nil {
		respondServiceError(c, err, "GetNews: error from newsService.ListNews")
		return
	}
	if items == nil {
		items = []models.News{}
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (h *NewsHandler) GetNewsByID(c *gin.Context) {
	newsID, ok := paramID(c, "id")
	if !ok {
		return
	}

	item, err := h.newsService.GetNews(newsID)
	if err != nil {
		respondServiceError(c, err, "GetNewsByID: error from newsService.GetNews")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *NewsHandler) CreateNews(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req models.NewsPayload
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.newsService.CreateNews(actor, req)
	if err != nil {
		respondServiceError(c, err, "CreateNews: error from newsService.CreateNews")
		return
	}
	c.JSON(http.StatusCreated, item)
}
