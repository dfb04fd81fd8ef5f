// internal/handlers/carousel/carousel_handler.go
package carousel

import (
	"net/http"
	"strconv"

	"memoriza-service/internal/domain/carousel"
	"memoriza-service/internal/middleware"
	"memoriza-service/internal/pkg/response"
	carouselUsecase "memoriza-service/internal/service/carousel"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CarouselHandler struct {
	carouselService *carouselUsecase.CarouselService
	logger          *zap.Logger
}

func NewCarouselHandler(carouselService *carouselUsecase.CarouselService, logger *zap.Logger) *CarouselHandler {
	return &CarouselHandler{
		carouselService: carouselService,
		logger:          logger,
	}
}

// List returns the carousel in display order
func (h *CarouselHandler) List(c *gin.Context) {
	items, err := h.carouselService.List(c.Request.Context(), middleware.GetToken(c))
	if err != nil {
		response.FromError(c, err, "failed to load carousel")
		return
	}

	response.Success(c, http.StatusOK, "carousel retrieved", items)
}

// Create adds a carousel item
func (h *CarouselHandler) Create(c *gin.Context) {
	var req carousel.ItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	item, err := h.carouselService.Create(c.Request.Context(), middleware.GetToken(c), req)
	if err != nil {
		response.FromError(c, err, "failed to create carousel item")
		return
	}

	response.Success(c, http.StatusCreated, "carousel item created", item)
}

// Update replaces a carousel item
func (h *CarouselHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req carousel.ItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	item, err := h.carouselService.Update(c.Request.Context(), middleware.GetToken(c), id, req)
	if err != nil {
		response.FromError(c, err, "failed to update carousel item")
		return
	}

	response.Success(c, http.StatusOK, "carousel item updated", item)
}

// Delete removes a carousel item
func (h *CarouselHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.carouselService.Delete(c.Request.Context(), middleware.GetToken(c), id); err != nil {
		response.FromError(c, err, "failed to delete carousel item")
		return
	}

	response.Success(c, http.StatusOK, "carousel item deleted", nil)
}

// Reorder saves a new order; the first id becomes the primary banner
func (h *CarouselHandler) Reorder(c *gin.Context) {
	var req carousel.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "itemIds must list the carousel items in order", nil)
		return
	}

	items, err := h.carouselService.Reorder(c.Request.Context(), middleware.GetToken(c), req.ItemIDs)
	if err != nil {
		response.FromError(c, err, "failed to reorder carousel")
		return
	}

	response.Success(c, http.StatusOK, "carousel reordered", items)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid carousel item id", nil)
		return 0, false
	}
	return id, true
}
