package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	"github.com/noah-isme/attendance-tracker-api/internal/models"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
	"github.com/noah-isme/attendance-tracker-api/pkg/response"
)

type collectionService interface {
	Create(ctx context.Context, ownerID string, req dto.CollectionRequest) (*dto.CollectionResponse, error)
	Replace(ctx context.Context, ownerID, id string, req dto.CollectionRequest) (*dto.CollectionResponse, error)
	Get(ctx context.Context, ownerID, id string) (*dto.CollectionResponse, error)
	List(ctx context.Context, ownerID string, page, size int) ([]models.Collection, *models.Pagination, error)
	ListShared(ctx context.Context, page, size int) ([]models.Collection, *models.Pagination, error)
	Clone(ctx context.Context, ownerID, sourceID string) (*dto.CollectionResponse, error)
	UpdateSettings(ctx context.Context, ownerID, id string, req dto.CollectionSettingsRequest) (*models.Collection, error)
	Delete(ctx context.Context, ownerID, id string) error
	Timetable(ctx context.Context, ownerID, id string) (*dto.TimetableResponse, error)
}

// CollectionHandler exposes collection endpoints.
type CollectionHandler struct {
	service collectionService
}

// NewCollectionHandler constructs a collection handler.
func NewCollectionHandler(svc collectionService) *CollectionHandler {
	return &CollectionHandler{service: svc}
}

// Create godoc
// @Summary Create collection
// @Description Create a term timetable; sessions are generated in the background
// @Tags Collections
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Caller identity"
// @Param payload body dto.CollectionRequest true "Collection payload"
// @Success 201 {object} response.Envelope
// @Router /collections [post]
func (h *CollectionHandler) Create(c *gin.Context) {
	var req dto.CollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	collection, err := h.service.Create(c.Request.Context(), ownerFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, collection)
}

// List godoc
// @Summary List own collections
// @Tags Collections
// @Produce json
// @Param X-User-ID header string true "Caller identity"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /collections [get]
func (h *CollectionHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	items, pagination, err := h.service.List(c.Request.Context(), ownerFromContext(c), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// ListShared godoc
// @Summary List shared collections
// @Tags Collections
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /collections/shared [get]
func (h *CollectionHandler) ListShared(c *gin.Context) {
	page, size := pageParams(c)
	items, pagination, err := h.service.ListShared(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get collection
// @Tags Collections
// @Produce json
// @Param id path string true "Collection ID"
// @Success 200 {object} response.Envelope
// @Router /collections/{id} [get]
func (h *CollectionHandler) Get(c *gin.Context) {
	collection, err := h.service.Get(c.Request.Context(), ownerFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, collection, nil)
}

// Replace godoc
// @Summary Replace collection
// @Description Rebuild courses, schedules and sessions from the submitted timetable. Attendance history is discarded.
// @Tags Collections
// @Accept json
// @Produce json
// @Param id path string true "Collection ID"
// @Param payload body dto.CollectionRequest true "Collection payload"
// @Success 200 {object} response.Envelope
// @Router /collections/{id} [put]
func (h *CollectionHandler) Replace(c *gin.Context) {
	var req dto.CollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	collection, err := h.service.Replace(c.Request.Context(), ownerFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, collection, nil)
}

// UpdateSettings godoc
// @Summary Update collection settings
// @Tags Collections
// @Accept json
// @Produce json
// @Param id path string true "Collection ID"
// @Param payload body dto.CollectionSettingsRequest true "Settings payload"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/settings [patch]
func (h *CollectionHandler) UpdateSettings(c *gin.Context) {
	var req dto.CollectionSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	collection, err := h.service.UpdateSettings(c.Request.Context(), ownerFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, collection, nil)
}

// Delete godoc
// @Summary Delete collection
// @Tags Collections
// @Param id path string true "Collection ID"
// @Success 204
// @Router /collections/{id} [delete]
func (h *CollectionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), ownerFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Clone godoc
// @Summary Clone shared collection
// @Tags Collections
// @Produce json
// @Param id path string true "Source collection ID"
// @Success 201 {object} response.Envelope
// @Router /collections/{id}/clone [post]
func (h *CollectionHandler) Clone(c *gin.Context) {
	collection, err := h.service.Clone(c.Request.Context(), ownerFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, collection)
}

// Timetable godoc
// @Summary Weekly timetable grid
// @Tags Collections
// @Produce json
// @Param id path string true "Collection ID"
// @Success 200 {object} response.Envelope
// @Router /collections/{id}/timetable [get]
func (h *CollectionHandler) Timetable(c *gin.Context) {
	timetable, err := h.service.Timetable(c.Request.Context(), ownerFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}
