package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Baaaki/stockroom/internal/models"
	"github.com/Baaaki/stockroom/internal/service"
	"github.com/Baaaki/stockroom/internal/storage"
	"github.com/Baaaki/stockroom/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ItemHandler struct {
	itemService     *service.ItemService
	blobs           storage.BlobStore
	defaultImageURL string
}

func NewItemHandler(itemService *service.ItemService, blobs storage.BlobStore, defaultImageURL string) *ItemHandler {
	return &ItemHandler{
		itemService:     itemService,
		blobs:           blobs,
		defaultImageURL: defaultImageURL,
	}
}

// ItemView is the wire shape of an item. ImageURL always resolves:
// items without a blob get the configured placeholder.
type ItemView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	CreatedBy   string  `json:"created_by"`
	ImageURL    string  `json:"image_url"`
}

func (h *ItemHandler) view(item *models.Item) ItemView {
	imageURL := h.defaultImageURL
	if item.ImagePath != "" {
		imageURL = h.blobs.URL(item.ImagePath)
	}
	return ItemView{
		ID:          item.ID.String(),
		Name:        item.Name,
		Description: item.Description,
		Category:    item.Category,
		Price:       item.Price,
		CreatedBy:   item.CreatedBy,
		ImageURL:    imageURL,
	}
}

// ListItems returns the catalog, optionally narrowed by query filters.
// GET /api/items?category=&name=&search=&minPrice=&maxPrice=
func (h *ItemHandler) ListItems(c *gin.Context) {
	filter := models.ItemFilter{
		Category: c.Query("category"),
		Search:   c.Query("name"),
	}
	// "search" is an alias for "name", kept from the original API.
	if filter.Search == "" {
		filter.Search = c.Query("search")
	}

	if raw := c.Query("minPrice"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid minPrice"})
			return
		}
		filter.MinPrice = &v
	}
	if raw := c.Query("maxPrice"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid maxPrice"})
			return
		}
		filter.MaxPrice = &v
	}

	items, err := h.itemService.List(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, h.view(item))
	}

	c.JSON(http.StatusOK, views)
}

// CreateItem creates a catalog item from a multipart form, with an
// optional image part. Admin only.
// POST /api/items
func (h *ItemHandler) CreateItem(c *gin.Context) {
	fields, ok := h.bindItemForm(c)
	if !ok {
		return
	}

	image, imageName, ok := openImagePart(c)
	if !ok {
		return
	}
	if image != nil {
		defer image.Close()
	}

	item, err := h.itemService.Create(fields, readerOrNil(image), imageName, c.GetString("username"))
	if err != nil {
		h.respondItemError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.view(item))
}

// UpdateItem rewrites an item's fields, replacing the image reference
// when a new image part is supplied. Admin only.
// PUT /api/items/:id
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	fields, ok := h.bindItemForm(c)
	if !ok {
		return
	}

	image, imageName, ok := openImagePart(c)
	if !ok {
		return
	}
	if image != nil {
		defer image.Close()
	}

	item, err := h.itemService.Update(c.Param("id"), fields, readerOrNil(image), imageName, c.GetString("username"))
	if err != nil {
		h.respondItemError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.view(item))
}

// DeleteItem removes the item and its stored image. Admin only.
// DELETE /api/items/:id
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	if err := h.itemService.Delete(c.Param("id"), c.GetString("username")); err != nil {
		h.respondItemError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item deleted",
	})
}

// bindItemForm parses the shared multipart fields. Price defaults to 0
// when blank, as in the original form handling.
func (h *ItemHandler) bindItemForm(c *gin.Context) (service.ItemFields, bool) {
	fields := service.ItemFields{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Category:    c.PostForm("category"),
	}

	if raw := c.PostForm("price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid price"})
			return fields, false
		}
		fields.Price = v
	}

	return fields, true
}

func (h *ItemHandler) respondItemError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	default:
		logger.Log.Error("Item operation failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}
