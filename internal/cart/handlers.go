package cart

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storehq/storefront/internal/httpapi/identity"
	"github.com/storehq/storefront/internal/httpapi/respond"
)

type UseCaseInterface interface {
	GetCart(ctx context.Context, userID string) (View, error)
	AddItem(ctx context.Context, userID, productID string, quantity int32) (View, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID string, quantity int32) (View, error)
	RemoveItem(ctx context.Context, userID, itemID string) (View, error)
}

type Handler struct {
	useCase UseCaseInterface
}

func NewHandler(useCase UseCaseInterface) *Handler {
	return &Handler{useCase: useCase}
}

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Quantity  int32  `json:"quantity" binding:"required,gte=1"`
}

type updateQuantityRequest struct {
	Quantity int32 `json:"quantity" binding:"required,gte=1"`
}

func (h *Handler) Get(c *gin.Context) {
	view, err := h.useCase.GetCart(c.Request.Context(), identity.UserID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.useCase.AddItem(c.Request.Context(), identity.UserID(c), req.ProductID, req.Quantity)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) UpdateItemQuantity(c *gin.Context) {
	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.useCase.UpdateItemQuantity(c.Request.Context(), identity.UserID(c), c.Param("itemID"), req.Quantity)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) RemoveItem(c *gin.Context) {
	view, err := h.useCase.RemoveItem(c.Request.Context(), identity.UserID(c), c.Param("itemID"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
