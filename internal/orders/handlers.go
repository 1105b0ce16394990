package orders

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storehq/storefront/internal/httpapi/identity"
	"github.com/storehq/storefront/internal/httpapi/respond"
)

type UseCaseInterface interface {
	CreateOrderFromCart(ctx context.Context, userID string) (View, error)
	ListOrders(ctx context.Context, userID string) ([]View, error)
	GetOrder(ctx context.Context, userID, orderID string) (View, error)
	UpdateStatus(ctx context.Context, userID, orderID, status string) (View, error)
}

type Handler struct {
	useCase UseCaseInterface
}

func NewHandler(useCase UseCaseInterface) *Handler {
	return &Handler{useCase: useCase}
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) Create(c *gin.Context) {
	view, err := h.useCase.CreateOrderFromCart(c.Request.Context(), identity.UserID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handler) List(c *gin.Context) {
	views, err := h.useCase.ListOrders(c.Request.Context(), identity.UserID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) Get(c *gin.Context) {
	view, err := h.useCase.GetOrder(c.Request.Context(), identity.UserID(c), c.Param("orderID"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.useCase.UpdateStatus(c.Request.Context(), identity.UserID(c), c.Param("orderID"), req.Status)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
