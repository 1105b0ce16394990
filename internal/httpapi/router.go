// Package httpapi assembles the gin router.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/storehq/storefront/internal/cart"
	"github.com/storehq/storefront/internal/catalog"
	"github.com/storehq/storefront/internal/httpapi/identity"
	"github.com/storehq/storefront/internal/orders"
)

type Handlers struct {
	Catalog *catalog.Handler
	Cart    *cart.Handler
	Orders  *orders.Handler
}

func NewRouter(serviceName string, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})

	api := r.Group("/api", identity.Middleware())

	products := api.Group("/products")
	products.GET("", h.Catalog.List)
	products.GET("/:productID", h.Catalog.Get)

	admin := products.Group("", identity.RequireAdmin())
	admin.POST("", h.Catalog.Create)
	admin.PUT("/:productID", h.Catalog.Update)
	admin.DELETE("/:productID", h.Catalog.Delete)

	userCart := api.Group("/cart")
	userCart.GET("", h.Cart.Get)
	userCart.POST("/items", h.Cart.AddItem)
	userCart.PATCH("/items/:itemID", h.Cart.UpdateItemQuantity)
	userCart.DELETE("/items/:itemID", h.Cart.RemoveItem)

	userOrders := api.Group("/orders")
	userOrders.POST("", h.Orders.Create)
	userOrders.GET("", h.Orders.List)
	userOrders.GET("/:orderID", h.Orders.Get)
	userOrders.PATCH("/:orderID/status", h.Orders.UpdateStatus)

	return r
}
