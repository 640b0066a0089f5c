package httpserver

import (
	"net/http"
	"time"

	cartsvc "tienda-marketplace/internal/service/cart"
	catalogsvc "tienda-marketplace/internal/service/catalog"
	ordersvc "tienda-marketplace/internal/service/order"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Deps carries the services the router exposes.
type Deps struct {
	CatalogSvc *catalogsvc.Service
	CartSvc    *cartsvc.Service
	OrderSvc   *ordersvc.Service

	// PaymentInfo is shown to buyers choosing bank transfer.
	PaymentInfo PaymentInfo
}

// PaymentInfo is the static checkout payment data taken from configuration.
type PaymentInfo struct {
	BankAccountHolder string
	BankAccountNumber string
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db *pgxpool.Pool, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery(), cors.Default())

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	api := router.Group("/api")

	api.GET("/products", listProductsHandler(deps.CatalogSvc))
	api.GET("/products/:id", getProductHandler(deps.CatalogSvc))
	api.GET("/payment-info", paymentInfoHandler(deps.PaymentInfo))

	authed := api.Group("", requireUser())
	authed.GET("/cart", getCartHandler(deps.CartSvc))
	authed.POST("/cart/items", addItemHandler(deps.CartSvc))
	authed.PATCH("/cart/items/:lineID", updateQuantityHandler(deps.CartSvc))
	authed.DELETE("/cart/items/:lineID", removeItemHandler(deps.CartSvc))
	authed.POST("/cart/confirm", confirmHandler(deps.OrderSvc))

	authed.GET("/orders", listOrdersHandler(deps.OrderSvc))
	authed.GET("/orders/:id", getOrderHandler(deps.OrderSvc))
	authed.POST("/orders/:id/cancel", cancelHandler(deps.OrderSvc))
	authed.POST("/orders/:id/status", setStatusHandler(deps.OrderSvc))
	authed.POST("/orders/:id/commission-paid", commissionPaidHandler(deps.OrderSvc))
	authed.GET("/affiliate/orders", referredOrdersHandler(deps.OrderSvc))

	return router
}

// requireUser trusts the identity header set by the upstream auth layer;
// authentication itself is outside this service.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-ID header"})
			return
		}
		c.Set("userID", userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString("userID")
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}
