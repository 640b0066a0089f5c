package httpserver

import (
	"net/http"

	cartsvc "tienda-marketplace/internal/service/cart"
	ordersvc "tienda-marketplace/internal/service/order"

	"github.com/gin-gonic/gin"
)

func getCartHandler(svc *cartsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := svc.GetOrCreate(c.Request.Context(), currentUser(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

func addItemHandler(svc *cartsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in cartsvc.AddItemInput
		if err := c.ShouldBindJSON(&in); err != nil {
			writeValidationError(c, err)
			return
		}
		cart, err := svc.AddItem(c.Request.Context(), currentUser(c), in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

type updateQuantityInput struct {
	Quantity int `json:"quantity"`
}

func updateQuantityHandler(svc *cartsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in updateQuantityInput
		if err := c.ShouldBindJSON(&in); err != nil {
			writeValidationError(c, err)
			return
		}
		cart, err := svc.UpdateQuantity(c.Request.Context(), currentUser(c), c.Param("lineID"), in.Quantity)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

func removeItemHandler(svc *cartsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := svc.RemoveItem(c.Request.Context(), currentUser(c), c.Param("lineID"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

func confirmHandler(svc *ordersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in ordersvc.ConfirmInput
		if err := c.ShouldBindJSON(&in); err != nil {
			writeValidationError(c, err)
			return
		}
		ord, err := svc.Confirm(c.Request.Context(), currentUser(c), in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, ord)
	}
}
