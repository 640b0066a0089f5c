package httpserver

import (
	"net/http"

	"tienda-marketplace/internal/domain"
	ordersvc "tienda-marketplace/internal/service/order"

	"github.com/gin-gonic/gin"
)

func listOrdersHandler(svc *ordersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := svc.ListByUser(c.Request.Context(), currentUser(c))
		if err != nil {
			writeError(c, err)
			return
		}
		if orders == nil {
			orders = []domain.Order{}
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}

func getOrderHandler(svc *ordersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ord, err := svc.GetForUser(c.Request.Context(), currentUser(c), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, ord)
	}
}

func cancelHandler(svc *ordersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ord, err := svc.Cancel(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, ord)
	}
}

type setStatusInput struct {
	Status domain.OrderStatus `json:"status"`
}

func setStatusHandler(svc *ordersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in setStatusInput
		if err := c.ShouldBindJSON(&in); err != nil {
			writeValidationError(c, err)
			return
		}
		ord, err := svc.SetStatus(c.Request.Context(), c.Param("id"), in.Status)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, ord)
	}
}

func commissionPaidHandler(svc *ordersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ord, err := svc.MarkCommissionPaid(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, ord)
	}
}

func referredOrdersHandler(svc *ordersvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := svc.ListReferred(c.Request.Context(), currentUser(c))
		if err != nil {
			writeError(c, err)
			return
		}
		if orders == nil {
			orders = []domain.Order{}
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}
