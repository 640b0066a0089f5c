package httpserver

import (
	"net/http"
	"strings"

	"tienda-marketplace/internal/domain"
	catalogsvc "tienda-marketplace/internal/service/catalog"

	"github.com/gin-gonic/gin"
)

func listProductsHandler(svc *catalogsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var typeFilter *domain.ProductType
		switch strings.ToUpper(c.Query("type")) {
		case "":
		case string(domain.ProductPhysical):
			t := domain.ProductPhysical
			typeFilter = &t
		case string(domain.ProductDigital):
			t := domain.ProductDigital
			typeFilter = &t
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown product type"})
			return
		}

		products, err := svc.List(c.Request.Context(), typeFilter)
		if err != nil {
			writeError(c, err)
			return
		}
		if products == nil {
			products = []domain.Product{}
		}
		c.JSON(http.StatusOK, gin.H{"products": products})
	}
}

func getProductHandler(svc *catalogsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}
