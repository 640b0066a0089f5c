package httpserver

import (
	"net/http"

	"tienda-marketplace/internal/domain"

	"github.com/gin-gonic/gin"
)

// paymentInfoHandler lists the accepted payment methods and the account
// details a buyer needs for a bank transfer.
func paymentInfoHandler(info PaymentInfo) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"methods": []domain.PaymentMethod{
				domain.PaymentCashOnDelivery,
				domain.PaymentBankTransfer,
				domain.PaymentCard,
			},
			"bankTransfer": gin.H{
				"accountHolder": info.BankAccountHolder,
				"accountNumber": info.BankAccountNumber,
			},
		})
	}
}
