package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"smmart/internal/auth"
	"smmart/internal/payment"
)

// IdempotencyHeader lets clients retry a confirmation without being charged
// twice.
const IdempotencyHeader = "Idempotency-Key"

// ConfirmPayment charges the caller's organization for a package and moves
// it to that package once the charge succeeds.
func ConfirmPayment(payments *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			PackageName     string `json:"package_name" binding:"required"`
			PaymentMethodID string `json:"payment_method_id" binding:"required"`
		}
		if !bindJSON(c, &input) {
			return
		}

		p := auth.Current(c)
		receipt, err := payments.Confirm(c.Request.Context(), p.User, p.Actor(c), payment.ConfirmRequest{
			PackageName:     input.PackageName,
			PaymentMethodID: input.PaymentMethodID,
			IdempotencyKey:  c.GetHeader(IdempotencyHeader),
		})
		var cardErr *payment.CardError
		if errors.As(err, &cardErr) {
			c.JSON(http.StatusBadRequest, gin.H{"message": cardErr.Message})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Success",
			"data":    gin.H{"customer_id": receipt.Customer.ID, "email": receipt.Customer.Email},
			"payment": gin.H{
				"id":                receipt.Payment.ID,
				"payment_intent_id": receipt.Payment.PaymentIntentID,
				"organization":      receipt.Organization.Name,
				"amount":            receipt.Payment.Amount,
				"currency":          receipt.Payment.Currency,
				"succeeded":         receipt.Payment.Succeeded,
			},
			"subscription": receipt.Subscription,
		})
	}
}
