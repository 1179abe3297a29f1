package payment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v76"
)

func TestWrapStripeCardError(t *testing.T) {
	err := wrapStripe("charging", &stripe.Error{Type: stripe.ErrorTypeCard, Msg: "Your card has insufficient funds."})

	assert.ErrorIs(t, err, ErrCardDeclined)
	var ce *CardError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, "Your card has insufficient funds.", ce.Message)
}

func TestWrapStripeOtherErrors(t *testing.T) {
	apiErr := &stripe.Error{Type: stripe.ErrorTypeAPI, Msg: "boom"}
	err := wrapStripe("charging", apiErr)

	assert.NotErrorIs(t, err, ErrCardDeclined)
	assert.ErrorIs(t, err, apiErr)
	assert.Contains(t, err.Error(), "charging")
}
