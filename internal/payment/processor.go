package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// ErrCardDeclined wraps processor errors caused by the card itself; they are
// the caller's problem, not ours.
var ErrCardDeclined = errors.New("card declined")

// CardError carries the processor's message for a declined card.
type CardError struct {
	Message string
}

func (e *CardError) Error() string { return e.Message }

func (e *CardError) Unwrap() error { return ErrCardDeclined }

type Customer struct {
	ID    string
	Email string
}

type ChargeRequest struct {
	CustomerID      string
	PaymentMethodID string
	Amount          int64
	Currency        string
	ReceiptEmail    string
	IdempotencyKey  string
}

type Charge struct {
	ID        string
	Status    string
	Succeeded bool
}

// Processor is the external payment service.
type Processor interface {
	EnsureCustomer(ctx context.Context, name, email, paymentMethodID string) (*Customer, error)
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
}

type StripeProcessor struct {
	api       *client.API
	returnURL string
}

func NewStripeProcessor(secretKey, returnURL string) *StripeProcessor {
	return &StripeProcessor{api: client.New(secretKey, nil), returnURL: returnURL}
}

// EnsureCustomer reuses the first customer registered under email or
// creates one with the payment method attached.
func (p *StripeProcessor) EnsureCustomer(ctx context.Context, name, email, paymentMethodID string) (*Customer, error) {
	list := &stripe.CustomerListParams{Email: stripe.String(email)}
	list.Context = ctx
	list.Limit = stripe.Int64(1)

	it := p.api.Customers.List(list)
	if it.Next() {
		c := it.Customer()
		return &Customer{ID: c.ID, Email: c.Email}, nil
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("listing stripe customers: %w", err)
	}

	params := &stripe.CustomerParams{
		Name:          stripe.String(name),
		Email:         stripe.String(email),
		PaymentMethod: stripe.String(paymentMethodID),
	}
	params.Context = ctx
	c, err := p.api.Customers.New(params)
	if err != nil {
		return nil, wrapStripe("creating stripe customer", err)
	}
	return &Customer{ID: c.ID, Email: c.Email}, nil
}

// Charge creates and confirms a payment intent.
func (p *StripeProcessor) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	params := &stripe.PaymentIntentParams{
		Customer:      stripe.String(req.CustomerID),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(req.Currency),
		Confirm:       stripe.Bool(true),
		ReturnURL:     stripe.String(p.returnURL),
		ReceiptEmail:  stripe.String(req.ReceiptEmail),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, wrapStripe("creating payment intent", err)
	}
	return &Charge{
		ID:        pi.ID,
		Status:    string(pi.Status),
		Succeeded: pi.Status == stripe.PaymentIntentStatusSucceeded,
	}, nil
}

func wrapStripe(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.Type == stripe.ErrorTypeCard {
		return &CardError{Message: se.Msg}
	}
	return fmt.Errorf("%s: %w", op, err)
}
