package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/storefront/platform/services/order/internal/models"
)

// COD needs no payment step; the order is settled on delivery.
type COD struct{}

func (COD) Method() models.PaymentMethod { return models.PaymentMethodCOD }

func (COD) Validate(details Details) error {
	return checkMethod(models.PaymentMethodCOD, details)
}

func (c COD) Authorize(_ context.Context, details Details, _ Amount) error {
	return c.Validate(details)
}

// Card simulates a card gateway with a single confirmation prompt.
type Card struct {
	port ConfirmationPort
}

func NewCard(port ConfirmationPort) *Card {
	return &Card{port: port}
}

func (c *Card) Method() models.PaymentMethod { return models.PaymentMethodCard }

func (c *Card) Validate(details Details) error {
	if err := checkMethod(models.PaymentMethodCard, details); err != nil {
		return err
	}
	return validateDetails(details)
}

func (c *Card) Authorize(ctx context.Context, details Details, amount Amount) error {
	if err := c.Validate(details); err != nil {
		return err
	}
	card := asCard(details)
	digits := CardDigits(card.Number)
	return confirm(ctx, c.port, Prompt{
		Title:   "Card payment",
		Message: fmt.Sprintf("Pay %s with card ending %s?", amount, digits[len(digits)-4:]),
	})
}

// UPI simulates a collect request approved in the customer's UPI app.
type UPI struct {
	port ConfirmationPort
}

func NewUPI(port ConfirmationPort) *UPI {
	return &UPI{port: port}
}

func (u *UPI) Method() models.PaymentMethod { return models.PaymentMethodUPI }

func (u *UPI) Validate(details Details) error {
	if err := checkMethod(models.PaymentMethodUPI, details); err != nil {
		return err
	}
	return validateDetails(details)
}

func (u *UPI) Authorize(ctx context.Context, details Details, amount Amount) error {
	if err := u.Validate(details); err != nil {
		return err
	}
	var id string
	switch d := details.(type) {
	case UPIDetails:
		id = d.UPIID
	case *UPIDetails:
		id = d.UPIID
	}
	return confirm(ctx, u.port, Prompt{
		Title:   "UPI payment",
		Message: fmt.Sprintf("Approve the request of %s sent to %s?", amount, id),
	})
}

func asCard(details Details) CardDetails {
	switch d := details.(type) {
	case CardDetails:
		return d
	case *CardDetails:
		return *d
	}
	return CardDetails{}
}

// confirm maps a prompt answer onto the payment errors.
func confirm(ctx context.Context, port ConfirmationPort, prompt Prompt) error {
	ok, err := port.Confirm(ctx, prompt)
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrPaymentCancelled, err)
	case err != nil:
		return fmt.Errorf("%w: %w", ErrPaymentDeclined, err)
	case !ok:
		return ErrPaymentCancelled
	}
	return nil
}
