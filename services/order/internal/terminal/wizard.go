package terminal

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/storefront/platform/services/order/internal/checkout"
	"github.com/storefront/platform/services/order/internal/models"
	"github.com/storefront/platform/services/order/internal/payment"
)

// ErrAborted is returned when the customer quits the checkout.
var ErrAborted = errors.New("checkout aborted")

var shippingFields = []struct{ name, label string }{
	{"fullName", "Full name"},
	{"addressLine1", "Address line 1"},
	{"addressLine2", "Address line 2 (optional)"},
	{"city", "City"},
	{"state", "State"},
	{"pinCode", "PIN code"},
	{"phone", "Phone"},
	{"email", "Email"},
}

var methods = []struct {
	method models.PaymentMethod
	label  string
}{
	{models.PaymentMethodCard, "Credit / debit card"},
	{models.PaymentMethodUPI, "UPI"},
	{models.PaymentMethodNetBanking, "Net banking"},
	{models.PaymentMethodCOD, "Cash on delivery"},
}

// Wizard walks the customer through the checkout steps on a console.
type Wizard struct {
	orch    *checkout.Orchestrator
	console *Console
}

func NewWizard(orch *checkout.Orchestrator, console *Console) *Wizard {
	return &Wizard{orch: orch, console: console}
}

// Run collects the session and places the order. It returns once an order
// exists, the customer quits, or the input or ctx ends.
func (w *Wizard) Run(ctx context.Context) (*models.Order, error) {
	for {
		var err error
		switch w.orch.Session().CurrentStep {
		case checkout.StepShipping:
			err = w.shipping(ctx)
		case checkout.StepPayment:
			err = w.payment(ctx)
		case checkout.StepReview:
			var order *models.Order
			order, err = w.review(ctx)
			if order != nil {
				return order, nil
			}
		}
		if err != nil {
			return nil, err
		}
	}
}

func (w *Wizard) shipping(ctx context.Context) error {
	w.console.Printf("\n== Step 1 of 3: Shipping address ==\n")
	current := w.orch.Session().ShippingAddress
	values := map[string]string{
		"fullName": current.FullName, "addressLine1": current.AddressLine1, "addressLine2": current.AddressLine2,
		"city": current.City, "state": current.State, "pinCode": current.PinCode,
		"phone": current.Phone, "email": current.Email,
	}

	for _, f := range shippingFields {
		label := f.label + ": "
		if values[f.name] != "" {
			label = f.label + " [" + values[f.name] + "]: "
		}
		value, err := w.console.ReadLine(ctx, label)
		if err != nil {
			return err
		}
		if value == "" {
			continue
		}
		if err := w.orch.Edit(func(s *checkout.Session) error { return s.SetShippingField(f.name, value) }); err != nil {
			return err
		}
	}
	return w.advance()
}

func (w *Wizard) payment(ctx context.Context) error {
	w.console.Printf("\n== Step 2 of 3: Payment ==\n")
	for i, m := range methods {
		w.console.Printf("  %d. %s\n", i+1, m.label)
	}
	choice, err := w.console.ReadLine(ctx, "Choose a payment method (b to go back): ")
	if err != nil {
		return err
	}
	if choice == "b" {
		return w.orch.Retreat()
	}

	var method models.PaymentMethod
	if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(methods) {
		method = methods[n-1].method
	}
	details, err := w.details(ctx, method)
	if err != nil {
		return err
	}

	err = w.orch.Edit(func(s *checkout.Session) error {
		s.SelectPaymentMethod(method)
		if details != nil {
			s.SetPaymentDetails(details)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return w.advance()
}

func (w *Wizard) details(ctx context.Context, method models.PaymentMethod) (payment.Details, error) {
	switch method {
	case models.PaymentMethodCard:
		answers, err := w.readAll(ctx, "Card number: ", "Name on card: ", "Expiry (MM/YY): ", "CVV: ")
		if err != nil {
			return nil, err
		}
		return payment.CardDetails{Number: answers[0], Holder: answers[1], Expiry: answers[2], CVV: answers[3]}, nil
	case models.PaymentMethodUPI:
		id, err := w.console.ReadLine(ctx, "UPI ID: ")
		if err != nil {
			return nil, err
		}
		return payment.UPIDetails{UPIID: id}, nil
	case models.PaymentMethodNetBanking:
		banks := payment.Banks()
		for i, b := range banks {
			w.console.Printf("  %d. %s\n", i+1, strings.ToUpper(string(b)))
		}
		choice, err := w.console.ReadLine(ctx, "Choose your bank: ")
		if err != nil {
			return nil, err
		}
		if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(banks) {
			choice = string(banks[n-1])
		}
		return payment.NetBankingDetails{Bank: strings.ToLower(choice)}, nil
	case models.PaymentMethodCOD:
		return payment.CODDetails{}, nil
	}
	return nil, nil
}

func (w *Wizard) readAll(ctx context.Context, labels ...string) ([]string, error) {
	answers := make([]string, 0, len(labels))
	for _, label := range labels {
		v, err := w.console.ReadLine(ctx, label)
		if err != nil {
			return nil, err
		}
		answers = append(answers, v)
	}
	return answers, nil
}

func (w *Wizard) review(ctx context.Context) (*models.Order, error) {
	s := w.orch.Session()
	a := s.ShippingAddress
	w.console.Printf("\n== Step 3 of 3: Review ==\n")
	w.console.Printf("Ship to: %s, %s, %s, %s %s\n", a.FullName, a.AddressLine1, a.City, a.State, a.PinCode)
	w.console.Printf("Contact: %s / %s\n", a.Phone, a.Email)
	w.console.Printf("Payment: %s\n", s.PaymentMethod)
	if s.OrderNotes != "" {
		w.console.Printf("Notes: %s\n", s.OrderNotes)
	}

	choice, err := w.console.ReadLine(ctx, "[p]lace order, add [n]otes, [b]ack, [q]uit: ")
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(choice) {
	case "n":
		notes, err := w.console.ReadLine(ctx, "Order notes: ")
		if err != nil {
			return nil, err
		}
		return nil, w.orch.Edit(func(s *checkout.Session) error { s.SetNotes(notes); return nil })
	case "b":
		return nil, w.orch.Retreat()
	case "q":
		return nil, ErrAborted
	case "p":
		return w.place(ctx)
	}
	return nil, nil
}

func (w *Wizard) place(ctx context.Context) (*models.Order, error) {
	w.console.Printf("Placing your order...\n")
	order, err := w.orch.Submit(ctx)

	var invalid *payment.InvalidDetailsError
	var validation *checkout.ValidationError
	switch {
	case err == nil:
		w.console.Printf("Order %s placed. Total %s %s\n", order.OrderNumber, order.Currency, order.Total.StringFixed(2))
		return order, nil
	case errors.As(err, &invalid):
		w.console.Printf("Please check your payment details: %s\n", invalid.Message)
		return nil, w.orch.Retreat()
	case errors.As(err, &validation):
		_, msg := validation.Fields.First()
		w.console.Printf("%s\n", msg)
		return nil, w.orch.Edit(func(s *checkout.Session) error {
			for s.CurrentStep > validation.Step {
				s.Retreat()
			}
			return nil
		})
	case errors.Is(err, payment.ErrPaymentCancelled):
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		w.console.Printf("Payment cancelled. Your order was not placed.\n")
	case errors.Is(err, payment.ErrPaymentDeclined):
		w.console.Printf("Payment failed: %v\n", err)
	case errors.Is(err, checkout.ErrOrderCreationFailed):
		w.console.Printf("We could not place your order. Please try again.\n")
	case errors.Is(err, checkout.ErrEmptyCart):
		return nil, err
	default:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		w.console.Printf("Something went wrong: %v\n", err)
	}
	return nil, nil
}

func (w *Wizard) advance() error {
	err := w.orch.Advance()
	var validation *checkout.ValidationError
	if errors.As(err, &validation) {
		_, msg := validation.Fields.First()
		w.console.Printf("%s\n", msg)
		return nil
	}
	return err
}
