// Package payment holds the per-method checks a checkout must pass before an
// order is created. A Strategy returns nil only when it judges the payment
// successful; every other outcome means no order may be created.
package payment

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/shopspring/decimal"

	"github.com/storefront/platform/services/order/internal/models"
)

var (
	// ErrPaymentDeclined means the external step failed (popup blocked, timeout).
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrPaymentCancelled means the customer rejected the payment prompt.
	ErrPaymentCancelled = errors.New("payment cancelled")
	// ErrUnsupportedMethod is returned by the registry for unknown methods.
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	// ErrDetailsMismatch means the details belong to a different method.
	ErrDetailsMismatch = errors.New("payment details do not match payment method")
)

// InvalidDetailsError reports the first failing payment detail field.
type InvalidDetailsError struct {
	Field   string
	Message string
}

func (e *InvalidDetailsError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Details is the method-specific data collected on the payment step.
type Details interface {
	Method() models.PaymentMethod
}

type CardDetails struct {
	Number string `json:"cardNumber" validate:"required,cardnumber"`
	Holder string `json:"cardholderName" validate:"required"`
	Expiry string `json:"expiryDate" validate:"required,expiry"`
	CVV    string `json:"cvv" validate:"required,cvv"`
}

func (CardDetails) Method() models.PaymentMethod { return models.PaymentMethodCard }

type UPIDetails struct {
	UPIID string `json:"upiId" validate:"required,upiid"`
}

func (UPIDetails) Method() models.PaymentMethod { return models.PaymentMethodUPI }

type NetBankingDetails struct {
	Bank string `json:"selectedBank" validate:"required,bank"`
}

func (NetBankingDetails) Method() models.PaymentMethod { return models.PaymentMethodNetBanking }

type CODDetails struct{}

func (CODDetails) Method() models.PaymentMethod { return models.PaymentMethodCOD }

// Strategy is the protocol specific to one payment channel.
type Strategy interface {
	Method() models.PaymentMethod
	// Validate checks detail completeness without side effects.
	Validate(details Details) error
	// Authorize runs the external confirmation for amount. A nil return means
	// the order may be created.
	Authorize(ctx context.Context, details Details, amount Amount) error
}

// Amount is the sum being paid together with its currency.
type Amount struct {
	Value    decimal.Decimal
	Currency string
}

func (a Amount) String() string {
	return a.Currency + " " + a.Value.StringFixed(2)
}

// Registry maps payment methods to their strategy.
type Registry struct {
	strategies map[models.PaymentMethod]Strategy
}

func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[models.PaymentMethod]Strategy, len(strategies))}
	for _, s := range strategies {
		r.strategies[s.Method()] = s
	}
	return r
}

func (r *Registry) Get(method models.PaymentMethod) (Strategy, error) {
	s, ok := r.strategies[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	return s, nil
}

func checkMethod(want models.PaymentMethod, details Details) error {
	if isNil(details) {
		if want == models.PaymentMethodCOD {
			return nil
		}
		return fmt.Errorf("%w: no details for %s", ErrDetailsMismatch, want)
	}
	if details.Method() != want {
		return fmt.Errorf("%w: got %s details for %s", ErrDetailsMismatch, details.Method(), want)
	}
	return nil
}

// isNil also catches a nil pointer stored in the interface.
func isNil(details Details) bool {
	if details == nil {
		return true
	}
	v := reflect.ValueOf(details)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
