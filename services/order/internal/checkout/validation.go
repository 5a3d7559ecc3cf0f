package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/storefront/platform/services/order/internal/models"
)

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("checkout validation failed")

// FieldErrors maps a field path to its message.
type FieldErrors map[string]string

// fieldOrder fixes which failure is reported first.
var fieldOrder = []string{
	"fullName", "addressLine1", "city", "state", "pinCode", "phone", "email", "paymentMethod",
}

var fieldMessages = map[string]string{
	"fullName":      "Full name is required",
	"addressLine1":  "Address is required",
	"city":          "City is required",
	"state":         "State is required",
	"pinCode":       "PIN code is required",
	"phone":         "Phone number is required",
	"email":         "Email is required",
	"paymentMethod": "Please select a payment method",
}

// First returns the first failing field in display order.
func (f FieldErrors) First() (string, string) {
	for _, name := range fieldOrder {
		if msg, ok := f[name]; ok {
			return name, msg
		}
	}
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", ""
	}
	sort.Strings(names)
	return names[0], f[names[0]]
}

// ValidationError is a field-scoped failure the customer can fix in place.
type ValidationError struct {
	Step   Step
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	field, msg := e.Fields.First()
	return fmt.Sprintf("%s step: %s: %s", e.Step, field, msg)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type paymentStep struct {
	PaymentMethod models.PaymentMethod `json:"paymentMethod" binding:"required,oneof=card upi netbanking cod"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStep checks presence only; detail formats belong to the payment strategy.
func validateStep(s *Session, step Step) FieldErrors {
	var target any
	switch step {
	case StepShipping:
		target = trimmed(s.ShippingAddress)
	case StepPayment:
		target = paymentStep{PaymentMethod: s.PaymentMethod}
	default:
		return nil
	}

	err := validate.Struct(target)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"": err.Error()}
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Field()]
		if !ok {
			msg = fe.Error()
		}
		out[fe.Field()] = msg
	}
	return out
}

func trimmed(a models.ShippingAddress) models.ShippingAddress {
	a.FullName = strings.TrimSpace(a.FullName)
	a.AddressLine1 = strings.TrimSpace(a.AddressLine1)
	a.AddressLine2 = strings.TrimSpace(a.AddressLine2)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.PinCode = strings.TrimSpace(a.PinCode)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Email = strings.TrimSpace(a.Email)
	return a
}
