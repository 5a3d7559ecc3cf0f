// Package checkout drives the Shipping, Payment and Review wizard and hands
// the finished session to a payment strategy.
package checkout

import (
	"fmt"
	"strings"

	"github.com/storefront/platform/services/order/internal/models"
	"github.com/storefront/platform/services/order/internal/payment"
)

// Step is a wizard page.
type Step int

const (
	StepShipping Step = iota + 1
	StepPayment
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepShipping:
		return "shipping"
	case StepPayment:
		return "payment"
	case StepReview:
		return "review"
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// Session is the client-held wizard state. It is never persisted.
type Session struct {
	CurrentStep      Step
	ShippingAddress  models.ShippingAddress
	PaymentMethod    models.PaymentMethod
	PaymentDetails   payment.Details
	OrderNotes       string
	ValidationErrors FieldErrors
}

func NewSession() Session {
	return Session{CurrentStep: StepShipping, ValidationErrors: FieldErrors{}}
}

// Advance validates the current step and moves forward. On failure the
// session only gains validation errors.
func (s *Session) Advance() error {
	if errs := validateStep(s, s.CurrentStep); len(errs) > 0 {
		s.setErrors(errs)
		return &ValidationError{Step: s.CurrentStep, Fields: errs}
	}
	if s.CurrentStep < StepReview {
		s.CurrentStep++
	}
	return nil
}

// Retreat moves back one step and keeps every entered value.
func (s *Session) Retreat() {
	if s.CurrentStep > StepShipping {
		s.CurrentStep--
	}
}

// Revalidate re-checks every step before the review one.
func (s *Session) Revalidate() error {
	for step := StepShipping; step < StepReview; step++ {
		if errs := validateStep(s, step); len(errs) > 0 {
			s.setErrors(errs)
			return &ValidationError{Step: step, Fields: errs}
		}
	}
	return nil
}

// SetShippingField edits one address field by its json name.
func (s *Session) SetShippingField(field, value string) error {
	a := &s.ShippingAddress
	switch field {
	case "fullName":
		a.FullName = value
	case "addressLine1":
		a.AddressLine1 = value
	case "addressLine2":
		a.AddressLine2 = value
	case "city":
		a.City = value
	case "state":
		a.State = value
	case "pinCode":
		a.PinCode = value
	case "phone":
		a.Phone = value
	case "email":
		a.Email = value
	default:
		return fmt.Errorf("unknown shipping field %q", field)
	}
	s.clearError(field)
	return nil
}

// SelectPaymentMethod switches method; details of another method are dropped.
func (s *Session) SelectPaymentMethod(method models.PaymentMethod) {
	s.PaymentMethod = method
	if s.PaymentDetails != nil && s.PaymentDetails.Method() != method {
		s.PaymentDetails = nil
	}
	s.clearError("paymentMethod")
}

func (s *Session) SetPaymentDetails(details payment.Details) {
	s.PaymentDetails = details
	for field := range s.ValidationErrors {
		if strings.HasPrefix(field, "paymentDetails.") {
			delete(s.ValidationErrors, field)
		}
	}
}

func (s *Session) SetNotes(notes string) {
	s.OrderNotes = notes
}

func (s *Session) setErrors(errs FieldErrors) {
	if s.ValidationErrors == nil {
		s.ValidationErrors = FieldErrors{}
	}
	for k, v := range errs {
		s.ValidationErrors[k] = v
	}
}

func (s *Session) clearError(field string) {
	delete(s.ValidationErrors, field)
}

// clone copies the session so callers cannot mutate the orchestrator's copy.
func (s Session) clone() Session {
	errs := make(FieldErrors, len(s.ValidationErrors))
	for k, v := range s.ValidationErrors {
		errs[k] = v
	}
	s.ValidationErrors = errs
	return s
}
