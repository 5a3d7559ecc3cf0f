package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/storefront/platform/services/order/internal/models"
	"github.com/storefront/platform/services/order/internal/payment"
)

var (
	ErrOrderCreationFailed  = errors.New("order creation failed")
	ErrSubmissionInProgress = errors.New("order submission already in progress")
	ErrNotAtReview          = errors.New("order can only be placed from the review step")
	ErrAlreadyPlaced        = errors.New("order already placed")
)

// DefaultRedirectDelay is how long the confirmation stays on screen.
const DefaultRedirectDelay = 3 * time.Second

// OrderGateway is the order service as seen from checkout.
type OrderGateway interface {
	CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error)
}

// CartGateway is the cart service as seen from checkout.
type CartGateway interface {
	GetCart(ctx context.Context) (*models.Cart, error)
	ClearCart(ctx context.Context) error
}

// Navigator moves the customer to the order detail view.
type Navigator interface {
	ScheduleRedirect(orderID uuid.UUID, after time.Duration)
}

// Phase is the orchestrator's lifecycle, separate from the wizard step.
type Phase int

const (
	PhaseCollecting Phase = iota
	PhaseSubmitting
	PhasePlaced
)

// Orchestrator owns one checkout session. It is safe for concurrent use, but
// at most one submission runs at a time.
type Orchestrator struct {
	mu         sync.Mutex
	session    Session
	submitting bool
	placed     *models.Order

	strategies    *payment.Registry
	orders        OrderGateway
	cart          CartGateway
	nav           Navigator
	pricing       Pricing
	redirectDelay time.Duration
	log           *logrus.Logger
}

func NewOrchestrator(
	strategies *payment.Registry,
	orders OrderGateway,
	cart CartGateway,
	nav Navigator,
	pricing Pricing,
	logger *logrus.Logger,
) *Orchestrator {
	return &Orchestrator{
		session:       NewSession(),
		strategies:    strategies,
		orders:        orders,
		cart:          cart,
		nav:           nav,
		pricing:       pricing,
		redirectDelay: DefaultRedirectDelay,
		log:           logger,
	}
}

// SetRedirectDelay overrides the delay before the order detail redirect.
func (o *Orchestrator) SetRedirectDelay(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.redirectDelay = d
}

// Session returns a copy of the current wizard state.
func (o *Orchestrator) Session() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.clone()
}

func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.placed != nil:
		return PhasePlaced
	case o.submitting:
		return PhaseSubmitting
	}
	return PhaseCollecting
}

// PlacedOrder returns the created order once the checkout has finished.
func (o *Orchestrator) PlacedOrder() *models.Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.placed
}

// Edit applies fn to the session unless a submission is running or done.
func (o *Orchestrator) Edit(fn func(*Session) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.placed != nil {
		return ErrAlreadyPlaced
	}
	if o.submitting {
		return ErrSubmissionInProgress
	}
	return fn(&o.session)
}

func (o *Orchestrator) Advance() error {
	return o.Edit(func(s *Session) error { return s.Advance() })
}

func (o *Orchestrator) Retreat() error {
	return o.Edit(func(s *Session) error { s.Retreat(); return nil })
}

// Submit places the order. It creates at most one order per call and none
// unless the payment strategy succeeds.
func (o *Orchestrator) Submit(ctx context.Context) (*models.Order, error) {
	session, err := o.begin()
	if err != nil {
		return nil, err
	}
	defer o.finish()

	logger := o.log.WithField("payment_method", session.PaymentMethod)
	logger.Info("Checkout: submitting order")

	strategy, err := o.strategies.Get(session.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if err := strategy.Validate(session.PaymentDetails); err != nil {
		o.recordDetailsError(err)
		return nil, err
	}

	cart, err := o.cart.GetCart(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	quote, err := o.pricing.Quote(*cart)
	if err != nil {
		return nil, err
	}

	amount := payment.Amount{Value: quote.Total, Currency: o.pricing.Currency}
	if err := strategy.Authorize(ctx, session.PaymentDetails, amount); err != nil {
		logger.WithError(err).Warn("Checkout: payment not completed")
		return nil, err
	}

	req := models.CreateOrderRequest{
		Items:           cart.Items,
		ShippingAddress: trimmed(session.ShippingAddress),
		PaymentMethod:   session.PaymentMethod,
		OrderNotes:      session.OrderNotes,
		Subtotal:        quote.Subtotal,
		ShippingFee:     quote.ShippingFee,
		Tax:             quote.Tax,
		Discount:        quote.Discount,
		Total:           quote.Total,
	}

	// Once issued, creation is not abandoned with the wizard.
	order, err := o.orders.CreateOrder(context.WithoutCancel(ctx), req)
	if err != nil {
		logger.WithError(err).Error("Checkout: order service rejected the order")
		return nil, fmt.Errorf("%w: %w", ErrOrderCreationFailed, err)
	}

	if err := o.cart.ClearCart(context.WithoutCancel(ctx)); err != nil {
		logger.WithError(err).WithField("order_id", order.ID).Warn("Checkout: failed to clear cart")
	}

	o.mu.Lock()
	o.placed = order
	delay := o.redirectDelay
	o.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	}).Info("Checkout: order placed")
	o.nav.ScheduleRedirect(order.ID, delay)

	return order, nil
}

// begin runs the pre-flight checks and claims the submission slot.
func (o *Orchestrator) begin() (Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.placed != nil {
		return Session{}, ErrAlreadyPlaced
	}
	if o.submitting {
		return Session{}, ErrSubmissionInProgress
	}
	if o.session.CurrentStep != StepReview {
		return Session{}, fmt.Errorf("%w: at %s", ErrNotAtReview, o.session.CurrentStep)
	}
	if err := o.session.Revalidate(); err != nil {
		return Session{}, err
	}

	o.submitting = true
	return o.session.clone(), nil
}

func (o *Orchestrator) finish() {
	o.mu.Lock()
	o.submitting = false
	o.mu.Unlock()
}

func (o *Orchestrator) recordDetailsError(err error) {
	var invalid *payment.InvalidDetailsError
	if !errors.As(err, &invalid) {
		return
	}
	o.mu.Lock()
	o.session.setErrors(FieldErrors{"paymentDetails." + invalid.Field: invalid.Message})
	o.mu.Unlock()
}
