package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/storefront/platform/services/order/internal/lifecycle"
	"github.com/storefront/platform/services/order/internal/models"
	"github.com/storefront/platform/services/order/internal/repository"
)

var (
	ErrNotFound        = errors.New("order not found")
	ErrForbidden       = errors.New("access denied")
	ErrInvalidOrder    = errors.New("invalid order")
	ErrVersionConflict = errors.New("order was modified concurrently")
	ErrInvalidQuery    = errors.New("invalid query")
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// OrderStore persists orders. Update must run mutate and the write atomically.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter models.ListFilter) ([]models.Order, int, error)
	Update(ctx context.Context, id uuid.UUID, mutate func(models.Order) (models.Order, error)) (*models.Order, error)
}

// EventPublisher defines the interface for the order event producer
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event models.OrderStatusChangedEvent) error
}

// Principal identifies who is acting on an order
type Principal struct {
	UserID string
	Admin  bool
}

func (p Principal) canRead(order *models.Order) bool {
	return p.Admin || order.CustomerID == p.UserID
}

type OrderService struct {
	store    OrderStore
	events   EventPublisher
	policy   lifecycle.TransitionPolicy
	currency string
	now      func() time.Time
	log      *logrus.Logger
}

func NewOrderService(
	store OrderStore,
	events EventPublisher,
	policy lifecycle.TransitionPolicy,
	currency string,
	logger *logrus.Logger,
) *OrderService {
	return &OrderService{
		store:    store,
		events:   events,
		policy:   policy,
		currency: currency,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger,
	}
}

// CreateOrder validates the checkout payload and persists a new pending order
func (s *OrderService) CreateOrder(ctx context.Context, customerID string, req models.CreateOrderRequest) (*models.Order, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, fmt.Errorf("%w: missing customer", ErrInvalidOrder)
	}
	if err := validateTotals(req); err != nil {
		return nil, err
	}

	now := s.now()
	order := &models.Order{
		ID:                 uuid.New(),
		OrderNumber:        newOrderNumber(now),
		CustomerID:         customerID,
		Items:              append([]models.OrderItem(nil), req.Items...),
		Subtotal:           req.Subtotal,
		ShippingFee:        req.ShippingFee,
		Tax:                req.Tax,
		Discount:           req.Discount,
		Total:              req.Total,
		Currency:           s.currency,
		PaymentMethod:      req.PaymentMethod,
		PaymentStatus:      initialPaymentStatus(req.PaymentMethod),
		OrderStatus:        models.OrderStatusPending,
		OrderStatusHistory: lifecycle.Start(now),
		ShippingAddress:    req.ShippingAddress,
		CustomerNotes:      req.OrderNotes,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.store.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	logger := s.log.WithFields(logrus.Fields{
		"order_id":       order.ID,
		"order_number":   order.OrderNumber,
		"payment_method": order.PaymentMethod,
	})
	logger.Info("Order created")

	event := models.OrderPlacedEvent{
		EventID:       uuid.New(),
		Type:          models.EventTypeOrderPlaced,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerID:    order.CustomerID,
		PaymentMethod: order.PaymentMethod,
		Total:         order.Total,
		Currency:      order.Currency,
		CreatedAt:     now,
	}
	if err := s.events.PublishOrderPlaced(ctx, event); err != nil {
		logger.WithError(err).Warn("Failed to publish OrderPlacedEvent")
	}

	return order, nil
}

// GetOrder retrieves an order the principal is allowed to see
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID, principal Principal) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.canRead(order) {
		return nil, ErrForbidden
	}
	order.OrderStatusHistory = lifecycle.History(*order)
	return order, nil
}

// ListOrders pages through orders; customers only ever see their own
func (s *OrderService) ListOrders(ctx context.Context, principal Principal, filter models.ListFilter) (*models.OrderList, error) {
	if !principal.Admin {
		filter.CustomerID = principal.UserID
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if !models.ValidSort(filter.Sort) {
		return nil, fmt.Errorf("%w: unsupported sort %q", ErrInvalidQuery, filter.Sort)
	}
	if filter.Status != nil && !lifecycle.IsKnown(*filter.Status) {
		return nil, fmt.Errorf("%w: %q", lifecycle.ErrUnknownStatus, *filter.Status)
	}

	orders, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	for i := range orders {
		orders[i].OrderStatusHistory = lifecycle.History(orders[i])
	}

	return &models.OrderList{
		Orders: orders,
		Pagination: models.Pagination{
			Page:  filter.Page,
			Limit: filter.Limit,
			Total: total,
			Pages: int(math.Ceil(float64(total) / float64(filter.Limit))),
		},
	}, nil
}

// CancelOrder is the customer-initiated cancellation
func (s *OrderService) CancelOrder(ctx context.Context, id uuid.UUID, principal Principal) (*models.Order, error) {
	var from models.OrderStatus
	updated, err := s.store.Update(ctx, id, func(current models.Order) (models.Order, error) {
		if current.CustomerID != principal.UserID {
			return current, ErrForbidden
		}
		from = current.OrderStatus
		return lifecycle.Cancel(current, s.now())
	})
	if err != nil {
		return nil, s.translate(err, id)
	}

	s.log.WithFields(logrus.Fields{"order_id": id, "from": from}).Info("Order cancelled by customer")
	s.publishStatusChange(ctx, updated, from, principal.UserID)

	// reload from the store so the caller sees the authoritative row
	return s.GetOrder(ctx, id, principal)
}

// UpdateOrderStatus is the operator-initiated status change
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, req models.UpdateStatusRequest, actor string) (*models.Order, error) {
	updated, _, err := s.updateStatus(ctx, id, req, actor, false)
	return updated, err
}

// ApplyShipmentUpdate records a carrier update. An update whose status,
// tracking number and carrier the order already carries is a redelivery:
// nothing is written and applied is false.
func (s *OrderService) ApplyShipmentUpdate(ctx context.Context, id uuid.UUID, req models.UpdateStatusRequest, actor string) (order *models.Order, applied bool, err error) {
	return s.updateStatus(ctx, id, req, actor, true)
}

var errUnchanged = errors.New("order already in requested state")

func (s *OrderService) updateStatus(ctx context.Context, id uuid.UUID, req models.UpdateStatusRequest, actor string, skipCurrent bool) (*models.Order, bool, error) {
	change := lifecycle.Change{
		Status:         req.Status,
		TrackingNumber: strings.TrimSpace(req.TrackingNumber),
		Carrier:        strings.TrimSpace(req.Carrier),
		Note:           strings.TrimSpace(req.Note),
	}

	var current models.Order
	updated, err := s.store.Update(ctx, id, func(o models.Order) (models.Order, error) {
		current = o
		if req.ExpectedVersion != nil && *req.ExpectedVersion != o.Version {
			return o, fmt.Errorf("%w: expected version %d, found %d", ErrVersionConflict, *req.ExpectedVersion, o.Version)
		}
		if skipCurrent && o.OrderStatus == change.Status &&
			o.TrackingNumber == change.TrackingNumber && o.Carrier == change.Carrier {
			return o, errUnchanged
		}
		change.At = s.now()
		return lifecycle.Advance(s.policy, o, change)
	})
	if errors.Is(err, errUnchanged) {
		s.log.WithFields(logrus.Fields{
			"order_id": id,
			"status":   current.OrderStatus,
			"actor":    actor,
		}).Info("Status update already applied")
		current.OrderStatusHistory = lifecycle.History(current)
		return &current, false, nil
	}
	if err != nil {
		return nil, false, s.translate(err, id)
	}

	s.log.WithFields(logrus.Fields{
		"order_id": id,
		"from":     current.OrderStatus,
		"to":       updated.OrderStatus,
		"actor":    actor,
	}).Info("Order status updated")
	s.publishStatusChange(ctx, updated, current.OrderStatus, actor)

	updated.OrderStatusHistory = lifecycle.History(*updated)
	return updated, true, nil
}

func (s *OrderService) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id)
	}
	return order, nil
}

func (s *OrderService) translate(err error, id uuid.UUID) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}

func (s *OrderService) publishStatusChange(ctx context.Context, order *models.Order, from models.OrderStatus, actor string) {
	last := order.OrderStatusHistory[len(order.OrderStatusHistory)-1]
	event := models.OrderStatusChangedEvent{
		EventID:        uuid.New(),
		Type:           models.EventTypeOrderStatusChanged,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		From:           from,
		To:             order.OrderStatus,
		TrackingNumber: order.TrackingNumber,
		Carrier:        order.Carrier,
		Note:           last.Note,
		ChangedBy:      actor,
		CreatedAt:      last.Timestamp,
	}
	if err := s.events.PublishOrderStatusChanged(ctx, event); err != nil {
		s.log.WithError(err).WithField("order_id", order.ID).Warn("Failed to publish OrderStatusChangedEvent")
	}
}

// validateTotals checks the checkout arithmetic; the server never recomputes prices
func validateTotals(req models.CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrInvalidOrder)
	}
	if !req.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unsupported payment method %q", ErrInvalidOrder, req.PaymentMethod)
	}

	subtotal := decimal.Zero
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d (%s): quantity must be positive", ErrInvalidOrder, i, item.SKU)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %d (%s): price cannot be negative", ErrInvalidOrder, i, item.SKU)
		}
		if !inCents(item.UnitPrice) {
			return fmt.Errorf("%w: item %d (%s): price has more than 2 decimal places", ErrInvalidOrder, i, item.SKU)
		}
		subtotal = subtotal.Add(item.LineTotal())
	}

	for name, amount := range map[string]decimal.Decimal{
		"subtotal": req.Subtotal, "shippingFee": req.ShippingFee, "tax": req.Tax, "discount": req.Discount, "total": req.Total,
	} {
		if amount.IsNegative() && name != "total" {
			return fmt.Errorf("%w: %s cannot be negative", ErrInvalidOrder, name)
		}
		// amounts are stored as NUMERIC(12, 2)
		if !inCents(amount) {
			return fmt.Errorf("%w: %s has more than 2 decimal places", ErrInvalidOrder, name)
		}
	}

	if !subtotal.Equal(req.Subtotal) {
		return fmt.Errorf("%w: subtotal %s does not match items (%s)", ErrInvalidOrder, req.Subtotal.StringFixed(2), subtotal.StringFixed(2))
	}

	expected := req.Subtotal.Add(req.ShippingFee).Add(req.Tax).Sub(req.Discount)
	if expected.IsNegative() {
		return fmt.Errorf("%w: discount exceeds order value", ErrInvalidOrder)
	}
	if !expected.Equal(req.Total) {
		return fmt.Errorf("%w: total %s does not equal subtotal + shipping + tax - discount (%s)", ErrInvalidOrder, req.Total.StringFixed(2), expected.StringFixed(2))
	}
	return nil
}

func inCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// initialPaymentStatus: every non-COD strategy has already judged payment successful
func initialPaymentStatus(method models.PaymentMethod) models.PaymentStatus {
	if method == models.PaymentMethodCOD {
		return models.PaymentStatusPending
	}
	return models.PaymentStatusPaid
}

func newOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), suffix)
}
