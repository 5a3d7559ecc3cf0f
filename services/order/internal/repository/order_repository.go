package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/storefront/platform/services/order/internal/models"
)

// ErrNotFound is returned when no order matches the lookup
var ErrNotFound = errors.New("order not found")

const orderColumns = `id, order_number, customer_id, subtotal, shipping_fee, tax, discount, total, currency,
	payment_method, payment_status, status, shipping_address, customer_notes,
	COALESCE(tracking_number, ''), COALESCE(carrier, ''), version, created_at, updated_at`

// sortColumns whitelists the accepted sort keys
var sortColumns = map[string]string{
	"":           "created_at DESC",
	"-createdAt": "created_at DESC",
	"createdAt":  "created_at ASC",
	"-total":     "total DESC",
	"total":      "total ASC",
}

type OrderRepository struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

func NewOrderRepository(pool *pgxpool.Pool, logger *logrus.Logger) *OrderRepository {
	return &OrderRepository{pool: pool, log: logger}
}

// Create stores the order, its items and its initial ledger in one transaction
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var tracking, carrier *string
	if order.TrackingNumber != "" {
		tracking = &order.TrackingNumber
	}
	if order.Carrier != "" {
		carrier = &order.Carrier
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO orders (id, order_number, customer_id, subtotal, shipping_fee, tax, discount, total, currency,
		                     payment_method, payment_status, status, shipping_address, customer_notes,
		                     tracking_number, carrier, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		order.ID, order.OrderNumber, order.CustomerID, order.Subtotal, order.ShippingFee, order.Tax,
		order.Discount, order.Total, order.Currency, order.PaymentMethod, order.PaymentStatus,
		order.OrderStatus, order.ShippingAddress, order.CustomerNotes, tracking, carrier,
		order.Version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i, item := range order.Items {
		_, err := tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, position, product_ref, name, sku, size, color, unit_price, quantity, image)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			uuid.New(), order.ID, i, item.ProductRef, item.Name, item.SKU, item.Size, item.Color,
			item.UnitPrice, item.Quantity, item.Image,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := insertHistory(ctx, tx, order.ID, order.OrderStatusHistory); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	r.log.WithFields(logrus.Fields{"order_id": order.ID, "order_number": order.OrderNumber}).Debug("Order persisted")
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return getOrder(ctx, r.pool, id, false)
}

// List returns one page of orders and the total count matching the filter
func (r *OrderRepository) List(ctx context.Context, filter models.ListFilter) ([]models.Order, int, error) {
	orderBy, ok := sortColumns[filter.Sort]
	if !ok {
		return nil, 0, fmt.Errorf("unsupported sort %q", filter.Sort)
	}

	where := `WHERE ($1 = '' OR customer_id = $1) AND ($2 = '' OR status = $2)`
	var status string
	if filter.Status != nil {
		status = string(*filter.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders `+where, filter.CustomerID, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders `+where+` ORDER BY `+orderBy+` LIMIT $3 OFFSET $4`,
		filter.CustomerID, status, filter.Limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range orders {
		if err := loadChildren(ctx, r.pool, &orders[i]); err != nil {
			return nil, 0, err
		}
	}
	return orders, total, nil
}

// Update locks the order row, lets mutate derive the next state and persists
// the result. Only history entries appended by mutate are written; existing
// ledger rows are never updated.
func (r *OrderRepository) Update(ctx context.Context, id uuid.UUID, mutate func(models.Order) (models.Order, error)) (*models.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	current, err := getOrder(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}

	next, err := mutate(*current)
	if err != nil {
		return nil, err
	}

	if len(next.OrderStatusHistory) < len(current.OrderStatusHistory) {
		return nil, fmt.Errorf("status history of order %s would shrink", id)
	}

	var tracking, carrier *string
	if next.TrackingNumber != "" {
		tracking = &next.TrackingNumber
	}
	if next.Carrier != "" {
		carrier = &next.Carrier
	}

	next.Version = current.Version + 1
	if next.UpdatedAt.IsZero() || !next.UpdatedAt.After(current.UpdatedAt) {
		next.UpdatedAt = time.Now().UTC()
	}

	_, err = tx.Exec(ctx,
		`UPDATE orders SET status = $1, payment_status = $2, tracking_number = $3, carrier = $4,
		                   version = $5, updated_at = $6
		 WHERE id = $7`,
		next.OrderStatus, next.PaymentStatus, tracking, carrier, next.Version, next.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	if err := insertHistory(ctx, tx, id, next.OrderStatusHistory[len(current.OrderStatusHistory):]); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order update: %w", err)
	}
	return &next, nil
}

// querier is satisfied by both the pool and a transaction
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func getOrder(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	order, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := loadChildren(ctx, q, order); err != nil {
		return nil, err
	}
	return order, nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var order models.Order
	err := row.Scan(
		&order.ID, &order.OrderNumber, &order.CustomerID, &order.Subtotal, &order.ShippingFee,
		&order.Tax, &order.Discount, &order.Total, &order.Currency, &order.PaymentMethod,
		&order.PaymentStatus, &order.OrderStatus, &order.ShippingAddress, &order.CustomerNotes,
		&order.TrackingNumber, &order.Carrier, &order.Version, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func loadChildren(ctx context.Context, q querier, order *models.Order) error {
	rows, err := q.Query(ctx,
		`SELECT product_ref, name, sku, size, color, unit_price, quantity, image
		 FROM order_items WHERE order_id = $1 ORDER BY position`,
		order.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ProductRef, &item.Name, &item.SKU, &item.Size, &item.Color,
			&item.UnitPrice, &item.Quantity, &item.Image); err != nil {
			return err
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	history, err := q.Query(ctx,
		`SELECT status, note, created_at FROM order_status_history WHERE order_id = $1 ORDER BY created_at, id`,
		order.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to load status history: %w", err)
	}
	defer history.Close()

	for history.Next() {
		var entry models.StatusEntry
		if err := history.Scan(&entry.Status, &entry.Note, &entry.Timestamp); err != nil {
			return err
		}
		order.OrderStatusHistory = append(order.OrderStatusHistory, entry)
	}
	return history.Err()
}

func insertHistory(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, entries []models.StatusEntry) error {
	for _, entry := range entries {
		_, err := tx.Exec(ctx,
			`INSERT INTO order_status_history (order_id, status, note, created_at) VALUES ($1, $2, $3, $4)`,
			orderID, entry.Status, entry.Note, entry.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to append status history: %w", err)
		}
	}
	return nil
}
