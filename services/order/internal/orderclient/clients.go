// Package orderclient calls the order and cart services over HTTP.
package orderclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/storefront/platform/services/order/internal/models"
)

const defaultTimeout = 10 * time.Second

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is a 409: the order is not in a state that allows the change.
	ErrConflict = errors.New("conflict")
)

// APIError is a non-2xx answer from a collaborator
type APIError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s service returned %d: %s", e.Service, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	}
	return nil
}

type baseClient struct {
	service string
	baseURL string
	token   string
	client  *http.Client
	log     *logrus.Logger
}

func newBaseClient(service, baseURL, token string, logger *logrus.Logger) baseClient {
	return baseClient{
		service: service,
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: defaultTimeout,
		},
		log: logger,
	}
}

// do sends body as JSON and decodes a JSON answer into out when out is non-nil.
func (c *baseClient) do(ctx context.Context, method, path string, body, out any, okStatus ...int) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.log.WithFields(logrus.Fields{"service": c.service, "method": method, "path": path}).Debug("Calling collaborator")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s service unreachable: %w", c.service, err)
	}
	defer resp.Body.Close()

	if !statusIn(resp.StatusCode, okStatus) {
		return c.apiError(resp)
	}
	if out == nil {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		*raw, err = io.ReadAll(resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *baseClient) apiError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var payload struct {
		Error string `json:"error"`
	}
	msg := string(body)
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &APIError{Service: c.service, StatusCode: resp.StatusCode, Message: msg}
}

func statusIn(code int, accepted []int) bool {
	if len(accepted) == 0 {
		return code == http.StatusOK
	}
	for _, c := range accepted {
		if c == code {
			return true
		}
	}
	return false
}

// OrderClient handles communication with the order service
type OrderClient struct {
	baseClient
}

func NewOrderClient(baseURL, token string, logger *logrus.Logger) *OrderClient {
	return &OrderClient{baseClient: newBaseClient("order", baseURL, token, logger)}
}

func (c *OrderClient) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", req, &order, http.StatusCreated); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *OrderClient) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+id.String(), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListQuery is the query string of an order listing
type ListQuery struct {
	Page   int
	Limit  int
	Sort   string
	Status models.OrderStatus
}

func (q ListQuery) encode() string {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *OrderClient) ListOrders(ctx context.Context, q ListQuery) (*models.OrderList, error) {
	var list models.OrderList
	if err := c.do(ctx, http.MethodGet, "/api/orders"+q.encode(), nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *OrderClient) CancelOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders/"+id.String()+"/cancel", nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *OrderClient) UpdateOrderStatus(ctx context.Context, id uuid.UUID, req models.UpdateStatusRequest) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodPatch, "/api/admin/orders/"+id.String()+"/status", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *OrderClient) DownloadInvoice(ctx context.Context, id uuid.UUID) (*models.InvoiceResponse, error) {
	var invoice models.InvoiceResponse
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+id.String()+"/invoice", nil, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// DownloadInvoicePDF returns the rendered PDF bytes.
func (c *OrderClient) DownloadInvoicePDF(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var pdf []byte
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+id.String()+"/invoice?format=pdf", nil, &pdf); err != nil {
		return nil, err
	}
	return pdf, nil
}

// CartClient handles communication with the cart service
type CartClient struct {
	baseClient
}

func NewCartClient(baseURL, token string, logger *logrus.Logger) *CartClient {
	return &CartClient{baseClient: newBaseClient("cart", baseURL, token, logger)}
}

func (c *CartClient) GetCart(ctx context.Context) (*models.Cart, error) {
	var cart models.Cart
	if err := c.do(ctx, http.MethodGet, "/api/cart", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *CartClient) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/cart", nil, nil, http.StatusOK, http.StatusNoContent)
}
