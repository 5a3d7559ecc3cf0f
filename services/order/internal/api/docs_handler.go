package api

import (
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"

	"github.com/storefront/platform/services/order/internal/lifecycle"
	"github.com/storefront/platform/services/order/internal/models"
)

const swaggerPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Order Service API Documentation</title>
  <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css" />
  <style>
    body { margin: 0; background: #fafafa; }
  </style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
  <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-standalone-preset.js"></script>
  <script>
    window.onload = function() {
      SwaggerUIBundle({
        url: "/api-docs/openapi.json",
        dom_id: '#swagger-ui',
        deepLinking: true,
        presets: [SwaggerUIBundle.presets.apis, SwaggerUIStandalonePreset],
        layout: "StandaloneLayout"
      });
    };
  </script>
</body>
</html>`

// SwaggerUI serves the Swagger UI page
func SwaggerUI(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerPage))
}

var openAPIDoc = sync.OnceValue(BuildOpenAPI)

// OpenAPIJSON serves the OpenAPI JSON specification
func OpenAPIJSON(c *gin.Context) {
	c.JSON(http.StatusOK, openAPIDoc())
}

func schemaType(t string) *openapi3.Types {
	return &openapi3.Types{t}
}

func ref(name string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Ref: "#/components/schemas/" + name}
}

func prop(t, format string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: schemaType(t), Format: format}}
}

func object(required []string, props map[string]*openapi3.SchemaRef) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:       schemaType("object"),
		Required:   required,
		Properties: props,
	}}
}

func enum(values ...string) *openapi3.SchemaRef {
	s := &openapi3.Schema{Type: schemaType("string")}
	for _, v := range values {
		s.Enum = append(s.Enum, v)
	}
	return &openapi3.SchemaRef{Value: s}
}

func arrayOf(items *openapi3.SchemaRef) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: schemaType("array"), Items: items}}
}

func jsonResponse(description string, schema *openapi3.SchemaRef) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{Value: &openapi3.Response{
		Description: &description,
		Content:     map[string]*openapi3.MediaType{"application/json": {Schema: schema}},
	}}
}

func operation(id, summary string, params openapi3.Parameters, body string, responses map[string]*openapi3.ResponseRef) *openapi3.Operation {
	op := &openapi3.Operation{
		OperationID: id,
		Summary:     summary,
		Tags:        []string{"orders"},
		Parameters:  params,
		Responses:   &openapi3.Responses{},
		Security:    &openapi3.SecurityRequirements{{"bearerAuth": []string{}}},
	}
	if body != "" {
		op.RequestBody = &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
			Required: true,
			Content:  map[string]*openapi3.MediaType{"application/json": {Schema: ref(body)}},
		}}
	}
	for code, resp := range responses {
		op.Responses.Set(code, resp)
	}
	errResp := jsonResponse("Error", ref("Error"))
	for _, code := range []string{"400", "401", "403", "404", "409"} {
		if op.Responses.Value(code) == nil {
			op.Responses.Set(code, errResp)
		}
	}
	return op
}

func pathID() *openapi3.ParameterRef {
	return &openapi3.ParameterRef{Value: &openapi3.Parameter{
		Name: "id", In: openapi3.ParameterInPath, Required: true, Schema: prop("string", "uuid"),
	}}
}

func query(name string, schema *openapi3.SchemaRef) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{Value: &openapi3.Parameter{Name: name, In: openapi3.ParameterInQuery, Schema: schema}}
}

// BuildOpenAPI describes the HTTP surface of the order service.
func BuildOpenAPI() *openapi3.T {
	statuses := make([]string, 0, len(lifecycle.Statuses))
	for _, s := range lifecycle.Statuses {
		statuses = append(statuses, string(s))
	}
	methods := []string{
		string(models.PaymentMethodCard), string(models.PaymentMethodUPI),
		string(models.PaymentMethodNetBanking), string(models.PaymentMethodCOD),
	}
	money := prop("string", "decimal")

	address := object(
		[]string{"fullName", "addressLine1", "city", "state", "pinCode", "phone", "email"},
		map[string]*openapi3.SchemaRef{
			"fullName": prop("string", ""), "addressLine1": prop("string", ""), "addressLine2": prop("string", ""),
			"city": prop("string", ""), "state": prop("string", ""), "pinCode": prop("string", ""),
			"phone": prop("string", ""), "email": prop("string", "email"),
		})
	item := object([]string{"productRef", "name", "unitPrice", "quantity"}, map[string]*openapi3.SchemaRef{
		"productRef": prop("string", ""), "name": prop("string", ""), "sku": prop("string", ""),
		"size": prop("string", ""), "color": prop("string", ""), "unitPrice": money,
		"quantity": prop("integer", "int32"), "image": prop("string", "uri"),
	})
	entry := object([]string{"status", "timestamp"}, map[string]*openapi3.SchemaRef{
		"status": ref("OrderStatus"), "timestamp": prop("string", "date-time"), "note": prop("string", ""),
	})
	order := object(nil, map[string]*openapi3.SchemaRef{
		"id": prop("string", "uuid"), "orderNumber": prop("string", ""), "customerId": prop("string", ""),
		"items": arrayOf(ref("OrderItem")), "subtotal": money, "shippingFee": money, "tax": money,
		"discount": money, "total": money, "currency": prop("string", ""),
		"paymentMethod": ref("PaymentMethod"), "paymentStatus": enum("pending", "paid", "failed", "refunded"),
		"orderStatus": ref("OrderStatus"), "orderStatusHistory": arrayOf(ref("StatusEntry")),
		"shippingAddress": ref("ShippingAddress"), "customerNotes": prop("string", ""),
		"trackingNumber": prop("string", ""), "carrier": prop("string", ""), "version": prop("integer", "int64"),
		"createdAt": prop("string", "date-time"), "updatedAt": prop("string", "date-time"),
	})
	createReq := object([]string{"items", "shippingAddress", "paymentMethod", "subtotal", "total"}, map[string]*openapi3.SchemaRef{
		"items": arrayOf(ref("OrderItem")), "shippingAddress": ref("ShippingAddress"),
		"paymentMethod": ref("PaymentMethod"), "orderNotes": prop("string", ""),
		"subtotal": money, "shippingFee": money, "tax": money, "discount": money, "total": money,
	})
	updateReq := object([]string{"status"}, map[string]*openapi3.SchemaRef{
		"status": ref("OrderStatus"), "trackingNumber": prop("string", ""), "carrier": prop("string", ""),
		"note": prop("string", ""), "expectedVersion": prop("integer", "int64"),
	})
	list := object(nil, map[string]*openapi3.SchemaRef{
		"orders": arrayOf(ref("Order")),
		"pagination": object(nil, map[string]*openapi3.SchemaRef{
			"page": prop("integer", ""), "limit": prop("integer", ""), "total": prop("integer", ""), "pages": prop("integer", ""),
		}),
	})
	invoice := object([]string{"html", "orderNumber"}, map[string]*openapi3.SchemaRef{
		"html": prop("string", ""), "orderNumber": prop("string", ""),
	})

	paths := &openapi3.Paths{}
	paths.Set("/api/orders", &openapi3.PathItem{
		Post: operation("createOrder", "Place an order from a completed checkout", nil, "CreateOrderRequest",
			map[string]*openapi3.ResponseRef{"201": jsonResponse("Order created", ref("Order"))}),
		Get: operation("getOrders", "List orders; customers only see their own",
			openapi3.Parameters{
				query("page", prop("integer", "")), query("limit", prop("integer", "")),
				query("sort", enum(models.SortKeys...)), query("status", ref("OrderStatus")),
			}, "",
			map[string]*openapi3.ResponseRef{"200": jsonResponse("Orders", ref("OrderList"))}),
	})
	paths.Set("/api/orders/{id}", &openapi3.PathItem{
		Get: operation("getOrderById", "Get an order with its status history", openapi3.Parameters{pathID()}, "",
			map[string]*openapi3.ResponseRef{"200": jsonResponse("Order", ref("Order"))}),
	})
	paths.Set("/api/orders/{id}/cancel", &openapi3.PathItem{
		Post: operation("cancelOrder", "Cancel an order that has not shipped", openapi3.Parameters{pathID()}, "",
			map[string]*openapi3.ResponseRef{"200": jsonResponse("Cancelled order", ref("Order"))}),
	})
	paths.Set("/api/orders/{id}/invoice", &openapi3.PathItem{
		Get: operation("downloadInvoice", "Render the invoice; format=pdf returns a PDF",
			openapi3.Parameters{pathID(), query("format", enum("html", "pdf"))}, "",
			map[string]*openapi3.ResponseRef{"200": jsonResponse("Invoice", ref("Invoice"))}),
	})
	paths.Set("/api/admin/orders/{id}/status", &openapi3.PathItem{
		Patch: operation("updateOrderStatus", "Move an order to any status (admin)", openapi3.Parameters{pathID()},
			"UpdateStatusRequest",
			map[string]*openapi3.ResponseRef{"200": jsonResponse("Updated order", ref("Order"))}),
	})

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "Order Service API",
			Version:     "1.0.0",
			Description: "Order lifecycle for the storefront: checkout order creation, customer cancellation, admin status updates and invoices.",
		},
		Paths: paths,
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				"OrderStatus":         enum(statuses...),
				"PaymentMethod":       enum(methods...),
				"ShippingAddress":     address,
				"OrderItem":           item,
				"StatusEntry":         entry,
				"Order":               order,
				"OrderList":           list,
				"CreateOrderRequest":  createReq,
				"UpdateStatusRequest": updateReq,
				"Invoice":             invoice,
				"Error": object([]string{"error"}, map[string]*openapi3.SchemaRef{
					"error": prop("string", ""),
				}),
			},
			SecuritySchemes: openapi3.SecuritySchemes{
				"bearerAuth": &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
			},
		},
	}
}
