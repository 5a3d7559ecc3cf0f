package invoice

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/storefront/platform/services/order/internal/models"
)

const htmlLayout = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Invoice {{.Order.OrderNumber}}</title></head>
<body>
<h1>INVOICE</h1>
<p>{{.Seller}}</p>
<table>
<tr><td>Order Number:</td><td>{{.Order.OrderNumber}}</td></tr>
<tr><td>Order Date:</td><td>{{.Order.CreatedAt.Format "January 2, 2006"}}</td></tr>
<tr><td>Payment:</td><td>{{.Order.PaymentMethod}} ({{.Order.PaymentStatus}})</td></tr>
<tr><td>Status:</td><td>{{.Order.OrderStatus}}</td></tr>
</table>
<h2>Ship To</h2>
<p>{{with .Order.ShippingAddress}}{{.FullName}}<br>{{.AddressLine1}}<br>{{if .AddressLine2}}{{.AddressLine2}}<br>{{end}}{{.City}}, {{.State}} {{.PinCode}}<br>{{.Phone}}{{end}}</p>
<table>
<tr><th>Item</th><th>SKU</th><th>Quantity</th><th>Price</th><th>Total</th></tr>
{{range .Order.Items}}<tr><td>{{.Name}}{{if .Size}} ({{.Size}}){{end}}</td><td>{{.SKU}}</td><td>{{.Quantity}}</td><td>{{money .UnitPrice}}</td><td>{{money .LineTotal}}</td></tr>
{{end}}</table>
<table>
<tr><td>Subtotal:</td><td>{{money .Order.Subtotal}}</td></tr>
<tr><td>Shipping:</td><td>{{money .Order.ShippingFee}}</td></tr>
<tr><td>Tax:</td><td>{{money .Order.Tax}}</td></tr>
<tr><td>Discount:</td><td>-{{money .Order.Discount}}</td></tr>
<tr><th>Total:</th><th>{{money .Order.Total}}</th></tr>
</table>
<p><em>Thank you for your purchase!</em></p>
</body>
</html>`

type InvoiceGenerator struct {
	seller string
	page   *template.Template
	now    func() time.Time
}

func NewInvoiceGenerator(seller string) *InvoiceGenerator {
	g := &InvoiceGenerator{seller: seller, now: time.Now}
	g.page = template.Must(template.New("invoice").Funcs(template.FuncMap{
		"money": func(v decimal.Decimal) string { return v.StringFixed(2) },
	}).Parse(htmlLayout))
	return g
}

// GenerateHTML renders the invoice as a standalone HTML document
func (g *InvoiceGenerator) GenerateHTML(order *models.Order) (string, error) {
	var buf bytes.Buffer
	err := g.page.Execute(&buf, struct {
		Seller string
		Order  *models.Order
	}{Seller: g.seller, Order: order})
	if err != nil {
		return "", fmt.Errorf("failed to render invoice: %w", err)
	}
	return buf.String(), nil
}

// GeneratePDF generates a PDF invoice for an order
func (g *InvoiceGenerator) GeneratePDF(order *models.Order) (*bytes.Buffer, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 20)
	pdf.Cell(0, 10, "INVOICE")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, tr(g.seller))
	pdf.Ln(15)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 10, "Order Details")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	for _, row := range [][2]string{
		{"Order Number:", order.OrderNumber},
		{"Order Date:", order.CreatedAt.Format("January 2, 2006")},
		{"Payment:", fmt.Sprintf("%s (%s)", order.PaymentMethod, order.PaymentStatus)},
		{"Ship To:", order.ShippingAddress.FullName},
		{"", fmt.Sprintf("%s, %s, %s %s", order.ShippingAddress.AddressLine1, order.ShippingAddress.City,
			order.ShippingAddress.State, order.ShippingAddress.PinCode)},
	} {
		pdf.Cell(40, 8, row[0])
		pdf.Cell(0, 8, tr(row[1]))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(90, 8, "Item", "", 0, "", true, 0, "")
	pdf.CellFormat(30, 8, "Quantity", "", 0, "", true, 0, "")
	pdf.CellFormat(35, 8, "Price", "", 0, "", true, 0, "")
	pdf.CellFormat(35, 8, "Total", "", 0, "", true, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	for _, item := range order.Items {
		pdf.Cell(90, 8, tr(item.Name))
		pdf.Cell(30, 8, fmt.Sprintf("%d", item.Quantity))
		pdf.Cell(35, 8, formatCurrency(item.UnitPrice.StringFixed(2), order.Currency))
		pdf.Cell(35, 8, formatCurrency(item.LineTotal().StringFixed(2), order.Currency))
		pdf.Ln(8)
	}

	pdf.Ln(5)
	for _, row := range [][2]string{
		{"Subtotal:", order.Subtotal.StringFixed(2)},
		{"Shipping:", order.ShippingFee.StringFixed(2)},
		{"Tax:", order.Tax.StringFixed(2)},
		{"Discount:", "-" + order.Discount.StringFixed(2)},
	} {
		pdf.Cell(155, 7, row[0])
		pdf.Cell(35, 7, formatCurrency(row[1], order.Currency))
		pdf.Ln(7)
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(155, 10, "Total:")
	pdf.Cell(35, 10, formatCurrency(order.Total.StringFixed(2), order.Currency))
	pdf.Ln(15)

	pdf.SetFont("Arial", "I", 8)
	pdf.Cell(0, 10, "Thank you for your purchase!")
	pdf.Ln(5)
	pdf.Cell(0, 10, fmt.Sprintf("Generated on %s", g.now().Format("January 2, 2006 at 3:04 PM")))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return &buf, nil
}

func formatCurrency(amount, currency string) string {
	return currency + " " + amount
}
