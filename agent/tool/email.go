package tool

import (
	"bytes"
	_ "embed"
	"html/template"
	"strconv"

	"github.com/trungdn/milk-sell-agent/store/catalog"
)

//go:embed template/order_confirmation.html
var orderEmailRaw string

var orderEmailTmpl = template.Must(template.New("order_confirmation").Parse(orderEmailRaw))

// orderEmailData carries pre-formatted amounts; the template does no number
// formatting of its own.
type orderEmailData struct {
	ProductName     string
	BrandName       string
	CategoryName    string
	Country         string
	PackageSize     string
	Quantity        int
	UnitPrice       string
	OriginalTotal   string
	DiscountPercent string
	DiscountAmount  string
	FinalTotal      string
}

func buildOrderEmail(product *catalog.ProductDetail, pricing Pricing) (string, error) {
	data := orderEmailData{
		ProductName:     product.Name,
		BrandName:       textOrNA(product.BrandName),
		CategoryName:    textOrNA(product.CategoryName),
		Country:         textOrNA(product.Country),
		PackageSize:     intOrNA(product.PackageSizeML),
		Quantity:        pricing.Quantity,
		UnitPrice:       formatVND(pricing.UnitPrice),
		OriginalTotal:   formatVND(pricing.OriginalTotal),
		DiscountPercent: strconv.FormatFloat(pricing.DiscountPercent, 'f', 0, 64),
		DiscountAmount:  formatVND(pricing.DiscountAmount),
		FinalTotal:      formatVND(pricing.FinalTotal),
	}

	var buf bytes.Buffer
	if err := orderEmailTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func textOrNA(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}

func intOrNA(n *int) string {
	if n == nil {
		return "N/A"
	}
	return strconv.Itoa(*n)
}
