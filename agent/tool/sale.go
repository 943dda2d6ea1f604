package tool

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	contractx "github.com/trungdn/milk-sell-agent/agent/contract"
	logx "github.com/trungdn/milk-sell-agent/pkg/logger"
	"github.com/trungdn/milk-sell-agent/store/catalog"
)

const ToolPurchaseProduct = "purchase_product"

// EventPublisher forwards completed orders to the message sink.
type EventPublisher interface {
	PublishJSON(ctx context.Context, destination string, payload any) (string, error)
}

// Sale runs the purchase workflow: look up the product, check stock, price
// the order, deliver the confirmation email, then record the sale. The
// email goes out before the stock decrement; a sale is only committed once
// the customer has been told about it.
type Sale struct {
	store       *catalog.Store
	mailer      contractx.Mailer
	events      EventPublisher
	destination string
	log         zerolog.Logger
}

type SaleOption func(*Sale)

// WithEventPublisher enables best-effort order events after a committed
// sale.
func WithEventPublisher(pub EventPublisher, destination string) SaleOption {
	return func(s *Sale) {
		s.events = pub
		s.destination = destination
	}
}

func NewSale(store *catalog.Store, mailer contractx.Mailer, opts ...SaleOption) *Sale {
	s := &Sale{
		store:  store,
		mailer: mailer,
		log:    logx.Component("sale"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pricing is the order total breakdown in VND.
type Pricing struct {
	UnitPrice       float64 `json:"unit_price"`
	Quantity        int     `json:"quantity"`
	OriginalTotal   float64 `json:"original_total"`
	DiscountPercent float64 `json:"discount_percent"`
	DiscountAmount  float64 `json:"discount_amount"`
	FinalTotal      float64 `json:"final_total"`
}

func ComputePricing(unitPrice, discountPercent float64, quantity int) Pricing {
	originalTotal := unitPrice * float64(quantity)
	discountAmount := originalTotal * discountPercent / 100
	return Pricing{
		UnitPrice:       unitPrice,
		Quantity:        quantity,
		OriginalTotal:   originalTotal,
		DiscountPercent: discountPercent,
		DiscountAmount:  discountAmount,
		FinalTotal:      originalTotal - discountAmount,
	}
}

// Process runs one purchase end to end and returns the message the
// assistant relays to the customer. Domain outcomes (missing product, not
// enough stock, failed delivery) are messages; storage failures are errors.
func (s *Sale) Process(ctx context.Context, email string, productID int64, quantity int) (string, error) {
	product, err := s.store.ProductDetail(ctx, productID)
	if errors.Is(err, catalog.ErrNotFound) {
		return productNotFoundMessage(productID), nil
	}
	if err != nil {
		return "", err
	}
	if !product.IsActive {
		return productNotFoundMessage(productID), nil
	}
	if product.StockQuantity < quantity {
		return insufficientStockMessage(product.StockQuantity, quantity), nil
	}

	var unitPrice float64
	if product.PricePerUnit != nil {
		unitPrice = *product.PricePerUnit
	}
	pricing := ComputePricing(unitPrice, float64(product.DiscountPercent), quantity)

	subject := "Xác nhận đơn hàng - " + product.Name
	body, err := buildOrderEmail(product, pricing)
	if err != nil {
		return "", fmt.Errorf("render confirmation email: %w", err)
	}
	if err := s.mailer.Send(ctx, email, subject, body, true); err != nil {
		s.log.Warn().Err(err).Str("to", email).Msg("confirmation email failed")
		return fmt.Sprintf("Error: Failed to send confirmation email to %s", email), nil
	}

	orderID, err := s.store.RecordSale(ctx, catalog.OrderInput{
		ProductID:       productID,
		CustomerEmail:   email,
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		DiscountPercent: product.DiscountPercent,
		TotalAmount:     pricing.FinalTotal,
	})
	var insufficient *catalog.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		// Stock moved between the check and the commit.
		return insufficientStockMessage(insufficient.Available, insufficient.Requested), nil
	case errors.Is(err, catalog.ErrNotFound):
		return productNotFoundMessage(productID), nil
	case err != nil:
		return "", err
	}

	s.publishOrderEvent(ctx, orderID, product, email, pricing)

	s.log.Info().
		Int64("order_id", orderID).
		Int64("product_id", productID).
		Int("quantity", quantity).
		Float64("total", pricing.FinalTotal).
		Msg("order recorded")
	return fmt.Sprintf("Order created successfully! Confirmation email sent to %s. Total: %s VND",
		email, formatVND(pricing.FinalTotal)), nil
}

// publishOrderEvent is best effort. The sale is already recorded; a failed
// publish must not undo it.
func (s *Sale) publishOrderEvent(ctx context.Context, orderID int64, product *catalog.ProductDetail, email string, pricing Pricing) {
	if s.events == nil {
		return
	}
	event := contractx.OrderEvent{
		OrderID:       orderID,
		ProductID:     product.ID,
		ProductName:   product.Name,
		Quantity:      pricing.Quantity,
		CustomerEmail: email,
		UnitPrice:     pricing.UnitPrice,
		TotalAmount:   pricing.FinalTotal,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := s.events.PublishJSON(ctx, s.destination, event); err != nil {
		s.log.Warn().Err(err).Int64("order_id", orderID).Msg("order event publish failed")
	}
}

func (s *Sale) entry() entry {
	return entry{
		info: Info{
			Name:        ToolPurchaseProduct,
			Description: "Purchase a product and send confirmation email to customer. Use this tool when customer wants to buy/order/purchase a product.",
			Parameters: objectSchema(map[string]any{
				"email":      stringProp("Customer email address"),
				"product_id": integerProp("Product ID to purchase"),
				"quantity":   integerProp("Number of items to purchase"),
			}, "email", "product_id", "quantity"),
		},
		run: func(ctx context.Context, args map[string]any) (any, error) {
			email, err := stringArg(args, "email")
			if err != nil {
				return nil, err
			}
			email = strings.TrimSpace(email)
			if email == "" {
				return nil, badArg("email is required")
			}
			productID, err := intArg(args, "product_id")
			if err != nil {
				return nil, err
			}
			quantity, err := intArg(args, "quantity")
			if err != nil {
				return nil, err
			}
			if quantity < 1 {
				return nil, badArg("quantity must be at least 1")
			}
			return s.Process(ctx, email, int64(productID), quantity)
		},
	}
}

func productNotFoundMessage(productID int64) string {
	return fmt.Sprintf("Error: Product with ID %d not found or is inactive.", productID)
}

func insufficientStockMessage(available, requested int) string {
	return fmt.Sprintf("Error: Insufficient stock. Available: %d, Requested: %d", available, requested)
}

// formatVND renders an amount rounded to whole dong with thousands
// separators, e.g. 180000 -> "180,000".
func formatVND(amount float64) string {
	n := int64(math.Round(amount))
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i := 0; i < len(digits); i++ {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(digits[i])
	}
	return sign + b.String()
}
