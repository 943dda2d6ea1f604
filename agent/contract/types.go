package contract

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one transcript entry, either recalled from the memory store or
// produced during the current turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OrderEvent is published to the event sink after a sale completes. Amounts
// are VND.
type OrderEvent struct {
	OrderID       int64     `json:"order_id"`
	ProductID     int64     `json:"product_id"`
	ProductName   string    `json:"product_name"`
	Quantity      int       `json:"quantity"`
	CustomerEmail string    `json:"customer_email"`
	UnitPrice     float64   `json:"unit_price"`
	TotalAmount   float64   `json:"total_amount"`
	CreatedAt     time.Time `json:"created_at"`
}
