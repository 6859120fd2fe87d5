package notify

import "fmt"

// Event types pushed by the server.
const (
	EventSalesNotification = "sales_notification"
	EventLowStockAlert     = "low_stock_alert"
	EventStockUpdate       = "stock_update"
)

// SalesNotification is sent when a sale is created or changes status.
type SalesNotification struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	SaleID    int64  `json:"sale_id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"` // HH:MM:SS, server local time
}

// LowStockAlert is sent when a stock level drops to its threshold.
type LowStockAlert struct {
	Message     string `json:"message,omitempty"`
	ProductName string `json:"product_name"`
	BranchName  string `json:"branch_name"`
	Quantity    int64  `json:"quantity"`
}

// Text returns Message, or a sentence built from the product fields when the
// server did not send one.
func (a LowStockAlert) Text() string {
	if a.Message != "" {
		return a.Message
	}
	if a.ProductName == "" {
		return "Stock is running low"
	}
	if a.BranchName == "" {
		return fmt.Sprintf("%s is low on stock (%d left)", a.ProductName, a.Quantity)
	}
	return fmt.Sprintf("%s at %s is low on stock (%d left)", a.ProductName, a.BranchName, a.Quantity)
}

// StockUpdate is sent whenever a stock record is saved.
type StockUpdate struct {
	StockID   int64 `json:"stock_id"`
	ProductID int64 `json:"product_id"`
	BranchID  int64 `json:"branch_id"`
	Quantity  int64 `json:"quantity"`
}
