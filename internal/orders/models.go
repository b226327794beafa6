package orders

import "time"

type Quote struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Amount      *float64    `json:"amount"` // nil until the supplier answers
	Status      QuoteStatus `json:"status"`
	DueDate     *time.Time  `json:"due_date"`
	SupplierID  int64       `json:"supplier_id"`
	FarmID      int64       `json:"farm_id"`
	ReportID    *int64      `json:"report_id"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type OrderConfirmation struct {
	ID               int64      `json:"id"`
	QuoteID          int64      `json:"quote_id"`
	OrderNumber      string     `json:"order_number"`
	Company          string     `json:"company"`
	SequentialNumber int        `json:"sequential_number"`
	TotalAmount      float64    `json:"total_amount"`
	OrderDate        time.Time  `json:"order_date"`
	DeliveryDate     *time.Time `json:"delivery_date"`
	Notes            string     `json:"notes"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
}

const OrderStatusConfirmed = "confirmed"

// NewQuotes is one quote request fanned out to several suppliers.
type NewQuotes struct {
	Title       string
	Description string
	DueDate     *time.Time
	FarmID      int64
	ReportID    *int64
	SupplierIDs []int64
}

type QuoteChanges struct {
	Title       *string
	Description *string
	DueDate     *time.Time
}

type AcceptInput struct {
	TotalAmount  *float64 // overrides the quote amount
	OrderDate    *time.Time
	DeliveryDate *time.Time
	Notes        string
}

type Acceptance struct {
	Quote    Quote             `json:"quote"`
	Order    OrderConfirmation `json:"order"`
	Rejected []int64           `json:"rejected_quote_ids"`
}

type QuoteFilter struct {
	Status     QuoteStatus
	FarmID     int64
	ReportID   int64
	SupplierID int64
	Limit      int
	Offset     int
}

type OrderFilter struct {
	Company string
	Limit   int
	Offset  int
}

// QuoteEmail carries everything the supplier email needs in one read.
type QuoteEmail struct {
	Quote         Quote
	SupplierName  string
	SupplierEmail string
	FarmName      string
	FarmAddress   string
	ReportTitle   string
}

// OrderEmail carries everything the order confirmation email and calendar entry need.
type OrderEmail struct {
	Order         OrderConfirmation
	QuoteTitle    string
	SupplierName  string
	SupplierEmail string
	FarmName      string
	FarmAddress   string
}

func roundCents(v float64) float64 {
	if v < 0 {
		return -roundCents(-v)
	}
	return float64(int64(v*100+0.5)) / 100
}
