package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type InboundStatus string

const (
	InboundReceived InboundStatus = "RECEIVED"
	InboundChecking InboundStatus = "CHECKING"
	InboundStored   InboundStatus = "STORED"
	InboundCanceled InboundStatus = "CANCELED"
)

type InboundRecord struct {
	ID               string          `json:"id" db:"id"`
	ProductID        string          `json:"productId" db:"product_id"`
	SupplierID       string          `json:"supplierId,omitempty" db:"supplier_id"`
	Qty              int             `json:"qty" db:"qty"`
	PurchasePrice    decimal.Decimal `json:"purchasePrice" db:"purchase_price"`
	TotalPrice       decimal.Decimal `json:"totalPrice" db:"total_price"`
	Status           InboundStatus   `json:"status" db:"status"`
	ReceiveDate      *time.Time      `json:"receiveDate,omitempty" db:"receive_date"`
	ItemCheckingDate *time.Time      `json:"itemCheckingDate,omitempty" db:"item_checking_date"`
	StoredDate       *time.Time      `json:"storedDate,omitempty" db:"stored_date"`
	CanceledDate     *time.Time      `json:"canceledDate,omitempty" db:"canceled_date"`
	CanceledNote     string          `json:"canceledNote,omitempty" db:"canceled_note"`
	Note             string          `json:"note" db:"note"`
	StockApplied     bool            `json:"stockApplied" db:"stock_applied"`
	CreatedBy        string          `json:"createdBy" db:"created_by"`
	UpdatedBy        string          `json:"updatedBy,omitempty" db:"updated_by"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time       `json:"updatedAt" db:"updated_at"`
}

// FoldStatus derives the status from the cumulative set of stamped dates,
// highest stage first. Cancellation overrides everything else.
func (r InboundRecord) FoldStatus() InboundStatus {
	switch {
	case r.CanceledDate != nil:
		return InboundCanceled
	case r.StoredDate != nil:
		return InboundStored
	case r.ItemCheckingDate != nil:
		return InboundChecking
	default:
		return InboundReceived
	}
}

func (r InboundRecord) IsTerminal() bool {
	return r.Status == InboundStored || r.Status == InboundCanceled
}

type InboundSummary struct {
	InboundRecord
	ProductName  string `json:"product" db:"product_name"`
	SupplierName string `json:"supplier" db:"supplier_name"`
}

type InboundCreateRequest struct {
	ProductID     string           `json:"productId"`
	SupplierID    string           `json:"supplierId"`
	Qty           int              `json:"qty"`
	PurchasePrice decimal.Decimal  `json:"purchasePrice"`
	TotalPrice    *decimal.Decimal `json:"totalPrice,omitempty"`
	ReceiveDate   *time.Time       `json:"receiveDate,omitempty"`
	Note          string           `json:"note"`
}

type InboundTrackingRequest struct {
	ID               string     `json:"id"`
	ReceiveDate      *time.Time `json:"receiveDate,omitempty"`
	ItemCheckingDate *time.Time `json:"itemCheckingDate,omitempty"`
	StoredDate       *time.Time `json:"storedDate,omitempty"`
	CanceledDate     *time.Time `json:"canceledDate,omitempty"`
	CanceledNote     string     `json:"canceledNote,omitempty"`
}
