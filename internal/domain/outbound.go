package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OutboundStatus string

const (
	OutboundProcessing OutboundStatus = "PROCESSING"
	OutboundShipped    OutboundStatus = "SHIPPED"
	OutboundPickedUp   OutboundStatus = "PICKED_UP"
	OutboundDelivered  OutboundStatus = "DELIVERED"
	OutboundCanceled   OutboundStatus = "CANCELED"
)

type OutboundReason string

const (
	ReasonSales       OutboundReason = "SALES"
	ReasonReturn      OutboundReason = "RETURN"
	ReasonWaste       OutboundReason = "WASTE"
	ReasonInternalUse OutboundReason = "INTERNAL_USE"
)

func (r OutboundReason) Valid() bool {
	switch r {
	case ReasonSales, ReasonReturn, ReasonWaste, ReasonInternalUse:
		return true
	default:
		return false
	}
}

type ShippingInfo struct {
	IsShipping        bool       `json:"isShipping" db:"is_shipping"`
	ShippingDate      *time.Time `json:"shippingDate,omitempty" db:"shipping_date"`
	Courier           string     `json:"courier,omitempty" db:"courier"`
	IsReceipt         bool       `json:"isReceipt" db:"is_receipt"`
	ReceiptPath       string     `json:"receiptPath,omitempty" db:"receipt_path"`
	ReceiptUploadDate *time.Time `json:"receiptUploadDate,omitempty" db:"receipt_upload_date"`
}

type PickupInfo struct {
	IsPickup   bool       `json:"isPickup" db:"is_pickup"`
	PickupDate *time.Time `json:"pickupDate,omitempty" db:"pickup_date"`
	PickupBy   string     `json:"pickupBy,omitempty" db:"pickup_by"`
}

type OutboundRecord struct {
	ID                string          `json:"id" db:"id"`
	ProductID         string          `json:"productId" db:"product_id"`
	StorageLocationID string          `json:"storageLocationId" db:"storage_location_id"`
	Qty               int             `json:"qty" db:"qty"`
	OperationalCost   decimal.Decimal `json:"operationalCost" db:"operational_cost"`
	TotalValue        decimal.Decimal `json:"totalValue" db:"total_value"`
	Status            OutboundStatus  `json:"status" db:"status"`
	Reason            OutboundReason  `json:"reason" db:"reason"`
	Note              string          `json:"note" db:"note"`
	ShippingInfo
	PickupInfo
	DeliveredDate *time.Time `json:"deliveredDate,omitempty" db:"delivered_date"`
	CanceledDate  *time.Time `json:"canceledDate,omitempty" db:"canceled_date"`
	CanceledNote  string     `json:"canceledNote,omitempty" db:"canceled_note"`
	StockDeducted bool       `json:"stockDeducted" db:"stock_deducted"`
	CreatedBy     string     `json:"createdBy" db:"created_by"`
	UpdatedBy     string     `json:"updatedBy,omitempty" db:"updated_by"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

func (r OutboundRecord) IsTerminal() bool {
	return r.Status == OutboundDelivered || r.Status == OutboundCanceled
}

// DeriveOutboundStatus maps the mutually exclusive dispatch flags to a status.
// DELIVERED and CANCELED are only reachable through their dedicated operations.
func DeriveOutboundStatus(isShipping bool, isPickup bool) OutboundStatus {
	switch {
	case isShipping:
		return OutboundShipped
	case isPickup:
		return OutboundPickedUp
	default:
		return OutboundProcessing
	}
}

// OutboundTotalValue is qty × unit price + operational cost.
func OutboundTotalValue(qty int, unitPrice decimal.Decimal, operationalCost decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty))).Add(operationalCost)
}

type OutboundSummary struct {
	OutboundRecord
	ProductName string `json:"product" db:"product_name"`
}

type OutboundRequest struct {
	ProductID       string          `json:"productId"`
	Qty             int             `json:"qty"`
	OperationalCost decimal.Decimal `json:"operationalCost"`
	Reason          OutboundReason  `json:"reason"`
	Note            string          `json:"note"`
	IsShipping      bool            `json:"isShipping"`
	ShippingDate    *time.Time      `json:"shippingDate,omitempty"`
	Courier         string          `json:"courier"`
	IsPickup        bool            `json:"isPickup"`
	PickupDate      *time.Time      `json:"pickupDate,omitempty"`
	PickupBy        string          `json:"pickupBy"`
}

type ReceiptUpload struct {
	FileName    string
	ContentType string
	Size        int64
}
