package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// MaxQuantity bounds every quantity and running total. The postgres columns
// are INTEGER.
const MaxQuantity = math.MaxInt32

type Actor struct {
	Username string
	Role     string
}

type ProductCondition string

const (
	ConditionNew         ProductCondition = "New"
	ConditionUsed        ProductCondition = "Used"
	ConditionRefurbished ProductCondition = "Refurbished"
)

type Product struct {
	ID                string           `json:"id" db:"id"`
	Code              string           `json:"code" db:"code"`
	Name              string           `json:"name" db:"name"`
	Price             decimal.Decimal  `json:"price" db:"price"`
	Stock             int              `json:"stock" db:"stock"`
	Unit              string           `json:"unit" db:"unit"`
	Active            bool             `json:"isActive" db:"is_active"`
	Condition         ProductCondition `json:"condition" db:"condition"`
	RestockDate       time.Time        `json:"restockDate" db:"restock_date"`
	CategoryID        string           `json:"productCategoryId" db:"category_id"`
	SupplierID        string           `json:"supplierId,omitempty" db:"supplier_id"`
	StorageLocationID string           `json:"storageLocationId" db:"storage_location_id"`
	CreatedAt         time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time        `json:"updatedAt" db:"updated_at"`
}

type ProductCreateRequest struct {
	Code              string           `json:"code"`
	Name              string           `json:"name"`
	Price             decimal.Decimal  `json:"price"`
	Stock             int              `json:"stock"`
	Unit              string           `json:"unit"`
	Active            *bool            `json:"isActive,omitempty"`
	Condition         ProductCondition `json:"condition"`
	RestockDate       *time.Time       `json:"restockDate,omitempty"`
	CategoryID        string           `json:"productCategoryId"`
	SupplierID        string           `json:"supplierId"`
	StorageLocationID string           `json:"storageLocationId"`
}

type ProductStatusRequest struct {
	Active *bool `json:"isActive"`
}

type LocationType string

const (
	LocationRack    LocationType = "rack"
	LocationShelf   LocationType = "shelf"
	LocationDrawer  LocationType = "drawer"
	LocationBox     LocationType = "box"
	LocationBin     LocationType = "bin"
	LocationCabinet LocationType = "cabinet"
)

type StorageLocation struct {
	ID              string       `json:"id" db:"id"`
	Code            string       `json:"code" db:"code"`
	Name            string       `json:"name" db:"name"`
	Type            LocationType `json:"type" db:"type"`
	ZoneID          string       `json:"zoneId,omitempty" db:"zone_id"`
	MaxCapacity     *int         `json:"maxCapacity,omitempty" db:"max_capacity"`
	CurrentCapacity int          `json:"currentCapacity" db:"current_capacity"`
	CapacityUnit    string       `json:"capacityUnit,omitempty" db:"capacity_unit"`
	Active          bool         `json:"isActive" db:"is_active"`
	CreatedBy       string       `json:"createdBy" db:"created_by"`
	CreatedAt       time.Time    `json:"createdAt" db:"created_at"`
}

type StorageLocationCreateRequest struct {
	Code         string       `json:"code"`
	Name         string       `json:"name"`
	Type         LocationType `json:"type"`
	ZoneID       string       `json:"zoneId"`
	MaxCapacity  *int         `json:"maxCapacity,omitempty"`
	CapacityUnit string       `json:"capacityUnit"`
}

type Supplier struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone,omitempty" db:"phone"`
	CreatedBy string    `json:"createdBy" db:"created_by"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type AdjustmentType string

const (
	AdjustmentIncrease AdjustmentType = "Increase"
	AdjustmentDecrease AdjustmentType = "Decrease"
)

// StockAdjustment is an append-only journal entry. NewQty always equals OldQty + Difference.
type StockAdjustment struct {
	ID         string         `json:"id" db:"id"`
	ProductID  string         `json:"productId" db:"product_id"`
	Type       AdjustmentType `json:"type" db:"type"`
	OldQty     int            `json:"oldQty" db:"old_qty"`
	NewQty     int            `json:"newQty" db:"new_qty"`
	Difference int            `json:"difference" db:"difference"`
	Reason     string         `json:"reason" db:"reason"`
	Note       string         `json:"note" db:"note"`
	CreatedBy  string         `json:"createdBy" db:"created_by"`
	CreatedAt  time.Time      `json:"createdAt" db:"created_at"`
}

type StockAdjustmentRequest struct {
	ProductID string         `json:"productId"`
	Type      AdjustmentType `json:"type"`
	Quantity  int            `json:"quantity"`
	Reason    string         `json:"reason"`
	Note      string         `json:"note"`
}

type CancelRequest struct {
	ID           string `json:"id"`
	CanceledNote string `json:"canceledNote"`
}

type DeliverRequest struct {
	ID string `json:"id"`
}
