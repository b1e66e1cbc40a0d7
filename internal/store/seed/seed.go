// Package seed holds the demo catalogue loaded by the memory store and by
// the postgres `seed` command.
package seed

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"inventra/backend/internal/domain"
)

// Actor owns every seeded row.
const Actor = "administrator@inventra.co.id"

type Catalog struct {
	Locations []domain.StorageLocation
	Products  []domain.Product
	Suppliers []domain.Supplier
}

// Build returns the catalogue with each location's current capacity equal to
// the stock of the products stored there. Ids are stable so seeding twice is
// harmless.
func Build(now time.Time) Catalog {
	locations := locations(now)
	products := products(now)

	held := make(map[string]int, len(locations))
	for _, p := range products {
		held[p.StorageLocationID] += p.Stock
	}
	for i := range locations {
		locations[i].CurrentCapacity = held[locations[i].ID]
	}

	return Catalog{
		Locations: locations,
		Products:  products,
		Suppliers: suppliers(now),
	}
}

func locations(now time.Time) []domain.StorageLocation {
	rackMax := 500
	shelfMax := 200
	return []domain.StorageLocation{
		{ID: "loc-rack-a1", Code: "R-A1", Name: "Rack A1", Type: domain.LocationRack, ZoneID: "zone-a", MaxCapacity: &rackMax, CapacityUnit: "pcs", Active: true, CreatedBy: Actor, CreatedAt: now},
		{ID: "loc-shelf-b2", Code: "S-B2", Name: "Shelf B2", Type: domain.LocationShelf, ZoneID: "zone-b", MaxCapacity: &shelfMax, CapacityUnit: "pcs", Active: true, CreatedBy: Actor, CreatedAt: now},
		{ID: "loc-cabinet-c1", Code: "C-01", Name: "Cabinet C1", Type: domain.LocationCabinet, ZoneID: "zone-c", CapacityUnit: "pcs", Active: true, CreatedBy: Actor, CreatedAt: now},
	}
}

func products(now time.Time) []domain.Product {
	item := func(id, code, name, category, location string, price int64, stock int) domain.Product {
		return domain.Product{
			ID:                id,
			Code:              code,
			Name:              name,
			Price:             decimal.NewFromInt(price),
			Stock:             stock,
			Unit:              "pcs",
			Active:            true,
			Condition:         domain.ConditionNew,
			RestockDate:       now,
			CategoryID:        category,
			StorageLocationID: location,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
	}
	return []domain.Product{
		item("prd-ssd-512", "SSD-512", "SSD NVMe 512GB", "cat-storage", "loc-rack-a1", 850000, 40),
		item("prd-ram-16", "RAM-16", "RAM DDR4 16GB", "cat-memory", "loc-rack-a1", 650000, 60),
		item("prd-kb-mech", "KB-MECH", "Mechanical Keyboard", "cat-peripheral", "loc-shelf-b2", 450000, 25),
		item("prd-mouse-wl", "MS-WL", "Wireless Mouse", "cat-peripheral", "loc-shelf-b2", 150000, 80),
		item("prd-psu-650", "PSU-650", "PSU 650W 80+ Bronze", "cat-power", "loc-cabinet-c1", 900000, 0),
	}
}

var supplierNames = []string{
	// national distributors
	"PT Astrindo Senayasa",
	"PT Synnex Metrodata Indonesia",
	"PT ECS Indo Jaya",
	"PT Virtus Technology Indonesia",
	"PT Datascript",
	"PT Jagat Genta Teknik",
	"PT Nusantara Jaya Computer",
	"PT Cakra Adi Jaya",
	"PT Citra Mandiri",
	"PT Berca Hardayaperkasa",
	"PT Computrade Technology International (CTI Group)",

	// local
	"MegaTech Supplies",
	"Indo Komputer Mandiri",
	"Global Hardware Supply",
	"Digital Partner Indonesia",
	"Sumber Jaya Komputer",
	"Prima Teknologi Nusantara",
	"Multi Data Pratama",
	"Alpha Computer Parts",
	"Techno Jaya Hardware",
	"Komputer Bersama Abadi",
	"Nusantara Parts Center",
	"Digital Bersaudara",
	"Elite Hardware Indonesia",
	"Anugerah Tech Supply",
	"Mitra Sukses Teknologi",

	// import
	"Shenzhen Tech Components Co., Ltd",
	"Guangzhou Hardware Electronic Co.",
	"Hong Kong Global Parts Ltd.",
	"Taiwan Precision Tech",
	"Shenzhen Nova Electronics",
	"Xinghua Computer Parts Factory",
	"Korea Digital Parts Co.",
	"Tokyo Hardware Supply",

	// wholesale retail
	"Enter Komputer",
	"Jakarta Notebook",
	"Rakitan",
	"Nana Komputer",
	"Hitech Computer",
	"Jakarta Pusat Computer Store",
	"BDG IT Supply (Bandung)",
	"Surabaya Mega Komputer",
	"Medan Jaya Technology",
}

func suppliers(now time.Time) []domain.Supplier {
	out := make([]domain.Supplier, 0, len(supplierNames))
	for i, name := range supplierNames {
		out = append(out, domain.Supplier{
			ID:        fmt.Sprintf("sup-%03d", i+1),
			Name:      name,
			CreatedBy: Actor,
			CreatedAt: now,
		})
	}
	return out
}
