package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            string
	SKU           string
	Name          string
	Description   *string
	Price         decimal.Decimal
	StockQuantity int
	CategoryID    *string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64 // optimistic locking
	Attributes    json.RawMessage
	Images        []ProductImage
}

type ProductImage struct {
	ID           string
	ProductID    string
	URL          string
	IsPrimary    bool
	DisplayOrder int
}

// ProductFilter narrows List/Count queries. Zero values mean "no filter".
type ProductFilter struct {
	SearchTerm string
	CategoryID *string
	IsActive   *bool
}

// ProductPage is one page of a filtered product listing.
type ProductPage struct {
	Items      []Product
	TotalCount int
	Page       int
	PageSize   int
}
