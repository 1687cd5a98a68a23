package domain

import "time"

type TransactionType string

const (
	TransactionInbound  TransactionType = "inbound"
	TransactionOutbound TransactionType = "outbound"
)

func (t TransactionType) Valid() bool {
	return t == TransactionInbound || t == TransactionOutbound
}

// InventoryTransaction is one append-only stock-movement ledger entry.
// Entries are never updated or deleted, even after the owning product is
// soft-deleted.
type InventoryTransaction struct {
	ID        string
	ProductID string
	Type      TransactionType
	Quantity  int // always positive, direction comes from Type
	Reason    *string
	CreatedAt time.Time
}

// SignedQuantity is the stock delta this entry realized.
func (t InventoryTransaction) SignedQuantity() int {
	if t.Type == TransactionOutbound {
		return -t.Quantity
	}
	return t.Quantity
}

// LowStockThreshold is the fixed stock level below which a product is
// reported as low on stock.
const LowStockThreshold = 10

type InventoryStatus struct {
	ProductID    string
	ProductName  string
	SKU          string
	CurrentStock int
	IsLowStock   bool
}
