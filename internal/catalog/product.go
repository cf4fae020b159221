package catalog

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status gates purchasability independent of stock.
type Status int

const (
	StatusDeactive Status = 0
	StatusActive   Status = 1
)

func ParseStatus(v int) (Status, error) {
	switch Status(v) {
	case StatusActive, StatusDeactive:
		return Status(v), nil
	}
	return 0, fmt.Errorf("unknown product status: %d", v)
}

type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Status        Status          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	NameContains string
	Status       *Status
}

// ProductInput carries the writable product fields.
type ProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	Status        Status
}
