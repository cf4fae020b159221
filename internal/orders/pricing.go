package orders

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/example/shoporder/internal/catalog"
)

// PricedLine is a requested line with the unit price captured from the
// product's current price.
type PricedLine struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// PriceLines validates every requested line against the fetched products, in
// the order the caller gave them, and computes the order total. The checks
// per line are: product present, product active, enough stock. Duplicate
// product ids are priced independently and summed; an empty line list yields
// a zero total.
//
// Stock is only checked here, not decremented; the decrement happens as a
// conditional update inside the placement transaction, so concurrent
// placements cannot both pass on the same units.
func PriceLines(products map[string]catalog.Product, lines []OrderLine) ([]PricedLine, decimal.Decimal, error) {
	total := decimal.Zero
	priced := make([]PricedLine, 0, len(lines))

	for _, line := range lines {
		p, ok := products[line.ProductID]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
		}
		if p.Status == catalog.StatusDeactive {
			return nil, decimal.Zero, fmt.Errorf("%w: %s", ErrProductUnavailable, p.Name)
		}
		if p.StockQuantity < line.Quantity {
			return nil, decimal.Zero, fmt.Errorf("%w: %s", ErrInsufficientStock, p.Name)
		}

		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		priced = append(priced, PricedLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     p.Price,
		})
	}
	return priced, total, nil
}
