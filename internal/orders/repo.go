package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/example/shoporder/internal/catalog"
)

type Repo struct{ DB *pgxpool.Pool }

const orderCols = `id, user_id, total_price::text, status, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var total string
	if err := row.Scan(&o.ID, &o.UserID, &total, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return Order{}, err
	}
	d, err := decimal.NewFromString(total)
	if err != nil {
		return Order{}, fmt.Errorf("parse total: %w", err)
	}
	o.TotalPrice = d
	return o, nil
}

// PlaceOrder runs the whole placement as one transaction: lock and fetch the
// referenced products, validate and price every line, insert the order and
// its items, then conditionally decrement stock per line. Any failure rolls
// everything back; no partial order or partial decrement is ever visible.
func (r *Repo) PlaceOrder(ctx context.Context, userID string, lines []OrderLine) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, persistence(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]string, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			ids = append(ids, l.ProductID)
		}
	}

	// FOR UPDATE: the stock read and the decrement below must be atomic
	// relative to concurrent placements touching the same products.
	products, err := catalog.FindByIDs(ctx, tx, ids, true)
	if err != nil {
		return Order{}, persistence(err)
	}

	priced, total, err := PriceLines(products, lines)
	if err != nil {
		return Order{}, err
	}

	orderID := uuid.NewString()
	order, err := scanOrder(tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, total_price, status)
		VALUES ($1, $2, $3::numeric, $4)
		RETURNING `+orderCols,
		orderID, userID, total.String(), StatusPending))
	if err != nil {
		return Order{}, persistence(err)
	}

	for _, pl := range priced {
		item := OrderItem{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			ProductID: pl.ProductID,
			Quantity:  pl.Quantity,
			Price:     pl.Price,
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, quantity, price)
			VALUES ($1, $2, $3, $4, $5::numeric)`,
			item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price.String()); err != nil {
			return Order{}, persistence(err)
		}
		order.Items = append(order.Items, item)
	}

	// Duplicate lines each decrement separately, so a combined quantity
	// beyond stock still fails here even though PriceLines passed per line.
	for _, pl := range priced {
		n, err := catalog.DecrementStock(ctx, tx, pl.ProductID, pl.Quantity)
		if err != nil {
			return Order{}, persistence(err)
		}
		if n == 0 {
			return Order{}, fmt.Errorf("%w: %s", ErrInsufficientStock, products[pl.ProductID].Name)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, persistence(err)
	}
	return order, nil
}

func (r *Repo) FindOrder(ctx context.Context, orderID string) (Order, error) {
	order, err := scanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id=$1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, persistence(err)
	}

	items, err := r.itemsFor(ctx, []string{orderID})
	if err != nil {
		return Order{}, persistence(err)
	}
	order.Items = items[orderID]
	return order, nil
}

// UpdateStatus sets the status unconditionally; any known status may replace
// any other.
func (r *Repo) UpdateStatus(ctx context.Context, orderID string, status Status) (Order, error) {
	order, err := scanOrder(r.DB.QueryRow(ctx, `
		UPDATE orders SET status=$2, updated_at=now()
		WHERE id=$1
		RETURNING `+orderCols, orderID, status))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, persistence(err)
	}

	items, err := r.itemsFor(ctx, []string{orderID})
	if err != nil {
		return Order{}, persistence(err)
	}
	order.Items = items[orderID]
	return order, nil
}

// List returns a page of orders newest first, optionally filtered by the
// owning user's name substring and by status, plus the total match count.
func (r *Repo) List(ctx context.Context, f ListFilter, page, perPage int) ([]Order, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 5
	}

	where := `TRUE`
	args := []any{}
	if f.UserName != "" {
		args = append(args, "%"+f.UserName+"%")
		where += fmt.Sprintf(" AND u.name ILIKE $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		where += fmt.Sprintf(" AND o.status = $%d", len(args))
	}

	var total int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders o JOIN users u ON u.id = o.user_id WHERE `+where,
		args...).Scan(&total)
	if err != nil {
		return nil, 0, persistence(err)
	}

	args = append(args, perPage, (page-1)*perPage)
	rows, err := r.DB.Query(ctx, fmt.Sprintf(`
		SELECT o.id, o.user_id, o.total_price::text, o.status, o.created_at, o.updated_at
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE %s
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, persistence(err)
	}
	defer rows.Close()

	var out []Order
	var ids []string
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, persistence(err)
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, persistence(err)
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, 0, persistence(err)
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, total, nil
}

func (r *Repo) itemsFor(ctx context.Context, orderIDs []string) (map[string][]OrderItem, error) {
	if len(orderIDs) == 0 {
		return map[string][]OrderItem{}, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, quantity, price::text
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY id`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]OrderItem)
	for rows.Next() {
		var it OrderItem
		var price string
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &price); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse item price: %w", err)
		}
		it.Price = d
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}
