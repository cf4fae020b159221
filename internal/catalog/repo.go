package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("product not found")

// Querier is satisfied by *pgxpool.Pool and pgx.Tx, so batch lookups and
// stock decrements can run inside a caller-owned transaction.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repo struct{ DB *pgxpool.Pool }

const productCols = `id, name, description, price::text, stock_quantity, status, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var price string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.StockQuantity, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, fmt.Errorf("parse price: %w", err)
	}
	p.Price = d
	return p, nil
}

func (r *Repo) Create(ctx context.Context, in ProductInput) (Product, error) {
	id := uuid.NewString()
	row := r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, description, price, stock_quantity, status)
		VALUES ($1, $2, $3, $4::numeric, $5, $6)
		RETURNING `+productCols,
		id, in.Name, in.Description, in.Price.String(), in.StockQuantity, in.Status)
	return scanProduct(row)
}

func (r *Repo) Update(ctx context.Context, id string, in ProductInput) (Product, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE products
		SET name=$2, description=$3, price=$4::numeric, stock_quantity=$5, status=$6, updated_at=now()
		WHERE id=$1 AND NOT is_deleted
		RETURNING `+productCols,
		id, in.Name, in.Description, in.Price.String(), in.StockQuantity, in.Status)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *Repo) FindByID(ctx context.Context, id string) (Product, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+productCols+` FROM products WHERE id=$1 AND NOT is_deleted`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// SoftDelete keeps the row so historical order items stay resolvable.
func (r *Repo) SoftDelete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx,
		`UPDATE products SET is_deleted=true, updated_at=now() WHERE id=$1 AND NOT is_deleted`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns a page of non-deleted products, newest first, filtered by
// name substring and status, plus the unpaginated match count.
func (r *Repo) List(ctx context.Context, f ListFilter, page, perPage int) ([]Product, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 5
	}

	where := `NOT is_deleted`
	args := []any{}
	if f.NameContains != "" {
		args = append(args, "%"+f.NameContains+"%")
		where += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, perPage, (page-1)*perPage)
	rows, err := r.DB.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM products WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		productCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// FindByIDs fetches the given products in one batch. With lock=true the rows
// are locked FOR UPDATE in deterministic id order, so concurrent placements
// touching the same products serialize instead of deadlocking.
func FindByIDs(ctx context.Context, q Querier, ids []string, lock bool) (map[string]Product, error) {
	if len(ids) == 0 {
		return map[string]Product{}, nil
	}
	sql := `SELECT ` + productCols + ` FROM products WHERE id = ANY($1) AND NOT is_deleted ORDER BY id`
	if lock {
		sql += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, sql, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// DecrementStock subtracts qty only when enough stock remains; the returned
// affected-row count is zero on shortage so callers can fail the transaction.
func DecrementStock(ctx context.Context, q Querier, id string, qty int) (int64, error) {
	ct, err := q.Exec(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = now()
		WHERE id = $1 AND stock_quantity >= $2`, id, qty)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
