package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var _ port.ProductsSource = (*ProductsRepository)(nil)
var _ port.ProductsAdmin = (*ProductsRepository)(nil)

type ProductsRepository struct {
	sqldb sqldb
}

func NewProductsRepository(sqldb sqldb) ProductsRepository {
	return ProductsRepository{sqldb}
}

func (r ProductsRepository) FetchProducts(
	ctx context.Context,
) (ps []domain.Product, err error) {
	const op = "ProductsRepository.FetchProducts"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		SELECT
			product_id, name, description, price_amount, price_currency,
			category_id, available_stock, images
		FROM products
		ORDER BY created_at ASC, product_id ASC;`

	rows, err := r.sqldb.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer closeRows(op, rows)

	for rows.Next() {
		var (
			v      domain.Product
			amount decimal.Decimal
			images []byte
		)
		err := rows.Scan(
			&v.ProductID, &v.Name, &v.Description, &amount, &v.Price.Currency,
			&v.Category, &v.AvailableStock, &images,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		v.Price.Amount = amount.InexactFloat64()

		if len(images) != 0 {
			if err := json.Unmarshal(images, &v.Images); err != nil {
				return nil, fmt.Errorf("%s: product %s: %w", op, v.ProductID, err)
			}
		}
		ps = append(ps, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}

func (r ProductsRepository) FetchCategories(
	ctx context.Context,
) ([]domain.Category, error) {
	const op = "ProductsRepository.FetchCategories"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT category_id, label FROM categories ORDER BY label ASC;`

	rows, err := r.sqldb.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer closeRows(op, rows)

	var cs []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.CategoryID, &c.Label); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		cs = append(cs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cs, nil
}

// CreateProduct inserts p and registers its category when it is new.
func (r ProductsRepository) CreateProduct(
	ctx context.Context, p domain.Product,
) (domain.Product, error) {
	const op = "ProductsRepository.CreateProduct"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	images, err := json.Marshal(p.Images)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	err = r.inTx(ctx, op, func(tx *sql.Tx) error {
		if err := registerCategory(ctx, tx, p.Category); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO products (
				product_id, name, description, price_amount, price_currency,
				category_id, available_stock, images
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
			p.ProductID, p.Name, p.Description,
			decimal.NewFromFloat(p.Price.Amount), p.Price.Currency,
			p.Category, p.AvailableStock, string(images),
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", domain.ErrAlreadyExists, p.ProductID)
		}
		return err
	})
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (r ProductsRepository) UpdateProduct(
	ctx context.Context, id string, p domain.Product,
) (domain.Product, error) {
	const op = "ProductsRepository.UpdateProduct"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	images, err := json.Marshal(p.Images)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	err = r.inTx(ctx, op, func(tx *sql.Tx) error {
		if err := registerCategory(ctx, tx, p.Category); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE products SET
				name = $2,
				description = $3,
				price_amount = $4,
				price_currency = $5,
				category_id = $6,
				available_stock = $7,
				images = $8
			WHERE product_id = $1;`,
			id, p.Name, p.Description,
			decimal.NewFromFloat(p.Price.Amount), p.Price.Currency,
			p.Category, p.AvailableStock, string(images),
		)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	p.ProductID = id
	return p, nil
}

func (r ProductsRepository) DeleteProduct(ctx context.Context, id string) error {
	const op = "ProductsRepository.DeleteProduct"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := r.sqldb.ExecContext(ctx,
		`DELETE FROM products WHERE product_id = $1;`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r ProductsRepository) inTx(
	ctx context.Context, op string, fn func(*sql.Tx) error,
) (txErr error) {
	tx, err := r.sqldb.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	defer func() {
		if txErr == nil {
			if err := tx.Commit(); err != nil {
				txErr = fmt.Errorf("failed to commit: %w", err)
			}
			return
		}
		if err := tx.Rollback(); err != nil {
			slog.Error("failed to rollback tx", "op", op, "err", err)
		}
	}()

	return fn(tx)
}

// registerCategory adds a category the admin form typed in. Its label is the
// id in title case; existing categories keep their label.
func registerCategory(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO categories (category_id, label)
		VALUES ($1, $2)
		ON CONFLICT (category_id) DO NOTHING;`,
		id, categoryLabel(id),
	)
	return err
}

// categoryLabel turns "sports-car" into "Sports Car".
func categoryLabel(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	})
	if len(words) == 0 {
		return id
	}
	return cases.Title(language.Und).String(strings.Join(words, " "))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func closeRows(op string, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Error("failed to close rows", "op", op, "err", err)
	}
}
